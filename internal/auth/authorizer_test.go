package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"fleet-expense-server/internal/core/token"
	"fleet-expense-server/internal/domain"
)

// memRevoked is an in-memory revocation list.
type memRevoked struct {
	mu       sync.Mutex
	revoked  map[string]bool
	failWith error
}

func newMemRevoked() *memRevoked { return &memRevoked{revoked: map[string]bool{}} }

func (m *memRevoked) RevokeSession(_ context.Context, tokenID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.revoked[tokenID] = true
	return nil
}

func (m *memRevoked) SessionRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	return m.revoked[tokenID], nil
}

func issueFor(t *testing.T, u *domain.User) string {
	t.Helper()
	tok, err := testJWTer().Issue(u.ID, u.Username, string(u.Role))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestAuthorizeGranted(t *testing.T) {
	u := seedUser(t, "admin", domain.RoleAdmin, true)
	users := newMemUsers(u)
	a := NewAuthorizer(users, testJWTer(), newMemRevoked(), time.Second, zap.NewNop())

	id, err := a.Authorize(context.Background(), issueFor(t, u), domain.CapManageUsers)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if id.UserID != u.ID || id.Role != domain.RoleAdmin {
		t.Fatalf("identity = %+v", id)
	}
	if id.TokenID == "" {
		t.Fatal("identity missing token ID")
	}
}

func TestAuthorizeExpiredToken(t *testing.T) {
	u := seedUser(t, "admin", domain.RoleAdmin, true)
	// Expired beyond the parser's leeway.
	stale := &token.JWTer{Secret: []byte("test-secret"), Issuer: "test", TTL: -5 * time.Minute}
	tok, err := stale.Issue(u.ID, u.Username, string(u.Role))
	if err != nil {
		t.Fatal(err)
	}

	a := NewAuthorizer(newMemUsers(u), testJWTer(), newMemRevoked(), time.Second, zap.NewNop())
	if _, err := a.Authorize(context.Background(), tok, ""); !errors.Is(err, domain.ErrDenied) {
		t.Fatalf("want ErrDenied, got %v", err)
	}
}

func TestAuthorizeGarbageToken(t *testing.T) {
	a := NewAuthorizer(newMemUsers(), testJWTer(), newMemRevoked(), time.Second, zap.NewNop())
	if _, err := a.Authorize(context.Background(), "not-a-token", ""); !errors.Is(err, domain.ErrDenied) {
		t.Fatalf("want ErrDenied, got %v", err)
	}
}

func TestAuthorizeDeactivatedUserWithValidToken(t *testing.T) {
	u := seedUser(t, "admin", domain.RoleAdmin, true)
	users := newMemUsers(u)
	a := NewAuthorizer(users, testJWTer(), newMemRevoked(), time.Second, zap.NewNop())
	tok := issueFor(t, u)

	if err := users.SetActive(context.Background(), u.ID, false); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Authorize(context.Background(), tok, ""); !errors.Is(err, domain.ErrDenied) {
		t.Fatalf("deactivation must bite before token expiry, got %v", err)
	}
}

func TestAuthorizeUsesStoredRoleNotTokenSnapshot(t *testing.T) {
	u := seedUser(t, "admin", domain.RoleAdmin, true)
	users := newMemUsers(u)
	a := NewAuthorizer(users, testJWTer(), newMemRevoked(), time.Second, zap.NewNop())
	tok := issueFor(t, u) // token says ADMIN

	if err := users.UpdateRole(context.Background(), u.ID, domain.RoleAuditor); err != nil {
		t.Fatal(err)
	}

	if _, err := a.Authorize(context.Background(), tok, domain.CapManageUsers); !errors.Is(err, domain.ErrDenied) {
		t.Fatalf("demoted user kept admin capability, got %v", err)
	}
	id, err := a.Authorize(context.Background(), tok, domain.CapViewAudit)
	if err != nil {
		t.Fatalf("demoted user lost auditor capability: %v", err)
	}
	if id.Role != domain.RoleAuditor {
		t.Fatalf("identity role = %q, want current stored role", id.Role)
	}
}

func TestAuthorizeAuditorCapabilities(t *testing.T) {
	u := seedUser(t, "auditor", domain.RoleAuditor, true)
	a := NewAuthorizer(newMemUsers(u), testJWTer(), newMemRevoked(), time.Second, zap.NewNop())
	tok := issueFor(t, u)

	if _, err := a.Authorize(context.Background(), tok, domain.CapViewAudit); err != nil {
		t.Fatalf("VIEW_AUDIT: %v", err)
	}
	for _, cap := range []domain.Capability{
		domain.CapManageUsers, domain.CapManageFleet,
		domain.CapRecordOperations, domain.CapResetDatabase,
	} {
		if _, err := a.Authorize(context.Background(), tok, cap); !errors.Is(err, domain.ErrDenied) {
			t.Fatalf("%s: want ErrDenied, got %v", cap, err)
		}
	}
}

func TestAuthorizeFailsClosedOnStoreOutage(t *testing.T) {
	u := seedUser(t, "admin", domain.RoleAdmin, true)
	users := newMemUsers(u)
	a := NewAuthorizer(users, testJWTer(), newMemRevoked(), time.Second, zap.NewNop())
	tok := issueFor(t, u)

	users.failWith = errors.New("connection refused")
	if _, err := a.Authorize(context.Background(), tok, ""); !errors.Is(err, domain.ErrDenied) {
		t.Fatalf("store outage must deny, got %v", err)
	}
}

func TestAuthorizeFailsClosedOnRevocationOutage(t *testing.T) {
	u := seedUser(t, "admin", domain.RoleAdmin, true)
	rev := newMemRevoked()
	a := NewAuthorizer(newMemUsers(u), testJWTer(), rev, time.Second, zap.NewNop())
	tok := issueFor(t, u)

	rev.failWith = errors.New("redis down")
	if _, err := a.Authorize(context.Background(), tok, ""); !errors.Is(err, domain.ErrDenied) {
		t.Fatalf("revocation outage must deny, got %v", err)
	}
}

func TestRevokeEndsTheSession(t *testing.T) {
	u := seedUser(t, "admin", domain.RoleAdmin, true)
	a := NewAuthorizer(newMemUsers(u), testJWTer(), newMemRevoked(), time.Second, zap.NewNop())
	tok := issueFor(t, u)

	if _, err := a.Authorize(context.Background(), tok, ""); err != nil {
		t.Fatalf("pre-revoke: %v", err)
	}
	if _, err := a.Revoke(context.Background(), tok); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := a.Authorize(context.Background(), tok, ""); !errors.Is(err, domain.ErrDenied) {
		t.Fatalf("revoked session still authorized, got %v", err)
	}
}
