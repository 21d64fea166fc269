package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fleet-expense-server/internal/audit"
	"fleet-expense-server/internal/core/token"
	"fleet-expense-server/internal/domain"
)

// RequestMeta carries the client context attached to audit records.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Session is the outcome of a successful login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

// Authenticator validates username/password pairs and issues session
// credentials. Every attempt, success or failure, leaves exactly one
// audit record; failures carry an internal cause invisible to the caller.
type Authenticator struct {
	users    domain.CredentialStore
	hasher   PasswordHasher
	tokens   *token.JWTer
	recorder *audit.Recorder
	log      *zap.Logger
}

func NewAuthenticator(users domain.CredentialStore, hasher PasswordHasher, tokens *token.JWTer, recorder *audit.Recorder, log *zap.Logger) *Authenticator {
	return &Authenticator{users: users, hasher: hasher, tokens: tokens, recorder: recorder, log: log}
}

// Internal failure causes, recorded for operator forensics only.
const (
	causeUnknownUser   = "unknown_user"
	causeWrongPassword = "wrong_password"
	causeInactive      = "inactive_account"
)

// Login walks RECEIVED -> lookup -> password -> active -> ISSUED/REJECTED.
// Unknown user, wrong password and inactive account are indistinguishable
// to the caller: all three come back as ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, username, password string, meta RequestMeta) (*Session, error) {
	u, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.auditFailure(ctx, nil, username, causeUnknownUser, meta)
			return nil, domain.ErrInvalidCredentials
		}
		// Outage, not a verdict: must not look like bad credentials and
		// must not leak driver detail past the boundary.
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	ok, err := a.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		// Corrupted digest in storage; not a caller problem.
		a.log.Error("stored password digest unreadable", zap.String("user", u.Username), zap.Error(err))
		a.auditFailure(ctx, &u.ID, u.Username, causeWrongPassword, meta)
		return nil, domain.ErrInvalidCredentials
	}
	if !ok {
		a.auditFailure(ctx, &u.ID, u.Username, causeWrongPassword, meta)
		return nil, domain.ErrInvalidCredentials
	}

	if !u.Active {
		a.auditFailure(ctx, &u.ID, u.Username, causeInactive, meta)
		return nil, domain.ErrInvalidCredentials
	}

	// Role is read from the record just loaded, never from an older token.
	tok, err := a.tokens.Issue(u.ID, u.Username, string(u.Role))
	if err != nil {
		return nil, err
	}

	a.recorder.LoginAttempt(ctx, &domain.AuditRecord{
		ActorID:    &u.ID,
		ActorName:  u.Username,
		Action:     domain.AuditLogin,
		TargetType: domain.EntitySession,
		TargetID:   u.ID,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	})

	return &Session{
		Token:     tok,
		ExpiresAt: time.Now().Add(a.tokens.TTL),
		User:      u,
	}, nil
}

func (a *Authenticator) auditFailure(ctx context.Context, actorID *string, username, cause string, meta RequestMeta) {
	payload, _ := json.Marshal(struct {
		Username string `json:"username"`
		Cause    string `json:"cause"`
	}{Username: username, Cause: cause})

	a.recorder.LoginAttempt(ctx, &domain.AuditRecord{
		ActorID:    actorID,
		ActorName:  username,
		Action:     domain.AuditLoginFailed,
		TargetType: domain.EntitySession,
		Payload:    payload,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	})
}
