package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fleet-expense-server/internal/core/token"
	"fleet-expense-server/internal/domain"
)

// RevocationList is a shared append-only set of revoked session IDs.
type RevocationList interface {
	RevokeSession(ctx context.Context, tokenID string, ttl time.Duration) error
	SessionRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Identity is the authenticated actor attached to a granted request.
// Role is the current stored role, not the token snapshot.
type Identity struct {
	UserID    string
	Username  string
	Role      domain.Role
	TokenID   string
	ExpiresAt time.Time
}

// Authorizer gates every protected action. Denial is an expected,
// frequent outcome, not an exception: expiry, revocation, deactivation,
// missing capability and store outages all come back as ErrDenied.
// On store trouble it fails closed, never open.
type Authorizer struct {
	users        domain.CredentialStore
	tokens       *token.JWTer
	revoked      RevocationList
	storeTimeout time.Duration
	log          *zap.Logger
}

func NewAuthorizer(users domain.CredentialStore, tokens *token.JWTer, revoked RevocationList, storeTimeout time.Duration, log *zap.Logger) *Authorizer {
	if storeTimeout <= 0 {
		storeTimeout = 3 * time.Second
	}
	return &Authorizer{users: users, tokens: tokens, revoked: revoked, storeTimeout: storeTimeout, log: log}
}

// Authorize validates the session credential and checks the capability
// against the role currently stored for the owning user, so role changes
// and deactivations bite before the token's natural expiry.
func (a *Authorizer) Authorize(ctx context.Context, bearer string, capability domain.Capability) (*Identity, error) {
	claims, err := a.tokens.Parse(bearer)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired session", domain.ErrDenied)
	}

	if a.revoked != nil {
		revoked, err := a.revoked.SessionRevoked(ctx, claims.ID)
		if err != nil {
			a.log.Warn("revocation list unreachable, failing closed",
				zap.Error(fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)))
			return nil, fmt.Errorf("%w: revocation check unavailable", domain.ErrDenied)
		}
		if revoked {
			return nil, fmt.Errorf("%w: session revoked", domain.ErrDenied)
		}
	}

	sctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	defer cancel()
	u, err := a.users.FindByID(sctx, claims.UID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown session owner", domain.ErrDenied)
		}
		a.log.Warn("credential store unreachable, failing closed",
			zap.Error(fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)))
		return nil, fmt.Errorf("%w: credential store unavailable", domain.ErrDenied)
	}

	if !u.Active {
		return nil, fmt.Errorf("%w: account deactivated", domain.ErrDenied)
	}
	if capability != "" && !u.Role.HasCapability(capability) {
		return nil, fmt.Errorf("%w: missing capability %s", domain.ErrDenied, capability)
	}

	return &Identity{
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke invalidates the session credential ahead of its expiry and is
// the server side of logout.
func (a *Authorizer) Revoke(ctx context.Context, bearer string) (*Identity, error) {
	id, err := a.Authorize(ctx, bearer, "")
	if err != nil {
		return nil, err
	}
	if a.revoked == nil {
		return id, nil
	}
	if err := a.revoked.RevokeSession(ctx, id.TokenID, time.Until(id.ExpiresAt)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return id, nil
}
