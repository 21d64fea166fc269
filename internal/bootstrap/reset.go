// Package bootstrap clears the transactional tables and provisions the
// baseline accounts. It is destructive by design and gated behind the
// RESET_DATABASE capability at every surface that exposes it.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fleet-expense-server/internal/auth"
	"fleet-expense-server/internal/domain"
)

// WipeStore removes every row of each entity type, in order, atomically.
type WipeStore interface {
	WipeAll(ctx context.Context, order []domain.EntityType) error
}

// Account describes one provisioned baseline user.
type Account struct {
	Username string
	FullName string
	Email    string
	Role     domain.Role
}

// Baseline is the fixed account set a reset leaves behind: one ADMIN and
// one AUDITOR, both active, sharing the configured initial password.
var Baseline = []Account{
	{Username: "admin", FullName: "Administrador Sistema", Email: "admin@transporte.ec", Role: domain.RoleAdmin},
	{Username: "auditor", FullName: "Usuario Auditor", Email: "auditor@transporte.ec", Role: domain.RoleAuditor},
}

type Service struct {
	wiper    WipeStore
	users    domain.CredentialStore
	hasher   auth.PasswordHasher
	password string
	log      *zap.Logger
}

func NewService(wiper WipeStore, users domain.CredentialStore, hasher auth.PasswordHasher, baselinePassword string, log *zap.Logger) *Service {
	return &Service{wiper: wiper, users: users, hasher: hasher, password: baselinePassword, log: log}
}

// Reset wipes all audit and transactional data leaves-first along the
// dependency graph, then recreates the baseline accounts with freshly
// hashed passwords. Running it twice yields the same state.
func (s *Service) Reset(ctx context.Context) ([]Account, error) {
	order := domain.WipeOrder()
	if err := s.wiper.WipeAll(ctx, order); err != nil {
		return nil, fmt.Errorf("reset wipe: %w", err)
	}
	s.log.Info("database wiped", zap.Int("tables", len(order)))

	for _, acc := range Baseline {
		digest, err := s.hasher.Hash(s.password)
		if err != nil {
			return nil, fmt.Errorf("reset hash %s: %w", acc.Username, err)
		}
		u := &domain.User{
			Username:     acc.Username,
			FullName:     acc.FullName,
			Email:        acc.Email,
			PasswordHash: digest,
			Role:         acc.Role,
			Active:       true,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("reset provision %s: %w", acc.Username, err)
		}
		s.log.Info("baseline account provisioned",
			zap.String("username", acc.Username),
			zap.String("role", string(acc.Role)),
		)
	}
	return Baseline, nil
}
