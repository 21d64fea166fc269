// Package audit centralizes trail writing. Mutations must not be
// acknowledged unless their audit record is durable; login events are
// written synchronously but an audit outage does not block the verdict.
package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fleet-expense-server/internal/domain"
)

type Recorder struct {
	store domain.AuditStore
	log   *zap.Logger
}

func NewRecorder(store domain.AuditStore, log *zap.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Record durably appends one audit record. A storage failure surfaces as
// ErrAuditUnavailable so the caller aborts whatever the record describes.
func (r *Recorder) Record(ctx context.Context, rec *domain.AuditRecord) (*domain.AuditRecord, error) {
	stamp(rec)
	if err := r.store.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuditUnavailable, err)
	}
	return rec, nil
}

// LoginAttempt appends a LOGIN or LOGIN_FAILED record. Eventual
// durability is acceptable for login events, so an audit outage is
// logged loudly instead of failing the attempt.
func (r *Recorder) LoginAttempt(ctx context.Context, rec *domain.AuditRecord) {
	stamp(rec)
	if err := r.store.Append(ctx, rec); err != nil {
		r.log.Error("audit login attempt write failed",
			zap.String("actor", rec.ActorName),
			zap.String("action", string(rec.Action)),
			zap.Error(err),
		)
	}
}

// Mutate runs effect and appends the record built from its outcome inside
// one transaction: if the audit write cannot be made durable, the whole
// mutation rolls back and the caller sees ErrAuditUnavailable.
func (r *Recorder) Mutate(ctx context.Context, effect func(ctx context.Context, tx domain.AuditStore) error, build func() *domain.AuditRecord) error {
	return r.store.InTx(ctx, func(tx domain.AuditStore) error {
		if err := effect(ctx, tx); err != nil {
			return err
		}
		rec := build()
		stamp(rec)
		if err := tx.Append(ctx, rec); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrAuditUnavailable, err)
		}
		return nil
	})
}

func (r *Recorder) Search(ctx context.Context, f domain.AuditFilter) ([]domain.AuditRecord, int64, error) {
	return r.store.Search(ctx, f)
}

func stamp(rec *domain.AuditRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
}
