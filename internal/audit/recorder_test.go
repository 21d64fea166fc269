package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"fleet-expense-server/internal/domain"
)

// txTrail is an in-memory audit store whose InTx takes a snapshot and
// restores it when fn fails, mimicking a database rollback.
type txTrail struct {
	mu         sync.Mutex
	recs       []domain.AuditRecord
	appendErr  error
	inTxErr    error
	committed  int
	rolledBack int
}

func (m *txTrail) Append(_ context.Context, rec *domain.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.recs = append(m.recs, *rec)
	return nil
}

func (m *txTrail) Search(_ context.Context, _ domain.AuditFilter) ([]domain.AuditRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.AuditRecord(nil), m.recs...)
	return out, int64(len(out)), nil
}

func (m *txTrail) InTx(_ context.Context, fn func(tx domain.AuditStore) error) error {
	if m.inTxErr != nil {
		return m.inTxErr
	}
	m.mu.Lock()
	snapshot := append([]domain.AuditRecord(nil), m.recs...)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.recs = snapshot
		m.rolledBack++
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.committed++
	m.mu.Unlock()
	return nil
}

func (m *txTrail) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

func TestRecordStampsAndAppends(t *testing.T) {
	trail := &txTrail{}
	r := NewRecorder(trail, zap.NewNop())

	rec, err := r.Record(context.Background(), &domain.AuditRecord{
		Action:     domain.AuditReset,
		TargetType: domain.EntityDatabase,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("CreatedAt not stamped")
	}
	if trail.count() != 1 {
		t.Fatalf("records = %d, want 1", trail.count())
	}
}

func TestRecordSurfacesAuditOutage(t *testing.T) {
	trail := &txTrail{appendErr: errors.New("disk full")}
	r := NewRecorder(trail, zap.NewNop())

	_, err := r.Record(context.Background(), &domain.AuditRecord{Action: domain.AuditCreate})
	if !errors.Is(err, domain.ErrAuditUnavailable) {
		t.Fatalf("want ErrAuditUnavailable, got %v", err)
	}
}

func TestLoginAttemptSwallowsAuditOutage(t *testing.T) {
	trail := &txTrail{appendErr: errors.New("disk full")}
	r := NewRecorder(trail, zap.NewNop())

	// Must not panic or block; the verdict does not depend on the trail.
	r.LoginAttempt(context.Background(), &domain.AuditRecord{Action: domain.AuditLoginFailed})
}

func TestMutateCommitsEffectAndRecordTogether(t *testing.T) {
	trail := &txTrail{}
	r := NewRecorder(trail, zap.NewNop())

	effectRan := false
	err := r.Mutate(context.Background(),
		func(_ context.Context, _ domain.AuditStore) error {
			effectRan = true
			return nil
		},
		func() *domain.AuditRecord {
			return &domain.AuditRecord{Action: domain.AuditCreate, TargetType: domain.EntityVehicle}
		})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if !effectRan {
		t.Fatal("effect did not run")
	}
	if trail.count() != 1 || trail.committed != 1 {
		t.Fatalf("records=%d committed=%d", trail.count(), trail.committed)
	}
}

func TestMutateRollsBackWhenAuditWriteFails(t *testing.T) {
	trail := &txTrail{}
	r := NewRecorder(trail, zap.NewNop())

	// The effect's own write lands in the trail store here so the
	// rollback is observable.
	err := r.Mutate(context.Background(),
		func(ctx context.Context, tx domain.AuditStore) error {
			if e := tx.Append(ctx, &domain.AuditRecord{Action: domain.AuditUpdate}); e != nil {
				return e
			}
			trail.appendErr = errors.New("disk full") // next append is the trail write
			return nil
		},
		func() *domain.AuditRecord {
			return &domain.AuditRecord{Action: domain.AuditCreate}
		})
	if !errors.Is(err, domain.ErrAuditUnavailable) {
		t.Fatalf("want ErrAuditUnavailable, got %v", err)
	}
	if trail.count() != 0 {
		t.Fatalf("effect survived a failed audit write: %d records", trail.count())
	}
	if trail.rolledBack != 1 {
		t.Fatalf("rolledBack = %d, want 1", trail.rolledBack)
	}
}

func TestMutateEffectErrorWritesNothing(t *testing.T) {
	trail := &txTrail{}
	r := NewRecorder(trail, zap.NewNop())

	boom := errors.New("boom")
	err := r.Mutate(context.Background(),
		func(_ context.Context, _ domain.AuditStore) error { return boom },
		func() *domain.AuditRecord { t.Fatal("build must not run after a failed effect"); return nil })
	if !errors.Is(err, boom) {
		t.Fatalf("want effect error, got %v", err)
	}
	if trail.count() != 0 {
		t.Fatal("failed mutation left audit records behind")
	}
}
