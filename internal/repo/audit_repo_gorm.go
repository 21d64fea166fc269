package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"fleet-expense-server/internal/domain"
)

// AuditRepo appends and queries audit records. There is deliberately no
// update or delete path: the table is append-only for application code.
type AuditRepo struct{ db *gorm.DB }

func NewAuditRepo(db *gorm.DB) *AuditRepo { return &AuditRepo{db: db} }

var _ domain.AuditStore = (*AuditRepo)(nil)

// Tx exposes the underlying handle so a mutation can share the
// transaction its audit record is written in.
func (r *AuditRepo) Tx() *gorm.DB { return r.db }

func (r *AuditRepo) Append(ctx context.Context, rec *domain.AuditRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *AuditRepo) Search(ctx context.Context, f domain.AuditFilter) ([]domain.AuditRecord, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.AuditRecord{})
	if f.ActorID != "" {
		q = q.Where("actor_id = ?", f.ActorID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.TargetType != "" {
		q = q.Where("target_type = ?", f.TargetType)
	}
	if f.TargetID != "" {
		q = q.Where("target_id = ?", f.TargetID)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var recs []domain.AuditRecord
	// Timestamp order with the insertion sequence breaking ties.
	if err := q.Order("created_at desc, id desc").Offset(f.Offset).Limit(limit).Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

func (r *AuditRepo) InTx(ctx context.Context, fn func(tx domain.AuditStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&AuditRepo{db: tx})
	})
}
