package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"fleet-expense-server/internal/domain"
)

// WipeRepo clears whole tables for the bootstrap reset. It is the only
// code path allowed to delete audit records.
type WipeRepo struct{ db *gorm.DB }

func NewWipeRepo(db *gorm.DB) *WipeRepo { return &WipeRepo{db: db} }

// WipeAll deletes every row of every listed entity type, in the order
// given, inside one transaction.
func (r *WipeRepo) WipeAll(ctx context.Context, order []domain.EntityType) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range order {
			model := domain.ModelFor(t)
			if model == nil {
				return fmt.Errorf("wipe: no model for entity type %q", t)
			}
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("wipe %s: %w", t, err)
			}
		}
		return nil
	})
}
