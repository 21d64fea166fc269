package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleAuditor Role = "AUDITOR"
)

type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	FullName     string    `gorm:"size:128" json:"fullName"`
	Email        string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	Role         Role      `gorm:"size:16;not null" json:"role"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// CredentialStore owns user records. Username and email lookups are
// case-insensitive; the store normalizes both to lowercase on write.
// The store emits no audit records: callers do, once the outcome is known.
type CredentialStore interface {
	// Create fails with ErrDuplicateIdentity when username or email is taken.
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]User, int64, error)
	SetActive(ctx context.Context, id string, active bool) error
	UpdateRole(ctx context.Context, id string, role Role) error
}
