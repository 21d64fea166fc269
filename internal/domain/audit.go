package domain

import (
	"context"
	"time"
)

// AuditAction is the enumerated verb of an audit record.
type AuditAction string

const (
	AuditCreate      AuditAction = "CREATE"
	AuditUpdate      AuditAction = "UPDATE"
	AuditDelete      AuditAction = "DELETE"
	AuditLogin       AuditAction = "LOGIN"
	AuditLoginFailed AuditAction = "LOGIN_FAILED"
	AuditLogout      AuditAction = "LOGOUT"
	AuditReset       AuditAction = "RESET"
)

// AuditRecord is an append-only trail entry. The auto-increment ID breaks
// timestamp ties by insertion order. Ordinary application code never
// mutates or deletes rows; only a full reset clears the table.
type AuditRecord struct {
	ID         uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorID    *string     `gorm:"size:36;index" json:"actorId,omitempty"`
	ActorName  string      `gorm:"size:64" json:"actorName"`
	Action     AuditAction `gorm:"size:16;not null;index" json:"action"`
	TargetType EntityType  `gorm:"size:24;not null;index:idx_audit_target" json:"targetType"`
	TargetID   string      `gorm:"size:36;index:idx_audit_target" json:"targetId"`
	Payload    []byte      `gorm:"type:text" json:"payload,omitempty"`
	IP         string      `gorm:"size:45" json:"ip,omitempty"`
	UserAgent  string      `gorm:"size:255" json:"userAgent,omitempty"`
	CreatedAt  time.Time   `gorm:"index" json:"createdAt"`
}

func (AuditRecord) TableName() string { return "audit_records" }

// AuditFilter narrows audit queries. Zero-value fields are ignored.
type AuditFilter struct {
	ActorID    string
	Action     AuditAction
	TargetType EntityType
	TargetID   string
	From       time.Time
	To         time.Time
	Offset     int
	Limit      int
}

// AuditStore persists audit records. Append must be durable before the
// triggering mutation is acknowledged; InTx yields a store bound to one
// transaction so the append and the mutation commit or roll back together.
type AuditStore interface {
	Append(ctx context.Context, rec *AuditRecord) error
	Search(ctx context.Context, f AuditFilter) ([]AuditRecord, int64, error)
	InTx(ctx context.Context, fn func(tx AuditStore) error) error
}
