package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog is an append-only record of settings changes and manual cache
// refreshes. Rows are never updated or deleted.
type AuditLog struct {
	ID     string `gorm:"type:uuid;primaryKey"`
	Actor  string `gorm:"type:varchar(120);not null;index"`
	Action string `gorm:"type:varchar(80);not null;index"`

	Detail datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
