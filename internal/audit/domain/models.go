package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog records one billing mutation and the caller that made it.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ActorID    *string           `gorm:"type:varchar(32);index" json:"actor_id,omitempty"`
	Action     string            `gorm:"type:varchar(100);not null;index" json:"action"`
	TargetType string            `gorm:"type:varchar(50);not null" json:"target_type"`
	TargetID   *string           `gorm:"type:varchar(32)" json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	IPAddress  *string           `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent  *string           `gorm:"type:text" json:"user_agent,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
