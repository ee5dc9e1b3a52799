package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Well-known lease statuses. Any non-empty status is accepted.
const (
	StatusActive     = "active"
	StatusPending    = "pending"
	StatusTerminated = "terminated"
	StatusExpired    = "expired"
)

// NormalizeStatus lower-cases and trims a caller-supplied status.
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// OccupiesUnit reports whether a lease in status keeps its unit unavailable.
func OccupiesUnit(status string) bool {
	switch NormalizeStatus(status) {
	case StatusActive, StatusPending:
		return true
	default:
		return false
	}
}

type Lease struct {
	ID            snowflake.ID        `gorm:"primaryKey;autoIncrement:false"`
	UnitID        snowflake.ID        `gorm:"not null;index"`
	RenterID      snowflake.ID        `gorm:"not null;index"`
	StartDate     time.Time           `gorm:"type:date;not null"`
	EndDate       time.Time           `gorm:"type:date;not null"`
	RentAmount    decimal.Decimal     `gorm:"type:numeric(12,2);not null"`
	DepositAmount decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	Status        string              `gorm:"type:varchar(20);not null"`
	CreatedAt     time.Time           `gorm:"not null"`
	UpdatedAt     time.Time           `gorm:"not null"`
}

func (Lease) TableName() string { return "leases" }

func (l Lease) IsActive() bool {
	return NormalizeStatus(l.Status) == StatusActive
}
