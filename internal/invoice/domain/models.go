package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	StatusPaid   = "paid"
	StatusUnpaid = "unpaid"
)

// Invoice is the monthly bill of a lease. Month holds the first day of the
// billed month; PeriodKey is its YYYY-MM and backs the one-invoice-per-lease-month index.
type Invoice struct {
	ID        snowflake.ID    `gorm:"primaryKey;autoIncrement:false"`
	LeaseID   snowflake.ID    `gorm:"not null;uniqueIndex:ux_invoices_lease_period,priority:1"`
	Month     time.Time       `gorm:"type:date;not null"`
	PeriodKey string          `gorm:"type:varchar(7);not null;uniqueIndex:ux_invoices_lease_period,priority:2"`
	Rent      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Utility   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Total     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Status    string          `gorm:"type:varchar(10);not null"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

func (Invoice) TableName() string { return "invoices" }

func ValidStatus(status string) bool {
	return status == StatusPaid || status == StatusUnpaid
}
