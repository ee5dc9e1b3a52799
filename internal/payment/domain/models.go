package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Payment is a remittance against a lease. PeriodKey is the YYYY-MM of
// PaymentDate and backs the one-payment-per-lease-month index.
type Payment struct {
	ID          snowflake.ID    `gorm:"primaryKey;autoIncrement:false"`
	LeaseID     snowflake.ID    `gorm:"not null;uniqueIndex:ux_payments_lease_period,priority:1"`
	PaymentDate time.Time       `gorm:"type:date;not null"`
	PeriodKey   string          `gorm:"type:varchar(7);not null;uniqueIndex:ux_payments_lease_period,priority:2"`
	AmountPaid  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Method      string          `gorm:"type:varchar(50)"`
	ReceiptURL  string          `gorm:"type:text"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }
