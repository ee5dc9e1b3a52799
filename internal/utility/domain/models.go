package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// UtilityKind is the stable code of a utility type, resolved through the catalog.
type UtilityKind string

const (
	KindElectricity UtilityKind = "electricity"
	KindWater       UtilityKind = "water"
)

type BillingType string

const (
	BillingTypeFixed   BillingType = "fixed"
	BillingTypePerUnit BillingType = "per_unit"
)

// ParseBillingType normalizes raw and reports whether it is a known billing type.
func ParseBillingType(raw string) (BillingType, bool) {
	switch bt := BillingType(strings.ToLower(strings.TrimSpace(raw))); bt {
	case BillingTypeFixed, BillingTypePerUnit:
		return bt, true
	default:
		return "", false
	}
}

type UtilityType struct {
	ID        snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Code      UtilityKind  `gorm:"type:varchar(100);not null;uniqueIndex" json:"code"`
	Name      string       `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (UtilityType) TableName() string { return "utility_types" }

// UnitUtility is a unit's billing rule for one utility type.
// FixedRate is set iff BillingType is fixed, UnitRate iff per_unit.
type UnitUtility struct {
	ID            snowflake.ID        `gorm:"primaryKey;autoIncrement:false"`
	UnitID        snowflake.ID        `gorm:"not null;uniqueIndex:ux_unit_utilities_unit_type,priority:1"`
	UtilityTypeID snowflake.ID        `gorm:"not null;uniqueIndex:ux_unit_utilities_unit_type,priority:2"`
	BillingType   BillingType         `gorm:"type:varchar(20);not null"`
	FixedRate     decimal.NullDecimal `gorm:"type:numeric(12,4)"`
	UnitRate      decimal.NullDecimal `gorm:"type:numeric(12,4)"`
	CreatedAt     time.Time           `gorm:"not null"`
	UpdatedAt     time.Time           `gorm:"not null"`
}

func (UnitUtility) TableName() string { return "unit_utilities" }

// ApplyRate sets the rate column matching billingType and clears the other.
func (u *UnitUtility) ApplyRate(billingType BillingType, amount decimal.Decimal) {
	u.BillingType = billingType
	switch billingType {
	case BillingTypeFixed:
		u.FixedRate = decimal.NewNullDecimal(amount)
		u.UnitRate = decimal.NullDecimal{}
	case BillingTypePerUnit:
		u.UnitRate = decimal.NewNullDecimal(amount)
		u.FixedRate = decimal.NullDecimal{}
	}
}
