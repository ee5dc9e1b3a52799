package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Property is a landlord-owned building or lot.
type Property struct {
	ID        snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	OwnerID   snowflake.ID `gorm:"not null;index"`
	Name      string       `gorm:"type:varchar(150);not null"`
	Address   string       `gorm:"type:text;not null"`
	City      string       `gorm:"type:varchar(100);not null"`
	CreatedAt time.Time    `gorm:"not null"`
	UpdatedAt time.Time    `gorm:"not null"`
}

func (Property) TableName() string { return "properties" }

// Unit is a rentable sub-division of a Property. IsAvailable is derived from its leases.
type Unit struct {
	ID          snowflake.ID        `gorm:"primaryKey;autoIncrement:false"`
	PropertyID  snowflake.ID        `gorm:"not null;index"`
	UnitNumber  string              `gorm:"type:varchar(50);not null"`
	Floor       *int                `gorm:"type:integer"`
	RentPrice   decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	IsAvailable bool                `gorm:"not null"`
	CreatedAt   time.Time           `gorm:"not null"`
	UpdatedAt   time.Time           `gorm:"not null"`
}

func (Unit) TableName() string { return "units" }
