package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MeterReading is one dated consumption measurement. Usage normally equals
// CurrentReading - PreviousReading where PreviousReading is the current value of
// the latest earlier-dated reading for the same unit and utility type.
type MeterReading struct {
	ID              snowflake.ID      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	UnitID          snowflake.ID      `json:"unit_id" gorm:"not null;uniqueIndex:ux_meter_readings_key,priority:1"`
	UtilityTypeID   snowflake.ID      `json:"utility_type_id" gorm:"not null;uniqueIndex:ux_meter_readings_key,priority:2"`
	PreviousReading decimal.Decimal   `json:"previous_reading" gorm:"type:numeric(14,3);not null"`
	CurrentReading  decimal.Decimal   `json:"current_reading" gorm:"type:numeric(14,3);not null"`
	Usage           decimal.Decimal   `json:"usage" gorm:"type:numeric(14,3);not null"`
	ReadingDate     time.Time         `json:"reading_date" gorm:"type:date;not null;uniqueIndex:ux_meter_readings_key,priority:3"`
	Metadata        datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time         `json:"updated_at" gorm:"not null"`
}

func (MeterReading) TableName() string { return "meter_readings" }

// Provenance sources recorded in MeterReading.Metadata.
const (
	SourcePayment = "payment"
	SourceManual  = "manual"
)

// MetadataUsageOverride marks a reading whose usage was supplied explicitly.
const MetadataUsageOverride = "usage_override"

// UsageOverridden reports whether usage was supplied by the caller rather than derived.
func (r MeterReading) UsageOverridden() bool {
	flag, _ := r.Metadata[MetadataUsageOverride].(bool)
	return flag
}
