package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leasehold/internal/apperror"
	"github.com/smallbiznis/leasehold/internal/billingperiod"
	"gorm.io/gorm"
)

// Service is the meter reading ledger. Methods taking a *gorm.DB run inside
// the caller's transaction and never commit on their own.
type Service interface {
	UpsertReading(ctx context.Context, tx *gorm.DB, req UpsertReadingRequest) (*MeterReading, error)
	DeleteReadingsInPeriod(ctx context.Context, tx *gorm.DB, unitID snowflake.ID, period billingperiod.Period) (int64, error)
	ListReadingsOnDate(ctx context.Context, db *gorm.DB, unitID snowflake.ID, date time.Time) ([]MeterReading, error)
	ListReadings(ctx context.Context, req ListRequest) ([]MeterReading, error)
}

type UpsertReadingRequest struct {
	UnitID        snowflake.ID
	UtilityTypeID snowflake.ID
	// UtilityKind labels metrics and logs only.
	UtilityKind  string
	CurrentValue decimal.Decimal
	ReadingDate  time.Time
	// Usage, when set, is stored as-is instead of CurrentValue - previous.
	Usage     *decimal.Decimal
	Source    string
	SourceRef string
}

type ListRequest struct {
	UnitID        snowflake.ID
	UtilityTypeID snowflake.ID
}

var (
	ErrInvalidReading = apperror.BadRequest("invalid_meter_reading")
	ErrNegativeUsage  = apperror.BadRequest("negative_usage")
	ErrInvalidUnitID  = apperror.BadRequest("invalid_unit_id")
)
