package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reading *MeterReading) error
	Update(ctx context.Context, db *gorm.DB, reading *MeterReading) error

	FindByKey(ctx context.Context, db *gorm.DB, unitID, utilityTypeID snowflake.ID, date time.Time) (*MeterReading, error)
	// FindLatestBefore returns the newest reading dated strictly before date.
	FindLatestBefore(ctx context.Context, db *gorm.DB, unitID, utilityTypeID snowflake.ID, date time.Time) (*MeterReading, error)
	// FindFirstOnOrAfter returns the oldest reading dated on or after date.
	FindFirstOnOrAfter(ctx context.Context, db *gorm.DB, unitID, utilityTypeID snowflake.ID, date time.Time) (*MeterReading, error)
	// FindLatestInRange returns the newest reading with start <= reading_date < end.
	FindLatestInRange(ctx context.Context, db *gorm.DB, unitID, utilityTypeID snowflake.ID, start, end time.Time) (*MeterReading, error)

	ListByDate(ctx context.Context, db *gorm.DB, unitID snowflake.ID, date time.Time) ([]MeterReading, error)
	ListByUnit(ctx context.Context, db *gorm.DB, unitID, utilityTypeID snowflake.ID) ([]MeterReading, error)
	ListTypesInRange(ctx context.Context, db *gorm.DB, unitID snowflake.ID, start, end time.Time) ([]snowflake.ID, error)
	DeleteInRange(ctx context.Context, db *gorm.DB, unitID snowflake.ID, start, end time.Time) (int64, error)
}
