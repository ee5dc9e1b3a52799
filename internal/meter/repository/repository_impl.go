package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	meterdomain "github.com/smallbiznis/leasehold/internal/meter/domain"
	"gorm.io/gorm"
)

const readingColumns = `id, unit_id, utility_type_id, previous_reading, current_reading, usage, reading_date, metadata, created_at, updated_at`

type repo struct{}

func Provide() meterdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, m *meterdomain.MeterReading) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO meter_readings (`+readingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.UnitID,
		m.UtilityTypeID,
		m.PreviousReading,
		m.CurrentReading,
		m.Usage,
		m.ReadingDate,
		m.Metadata,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, m *meterdomain.MeterReading) error {
	return db.WithContext(ctx).Exec(
		`UPDATE meter_readings
		 SET previous_reading = ?, current_reading = ?, usage = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		m.PreviousReading,
		m.CurrentReading,
		m.Usage,
		m.Metadata,
		m.UpdatedAt,
		m.ID,
	).Error
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, unitID, utilityTypeID snowflake.ID, date time.Time) (*meterdomain.MeterReading, error) {
	return r.findOne(ctx, db,
		`SELECT `+readingColumns+` FROM meter_readings
		 WHERE unit_id = ? AND utility_type_id = ? AND reading_date = ?`,
		unitID, utilityTypeID, date,
	)
}

func (r *repo) FindLatestBefore(ctx context.Context, db *gorm.DB, unitID, utilityTypeID snowflake.ID, date time.Time) (*meterdomain.MeterReading, error) {
	return r.findOne(ctx, db,
		`SELECT `+readingColumns+` FROM meter_readings
		 WHERE unit_id = ? AND utility_type_id = ? AND reading_date < ?
		 ORDER BY reading_date DESC
		 LIMIT 1`,
		unitID, utilityTypeID, date,
	)
}

func (r *repo) FindFirstOnOrAfter(ctx context.Context, db *gorm.DB, unitID, utilityTypeID snowflake.ID, date time.Time) (*meterdomain.MeterReading, error) {
	return r.findOne(ctx, db,
		`SELECT `+readingColumns+` FROM meter_readings
		 WHERE unit_id = ? AND utility_type_id = ? AND reading_date >= ?
		 ORDER BY reading_date ASC
		 LIMIT 1`,
		unitID, utilityTypeID, date,
	)
}

func (r *repo) FindLatestInRange(ctx context.Context, db *gorm.DB, unitID, utilityTypeID snowflake.ID, start, end time.Time) (*meterdomain.MeterReading, error) {
	return r.findOne(ctx, db,
		`SELECT `+readingColumns+` FROM meter_readings
		 WHERE unit_id = ? AND utility_type_id = ? AND reading_date >= ? AND reading_date < ?
		 ORDER BY reading_date DESC
		 LIMIT 1`,
		unitID, utilityTypeID, start, end,
	)
}

func (r *repo) ListByDate(ctx context.Context, db *gorm.DB, unitID snowflake.ID, date time.Time) ([]meterdomain.MeterReading, error) {
	var items []meterdomain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+` FROM meter_readings
		 WHERE unit_id = ? AND reading_date = ?
		 ORDER BY utility_type_id ASC`,
		unitID, date,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListByUnit(ctx context.Context, db *gorm.DB, unitID, utilityTypeID snowflake.ID) ([]meterdomain.MeterReading, error) {
	query := `SELECT ` + readingColumns + ` FROM meter_readings WHERE unit_id = ?`
	args := []any{unitID}
	if utilityTypeID != 0 {
		query += ` AND utility_type_id = ?`
		args = append(args, utilityTypeID)
	}
	query += ` ORDER BY reading_date ASC, utility_type_id ASC`

	var items []meterdomain.MeterReading
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListTypesInRange(ctx context.Context, db *gorm.DB, unitID snowflake.ID, start, end time.Time) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT utility_type_id FROM meter_readings
		 WHERE unit_id = ? AND reading_date >= ? AND reading_date < ?`,
		unitID, start, end,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) DeleteInRange(ctx context.Context, db *gorm.DB, unitID snowflake.ID, start, end time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM meter_readings
		 WHERE unit_id = ? AND reading_date >= ? AND reading_date < ?`,
		unitID, start, end,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*meterdomain.MeterReading, error) {
	var m meterdomain.MeterReading
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&m).Error; err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}
