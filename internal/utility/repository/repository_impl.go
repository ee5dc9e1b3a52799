package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	utilitydomain "github.com/smallbiznis/leasehold/internal/utility/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() utilitydomain.Repository {
	return &repo{}
}

func (r *repo) InsertType(ctx context.Context, db *gorm.DB, t *utilitydomain.UtilityType) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO utility_types (id, code, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID,
		t.Code,
		t.Name,
		t.CreatedAt,
		t.UpdatedAt,
	).Error
}

func (r *repo) FindTypeByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*utilitydomain.UtilityType, error) {
	var t utilitydomain.UtilityType
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, created_at, updated_at
		 FROM utility_types WHERE id = ?`,
		id,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) FindTypeByCode(ctx context.Context, db *gorm.DB, code utilitydomain.UtilityKind) (*utilitydomain.UtilityType, error) {
	var t utilitydomain.UtilityType
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, created_at, updated_at
		 FROM utility_types WHERE code = ?`,
		code,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) ListTypes(ctx context.Context, db *gorm.DB) ([]utilitydomain.UtilityType, error) {
	var items []utilitydomain.UtilityType
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, created_at, updated_at
		 FROM utility_types ORDER BY id ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, u *utilitydomain.UnitUtility) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO unit_utilities (id, unit_id, utility_type_id, billing_type, fixed_rate, unit_rate, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.UnitID,
		u.UtilityTypeID,
		u.BillingType,
		u.FixedRate,
		u.UnitRate,
		u.CreatedAt,
		u.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, u *utilitydomain.UnitUtility) error {
	return db.WithContext(ctx).Exec(
		`UPDATE unit_utilities
		 SET billing_type = ?, fixed_rate = ?, unit_rate = ?, updated_at = ?
		 WHERE id = ?`,
		u.BillingType,
		u.FixedRate,
		u.UnitRate,
		u.UpdatedAt,
		u.ID,
	).Error
}

func (r *repo) FindByUnitAndType(ctx context.Context, db *gorm.DB, unitID, utilityTypeID snowflake.ID) (*utilitydomain.UnitUtility, error) {
	var u utilitydomain.UnitUtility
	err := db.WithContext(ctx).Raw(
		`SELECT id, unit_id, utility_type_id, billing_type, fixed_rate, unit_rate, created_at, updated_at
		 FROM unit_utilities WHERE unit_id = ? AND utility_type_id = ?`,
		unitID,
		utilityTypeID,
	).Scan(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, nil
	}
	return &u, nil
}

func (r *repo) ListByUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) ([]utilitydomain.UnitUtility, error) {
	var items []utilitydomain.UnitUtility
	err := db.WithContext(ctx).Raw(
		`SELECT id, unit_id, utility_type_id, billing_type, fixed_rate, unit_rate, created_at, updated_at
		 FROM unit_utilities WHERE unit_id = ?
		 ORDER BY utility_type_id ASC`,
		unitID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeleteByUnitExcept(ctx context.Context, db *gorm.DB, unitID snowflake.ID, keep []snowflake.ID) (int64, error) {
	var result *gorm.DB
	if len(keep) == 0 {
		result = db.WithContext(ctx).Exec(`DELETE FROM unit_utilities WHERE unit_id = ?`, unitID)
	} else {
		result = db.WithContext(ctx).Exec(
			`DELETE FROM unit_utilities WHERE unit_id = ? AND utility_type_id NOT IN ?`,
			unitID,
			keep,
		)
	}
	return result.RowsAffected, result.Error
}
