package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	propertydomain "github.com/smallbiznis/leasehold/internal/property/domain"
	"github.com/smallbiznis/leasehold/pkg/db/option"
	"github.com/smallbiznis/leasehold/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() propertydomain.Repository {
	return &repo{}
}

func (r *repo) InsertProperty(ctx context.Context, db *gorm.DB, property *propertydomain.Property) error {
	return repository.ProvideStore[propertydomain.Property](db).Create(ctx, property)
}

func (r *repo) InsertUnit(ctx context.Context, db *gorm.DB, unit *propertydomain.Unit) error {
	return repository.ProvideStore[propertydomain.Unit](db).Create(ctx, unit)
}

func (r *repo) FindProperty(ctx context.Context, db *gorm.DB, id snowflake.ID) (*propertydomain.Property, error) {
	return repository.ProvideStore[propertydomain.Property](db).FindByID(ctx, id)
}

func (r *repo) FindUnit(ctx context.Context, db *gorm.DB, id snowflake.ID) (*propertydomain.Unit, error) {
	return repository.ProvideStore[propertydomain.Unit](db).FindByID(ctx, id)
}

func (r *repo) LockUnit(ctx context.Context, db *gorm.DB, id snowflake.ID) (*propertydomain.Unit, error) {
	return repository.ProvideStore[propertydomain.Unit](db).FindByID(ctx, id, option.WithForUpdate())
}

func (r *repo) SetUnitAvailability(ctx context.Context, db *gorm.DB, unitID snowflake.ID, available bool, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE units SET is_available = ?, updated_at = ? WHERE id = ?`,
		available,
		at,
		unitID,
	).Error
}

func (r *repo) OwnerOfUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) (snowflake.ID, error) {
	var row struct {
		OwnerID snowflake.ID
	}
	err := db.WithContext(ctx).Raw(
		`SELECT p.owner_id
		 FROM units u
		 JOIN properties p ON p.id = u.property_id
		 WHERE u.id = ?`,
		unitID,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.OwnerID, nil
}
