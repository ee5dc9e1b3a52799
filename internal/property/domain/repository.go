package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository returns value copies; a nil result with nil error means not found.
type Repository interface {
	InsertProperty(ctx context.Context, db *gorm.DB, property *Property) error
	InsertUnit(ctx context.Context, db *gorm.DB, unit *Unit) error
	FindProperty(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Property, error)
	FindUnit(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Unit, error)
	// LockUnit reads the unit and holds a row lock until the transaction ends.
	LockUnit(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Unit, error)
	SetUnitAvailability(ctx context.Context, db *gorm.DB, unitID snowflake.ID, available bool, at time.Time) error
	// OwnerOfUnit resolves the owner id through the unit's property, 0 when either is missing.
	OwnerOfUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) (snowflake.ID, error)
}
