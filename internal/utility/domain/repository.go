package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertType(ctx context.Context, db *gorm.DB, utilityType *UtilityType) error
	FindTypeByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*UtilityType, error)
	FindTypeByCode(ctx context.Context, db *gorm.DB, code UtilityKind) (*UtilityType, error)
	ListTypes(ctx context.Context, db *gorm.DB) ([]UtilityType, error)

	Insert(ctx context.Context, db *gorm.DB, unitUtility *UnitUtility) error
	Update(ctx context.Context, db *gorm.DB, unitUtility *UnitUtility) error
	FindByUnitAndType(ctx context.Context, db *gorm.DB, unitID, utilityTypeID snowflake.ID) (*UnitUtility, error)
	ListByUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) ([]UnitUtility, error)
	// DeleteByUnitExcept removes the unit's rows whose utility type is not in keep.
	DeleteByUnitExcept(ctx context.Context, db *gorm.DB, unitID snowflake.ID, keep []snowflake.ID) (int64, error)
}
