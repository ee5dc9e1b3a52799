package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	utilitydomain "github.com/smallbiznis/leasehold/internal/utility/domain"
	"gorm.io/gorm"
)

// Built-in utility types keep the identifiers existing meter data was recorded with.
var builtinUtilityTypes = []utilitydomain.UtilityType{
	{ID: snowflake.ID(1), Code: utilitydomain.KindElectricity, Name: "Electricity"},
	{ID: snowflake.ID(2), Code: utilitydomain.KindWater, Name: "Water"},
}

// EnsureUtilityTypes seeds the built-in utility types. It is safe to run on every start.
func EnsureUtilityTypes(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, builtin := range builtinUtilityTypes {
			var existing utilitydomain.UtilityType
			err := tx.WithContext(ctx).Where("code = ?", builtin.Code).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			now := time.Now().UTC()
			item := builtin
			item.CreatedAt = now
			item.UpdatedAt = now
			if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
