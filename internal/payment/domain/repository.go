package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	Update(ctx context.Context, db *gorm.DB, payment *Payment) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	// FindByLeaseAndPeriod returns the lease's payment for periodKey, ignoring excludeID.
	FindByLeaseAndPeriod(ctx context.Context, db *gorm.DB, leaseID snowflake.ID, periodKey string, excludeID snowflake.ID) (*Payment, error)
	// ListByOwner lists payments on leases of the owner's properties, newest first.
	ListByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]Payment, error)
}
