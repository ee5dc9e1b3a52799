package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	// FindByLeaseAndPeriod returns the lease's invoice for periodKey, ignoring excludeID.
	FindByLeaseAndPeriod(ctx context.Context, db *gorm.DB, leaseID snowflake.ID, periodKey string, excludeID snowflake.ID) (*Invoice, error)
	// ListVisibleTo lists invoices of leases on the user's properties plus those
	// of the user's own active leases, newest month first.
	ListVisibleTo(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Invoice, error)
}
