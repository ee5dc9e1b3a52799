package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, lease *Lease) error
	Update(ctx context.Context, db *gorm.DB, lease *Lease) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Lease, error)
	// LockByID reads the lease and holds its row lock until the transaction ends.
	LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Lease, error)
	// FindOccupying returns an active or pending lease on the unit other than excludeID.
	FindOccupying(ctx context.Context, db *gorm.DB, unitID, excludeID snowflake.ID) (*Lease, error)
	// ListByOwner lists leases on the owner's properties, optionally filtered by status.
	ListByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, status string) ([]Lease, error)
	// CountBillingRecords counts invoices and payments that reference the lease.
	CountBillingRecords(ctx context.Context, db *gorm.DB, leaseID snowflake.ID) (int64, error)
}
