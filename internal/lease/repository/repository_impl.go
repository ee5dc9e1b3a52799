package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	leasedomain "github.com/smallbiznis/leasehold/internal/lease/domain"
	"github.com/smallbiznis/leasehold/pkg/db/option"
	"github.com/smallbiznis/leasehold/pkg/repository"
	"gorm.io/gorm"
)

const leaseColumns = `id, unit_id, renter_id, start_date, end_date, rent_amount, deposit_amount, status, created_at, updated_at`

type repo struct{}

func Provide() leasedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, l *leasedomain.Lease) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO leases (`+leaseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID,
		l.UnitID,
		l.RenterID,
		l.StartDate,
		l.EndDate,
		l.RentAmount,
		l.DepositAmount,
		l.Status,
		l.CreatedAt,
		l.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, l *leasedomain.Lease) error {
	return db.WithContext(ctx).Exec(
		`UPDATE leases
		 SET unit_id = ?, renter_id = ?, start_date = ?, end_date = ?, rent_amount = ?,
		     deposit_amount = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		l.UnitID,
		l.RenterID,
		l.StartDate,
		l.EndDate,
		l.RentAmount,
		l.DepositAmount,
		l.Status,
		l.UpdatedAt,
		l.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM leases WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*leasedomain.Lease, error) {
	return repository.ProvideStore[leasedomain.Lease](db).FindByID(ctx, id)
}

func (r *repo) LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*leasedomain.Lease, error) {
	return repository.ProvideStore[leasedomain.Lease](db).FindByID(ctx, id, option.WithForUpdate())
}

func (r *repo) FindOccupying(ctx context.Context, db *gorm.DB, unitID, excludeID snowflake.ID) (*leasedomain.Lease, error) {
	var l leasedomain.Lease
	err := db.WithContext(ctx).Raw(
		`SELECT `+leaseColumns+` FROM leases
		 WHERE unit_id = ? AND id <> ? AND status IN (?, ?)
		 ORDER BY created_at ASC
		 LIMIT 1`,
		unitID,
		excludeID,
		leasedomain.StatusActive,
		leasedomain.StatusPending,
	).Scan(&l).Error
	if err != nil {
		return nil, err
	}
	if l.ID == 0 {
		return nil, nil
	}
	return &l, nil
}

func (r *repo) ListByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, status string) ([]leasedomain.Lease, error) {
	query := `SELECT l.id, l.unit_id, l.renter_id, l.start_date, l.end_date, l.rent_amount,
		        l.deposit_amount, l.status, l.created_at, l.updated_at
		 FROM leases l
		 JOIN units u ON u.id = l.unit_id
		 JOIN properties p ON p.id = u.property_id
		 WHERE p.owner_id = ?`
	args := []any{ownerID}
	if status != "" {
		query += ` AND l.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY l.start_date DESC, l.id DESC`

	var items []leasedomain.Lease
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountBillingRecords(ctx context.Context, db *gorm.DB, leaseID snowflake.ID) (int64, error) {
	var row struct {
		Invoices int64
		Payments int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT
		   (SELECT COUNT(*) FROM invoices WHERE lease_id = ?) AS invoices,
		   (SELECT COUNT(*) FROM payments WHERE lease_id = ?) AS payments`,
		leaseID,
		leaseID,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Invoices + row.Payments, nil
}
