package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/leasehold/internal/invoice/domain"
	leasedomain "github.com/smallbiznis/leasehold/internal/lease/domain"
	"github.com/smallbiznis/leasehold/pkg/db/option"
	"github.com/smallbiznis/leasehold/pkg/repository"
	"gorm.io/gorm"
)

const invoiceColumns = `id, lease_id, month, period_key, rent, utility, total, status, created_at, updated_at`

type repo struct{}

func Provide() invoicedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, inv *invoicedomain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (`+invoiceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		inv.LeaseID,
		inv.Month,
		inv.PeriodKey,
		inv.Rent,
		inv.Utility,
		inv.Total,
		inv.Status,
		inv.CreatedAt,
		inv.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, inv *invoicedomain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET lease_id = ?, month = ?, period_key = ?, rent = ?, utility = ?, total = ?,
		     status = ?, updated_at = ?
		 WHERE id = ?`,
		inv.LeaseID,
		inv.Month,
		inv.PeriodKey,
		inv.Rent,
		inv.Utility,
		inv.Total,
		inv.Status,
		inv.UpdatedAt,
		inv.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM invoices WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	return repository.ProvideStore[invoicedomain.Invoice](db).FindByID(ctx, id)
}

func (r *repo) LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	return repository.ProvideStore[invoicedomain.Invoice](db).FindByID(ctx, id, option.WithForUpdate())
}

func (r *repo) FindByLeaseAndPeriod(ctx context.Context, db *gorm.DB, leaseID snowflake.ID, periodKey string, excludeID snowflake.ID) (*invoicedomain.Invoice, error) {
	var inv invoicedomain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE lease_id = ? AND period_key = ? AND id <> ?
		 LIMIT 1`,
		leaseID,
		periodKey,
		excludeID,
	).Scan(&inv).Error
	if err != nil {
		return nil, err
	}
	if inv.ID == 0 {
		return nil, nil
	}
	return &inv, nil
}

func (r *repo) ListVisibleTo(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]invoicedomain.Invoice, error) {
	var items []invoicedomain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT i.id, i.lease_id, i.month, i.period_key, i.rent, i.utility, i.total, i.status,
		        i.created_at, i.updated_at
		 FROM invoices i
		 JOIN leases l ON l.id = i.lease_id
		 JOIN units u ON u.id = l.unit_id
		 JOIN properties p ON p.id = u.property_id
		 LEFT JOIN renters r ON r.id = l.renter_id
		 WHERE p.owner_id = ? OR (r.user_id = ? AND l.status = ?)
		 ORDER BY i.month DESC, i.id DESC`,
		userID,
		userID,
		leasedomain.StatusActive,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
