package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/leasehold/internal/payment/domain"
	"github.com/smallbiznis/leasehold/pkg/db/option"
	"github.com/smallbiznis/leasehold/pkg/repository"
	"gorm.io/gorm"
)

const paymentColumns = `id, lease_id, payment_date, period_key, amount_paid, method, receipt_url, created_at, updated_at`

type repo struct{}

func Provide() paymentdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *paymentdomain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.LeaseID,
		p.PaymentDate,
		p.PeriodKey,
		p.AmountPaid,
		p.Method,
		p.ReceiptURL,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, p *paymentdomain.Payment) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET lease_id = ?, payment_date = ?, period_key = ?, amount_paid = ?, method = ?,
		     receipt_url = ?, updated_at = ?
		 WHERE id = ?`,
		p.LeaseID,
		p.PaymentDate,
		p.PeriodKey,
		p.AmountPaid,
		p.Method,
		p.ReceiptURL,
		p.UpdatedAt,
		p.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM payments WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*paymentdomain.Payment, error) {
	return repository.ProvideStore[paymentdomain.Payment](db).FindByID(ctx, id)
}

func (r *repo) LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*paymentdomain.Payment, error) {
	return repository.ProvideStore[paymentdomain.Payment](db).FindByID(ctx, id, option.WithForUpdate())
}

func (r *repo) FindByLeaseAndPeriod(ctx context.Context, db *gorm.DB, leaseID snowflake.ID, periodKey string, excludeID snowflake.ID) (*paymentdomain.Payment, error) {
	var p paymentdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments
		 WHERE lease_id = ? AND period_key = ? AND id <> ?
		 LIMIT 1`,
		leaseID,
		periodKey,
		excludeID,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ListByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]paymentdomain.Payment, error) {
	var items []paymentdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT pm.id, pm.lease_id, pm.payment_date, pm.period_key, pm.amount_paid, pm.method,
		        pm.receipt_url, pm.created_at, pm.updated_at
		 FROM payments pm
		 JOIN leases l ON l.id = pm.lease_id
		 JOIN units u ON u.id = l.unit_id
		 JOIN properties p ON p.id = u.property_id
		 WHERE p.owner_id = ?
		 ORDER BY pm.payment_date DESC, pm.id DESC`,
		ownerID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
