package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leasehold/internal/apperror"
	"github.com/smallbiznis/leasehold/internal/billingperiod"
	"github.com/smallbiznis/leasehold/internal/clock"
	"github.com/smallbiznis/leasehold/internal/config"
	invoicedomain "github.com/smallbiznis/leasehold/internal/invoice/domain"
	leasedomain "github.com/smallbiznis/leasehold/internal/lease/domain"
	"github.com/smallbiznis/leasehold/internal/lock"
	meterdomain "github.com/smallbiznis/leasehold/internal/meter/domain"
	"github.com/smallbiznis/leasehold/internal/observability/logger"
	"github.com/smallbiznis/leasehold/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/leasehold/internal/payment/domain"
	propertydomain "github.com/smallbiznis/leasehold/internal/property/domain"
	renterdomain "github.com/smallbiznis/leasehold/internal/renter/domain"
	utilitydomain "github.com/smallbiznis/leasehold/internal/utility/domain"
	"github.com/smallbiznis/leasehold/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         invoicedomain.Repository
	LeaseRepo    leasedomain.Repository
	PropertyRepo propertydomain.Repository
	RenterRepo   renterdomain.Repository
	UtilityRepo  utilitydomain.Repository
	MeterRepo    meterdomain.Repository
	PaymentRepo  paymentdomain.Repository
	Renderer     invoicedomain.Renderer
	Billing      *config.BillingConfigHolder
	Guard        *lock.LeaseGuard `optional:"true"`
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         invoicedomain.Repository
	leaseRepo    leasedomain.Repository
	propertyRepo propertydomain.Repository
	renterRepo   renterdomain.Repository
	utilityRepo  utilitydomain.Repository
	meterRepo    meterdomain.Repository
	paymentRepo  paymentdomain.Repository
	renderer     invoicedomain.Renderer
	billing      *config.BillingConfigHolder
	guard        *lock.LeaseGuard
	metrics      *metrics.Metrics
}

func New(p Params) invoicedomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("invoice.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		leaseRepo:    p.LeaseRepo,
		propertyRepo: p.PropertyRepo,
		renterRepo:   p.RenterRepo,
		utilityRepo:  p.UtilityRepo,
		meterRepo:    p.MeterRepo,
		paymentRepo:  p.PaymentRepo,
		renderer:     p.Renderer,
		billing:      p.Billing,
		guard:        p.Guard,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateRequest) (*invoicedomain.InvoiceDetail, error) {
	if req.LeaseID == 0 || req.OwnerID == 0 {
		return nil, invoicedomain.ErrInvalidID
	}
	if req.Month.IsZero() {
		return nil, invoicedomain.ErrInvalidMonth
	}

	release, err := s.guard.Acquire(ctx, req.LeaseID)
	if err != nil {
		return nil, err
	}
	defer release()

	period := billingperiod.Of(req.Month)
	now := s.clock.Now()
	invoice := invoicedomain.Invoice{
		ID:        s.genID.Generate(),
		LeaseID:   req.LeaseID,
		Month:     period.Start,
		PeriodKey: period.Key(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var detail *invoicedomain.InvoiceDetail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lease, err := s.authorizeOwner(ctx, tx, req.LeaseID, req.OwnerID, true)
		if err != nil {
			return err
		}

		existing, err := s.repo.FindByLeaseAndPeriod(ctx, tx, lease.ID, invoice.PeriodKey, 0)
		if err != nil {
			return err
		}
		if existing != nil {
			return invoicedomain.ErrDuplicateInvoice.WithMessage("an invoice for %s already exists on this lease", invoice.PeriodKey)
		}

		if !lease.IsActive() {
			return invoicedomain.ErrLeaseNotActive.WithMessage("lease status is %q", lease.Status)
		}

		lines, err := s.price(ctx, tx, lease, period, &invoice)
		if err != nil {
			return err
		}

		if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return invoicedomain.ErrDuplicateInvoice
			}
			return err
		}

		detail, err = s.buildDetail(ctx, tx, invoice, lease, lines)
		return err
	})
	if err != nil {
		s.recordConflict(ctx, err)
		return nil, apperror.Wrap(err)
	}

	s.metrics.RecordInvoiceCreated(ctx, invoice.Status)
	logger.WithContext(ctx, s.log).Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("lease_id", invoice.LeaseID.String()),
		zap.String("period", invoice.PeriodKey),
		zap.String("total", invoice.Total.String()),
		zap.String("status", invoice.Status),
	)
	return detail, nil
}

func (s *Service) Update(ctx context.Context, req invoicedomain.UpdateRequest) (*invoicedomain.InvoiceDetail, error) {
	if req.InvoiceID == 0 || req.OwnerID == 0 {
		return nil, invoicedomain.ErrInvalidID
	}
	if req.Status != nil && !invoicedomain.ValidStatus(*req.Status) {
		return nil, invoicedomain.ErrInvalidStatus.WithMessage("status must be %q or %q", invoicedomain.StatusPaid, invoicedomain.StatusUnpaid)
	}
	if req.Month != nil && req.Month.IsZero() {
		return nil, invoicedomain.ErrInvalidMonth
	}

	var detail *invoicedomain.InvoiceDetail
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.LockByID(ctx, tx, req.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}

		lease, err := s.authorizeOwner(ctx, tx, invoice.LeaseID, req.OwnerID, false)
		if err != nil {
			return err
		}
		if req.LeaseID != nil && *req.LeaseID != invoice.LeaseID {
			lease, err = s.authorizeOwner(ctx, tx, *req.LeaseID, req.OwnerID, true)
			if err != nil {
				return err
			}
			invoice.LeaseID = lease.ID
		}

		period := billingperiod.Of(invoice.Month)
		if req.Month != nil {
			period = billingperiod.Of(*req.Month)
		}
		invoice.Month = period.Start
		invoice.PeriodKey = period.Key()

		existing, err := s.repo.FindByLeaseAndPeriod(ctx, tx, invoice.LeaseID, invoice.PeriodKey, invoice.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return invoicedomain.ErrDuplicateInvoice.WithMessage("an invoice for %s already exists on this lease", invoice.PeriodKey)
		}

		var lines []invoicedomain.UtilityLine
		if req.Recompute {
			lines, err = s.price(ctx, tx, lease, period, invoice)
			if err != nil {
				return err
			}
		} else {
			if req.Rent != nil {
				invoice.Rent = *req.Rent
			}
			if req.Utility != nil {
				invoice.Utility = *req.Utility
			}
			if req.Total != nil {
				invoice.Total = *req.Total
			}
			if req.Status != nil {
				invoice.Status = *req.Status
			}
			lines, err = s.breakdown(ctx, tx, lease.UnitID, period)
			if err != nil {
				return err
			}
		}

		invoice.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return invoicedomain.ErrDuplicateInvoice
			}
			return err
		}

		detail, err = s.buildDetail(ctx, tx, *invoice, lease, lines)
		return err
	})
	if err != nil {
		s.recordConflict(ctx, err)
		return nil, apperror.Wrap(err)
	}

	logger.WithContext(ctx, s.log).Info("invoice updated",
		zap.String("invoice_id", req.InvoiceID.String()),
		zap.Bool("recompute", req.Recompute),
	)
	return detail, nil
}

func (s *Service) List(ctx context.Context, userID snowflake.ID) ([]invoicedomain.InvoiceSummary, error) {
	if userID == 0 {
		return nil, invoicedomain.ErrInvalidID
	}
	invoices, err := s.repo.ListVisibleTo(ctx, s.db, userID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	out := make([]invoicedomain.InvoiceSummary, 0, len(invoices))
	for _, invoice := range invoices {
		lease, err := s.leaseRepo.FindByID(ctx, s.db, invoice.LeaseID)
		if err != nil {
			return nil, apperror.Wrap(err)
		}
		if lease == nil {
			continue
		}
		lines, err := s.breakdown(ctx, s.db, lease.UnitID, billingperiod.Of(invoice.Month))
		if err != nil {
			return nil, apperror.Wrap(err)
		}
		detail, err := s.buildDetail(ctx, s.db, invoice, lease, lines)
		if err != nil {
			return nil, apperror.Wrap(err)
		}
		out = append(out, detail.InvoiceSummary)
	}
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, invoiceID, userID snowflake.ID) (*invoicedomain.InvoiceDetail, error) {
	if invoiceID == 0 || userID == 0 {
		return nil, invoicedomain.ErrInvalidID
	}
	invoice, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	if invoice == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	lease, err := s.leaseRepo.FindByID(ctx, s.db, invoice.LeaseID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	if lease == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}

	visible, err := s.visibleTo(ctx, s.db, lease, userID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	if !visible {
		return nil, invoicedomain.ErrInvoiceNotFound
	}

	lines, err := s.breakdown(ctx, s.db, lease.UnitID, billingperiod.Of(invoice.Month))
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	detail, err := s.buildDetail(ctx, s.db, *invoice, lease, lines)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return detail, nil
}

func (s *Service) Delete(ctx context.Context, invoiceID, ownerID snowflake.ID) error {
	if invoiceID == 0 || ownerID == 0 {
		return invoicedomain.ErrInvalidID
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.LockByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if _, err := s.authorizeOwner(ctx, tx, invoice.LeaseID, ownerID, false); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, invoiceID)
	})
	if err != nil {
		return apperror.Wrap(err)
	}

	logger.WithContext(ctx, s.log).Info("invoice deleted", zap.String("invoice_id", invoiceID.String()))
	return nil
}

func (s *Service) RenderPDF(ctx context.Context, invoiceID, userID snowflake.ID) (*invoicedomain.RenderedInvoice, error) {
	detail, err := s.GetByID(ctx, invoiceID, userID)
	if err != nil {
		return nil, err
	}
	content, err := s.renderer.Render(ctx, *detail, invoicedomain.RenderOptions{
		CurrencyLabel: s.billing.Get().Invoice.CurrencyLabel,
		GeneratedAt:   s.clock.Now(),
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return &invoicedomain.RenderedInvoice{
		FileName:    fmt.Sprintf("invoice-%s-%s.pdf", detail.Period, detail.ID.String()),
		ContentType: "application/pdf",
		Content:     content,
	}, nil
}

// authorizeOwner resolves the lease and checks that ownerID owns its property.
func (s *Service) authorizeOwner(ctx context.Context, tx *gorm.DB, leaseID, ownerID snowflake.ID, lockLease bool) (*leasedomain.Lease, error) {
	var (
		lease *leasedomain.Lease
		err   error
	)
	if lockLease {
		lease, err = s.leaseRepo.LockByID(ctx, tx, leaseID)
	} else {
		lease, err = s.leaseRepo.FindByID(ctx, tx, leaseID)
	}
	if err != nil {
		return nil, err
	}
	if lease == nil {
		return nil, invoicedomain.ErrLeaseNotFound
	}

	owner, err := s.propertyRepo.OwnerOfUnit(ctx, tx, lease.UnitID)
	if err != nil {
		return nil, err
	}
	if owner == 0 {
		return nil, invoicedomain.ErrLeaseNotFound.WithMessage("lease unit or property no longer exists")
	}
	if owner != ownerID {
		return nil, invoicedomain.ErrInvoiceForbidden
	}
	return lease, nil
}

func (s *Service) visibleTo(ctx context.Context, tx *gorm.DB, lease *leasedomain.Lease, userID snowflake.ID) (bool, error) {
	owner, err := s.propertyRepo.OwnerOfUnit(ctx, tx, lease.UnitID)
	if err != nil {
		return false, err
	}
	if owner != 0 && owner == userID {
		return true, nil
	}
	if !lease.IsActive() {
		return false, nil
	}
	renter, err := s.renterRepo.FindRenter(ctx, tx, lease.RenterID)
	if err != nil {
		return false, err
	}
	return renter != nil && renter.UserID == userID, nil
}

// price derives rent, utility, total and status of invoice for period.
func (s *Service) price(ctx context.Context, tx *gorm.DB, lease *leasedomain.Lease, period billingperiod.Period, invoice *invoicedomain.Invoice) ([]invoicedomain.UtilityLine, error) {
	lines, utility, err := s.charges(ctx, tx, lease.UnitID, period)
	if err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.FindByLeaseAndPeriod(ctx, tx, lease.ID, period.Key(), 0)
	if err != nil {
		return nil, err
	}
	if payment != nil {
		invoice.Rent = payment.AmountPaid
		invoice.Status = invoicedomain.StatusPaid
	} else {
		invoice.Rent = lease.RentAmount
		invoice.Status = invoicedomain.StatusUnpaid
	}
	invoice.Utility = utility
	invoice.Total = invoice.Rent.Add(utility)
	return lines, nil
}

func (s *Service) breakdown(ctx context.Context, tx *gorm.DB, unitID snowflake.ID, period billingperiod.Period) ([]invoicedomain.UtilityLine, error) {
	lines, _, err := s.charges(ctx, tx, unitID, period)
	return lines, err
}

func (s *Service) charges(ctx context.Context, tx *gorm.DB, unitID snowflake.ID, period billingperiod.Period) ([]invoicedomain.UtilityLine, decimal.Decimal, error) {
	rules, err := s.utilityRepo.ListByUnit(ctx, tx, unitID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	inputs := make([]invoicedomain.ChargeInput, 0, len(rules))
	for _, rule := range rules {
		utilityType, err := s.utilityRepo.FindTypeByID(ctx, tx, rule.UtilityTypeID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		input := invoicedomain.ChargeInput{Rule: rule, Type: utilityType}
		if rule.BillingType == utilitydomain.BillingTypePerUnit {
			input.Reading, err = s.meterRepo.FindLatestInRange(ctx, tx, unitID, rule.UtilityTypeID, period.Start, period.End)
			if err != nil {
				return nil, decimal.Zero, err
			}
		}
		inputs = append(inputs, input)
	}

	lines, total := invoicedomain.ComputeUtilityCharges(inputs)
	return lines, total, nil
}

func (s *Service) buildDetail(ctx context.Context, tx *gorm.DB, invoice invoicedomain.Invoice, lease *leasedomain.Lease, lines []invoicedomain.UtilityLine) (*invoicedomain.InvoiceDetail, error) {
	if lines == nil {
		lines = []invoicedomain.UtilityLine{}
	}
	detail := &invoicedomain.InvoiceDetail{
		InvoiceSummary: invoicedomain.InvoiceSummary{
			ID:        invoice.ID,
			LeaseID:   invoice.LeaseID,
			Month:     invoice.Month.Format(billingperiod.DateLayout),
			Period:    invoice.PeriodKey,
			Rent:      invoice.Rent,
			Utility:   invoice.Utility,
			Total:     invoice.Total,
			Status:    invoice.Status,
			UnitID:    lease.UnitID,
			Utilities: lines,
			CreatedAt: invoice.CreatedAt,
			UpdatedAt: invoice.UpdatedAt,
		},
		LeaseStartDate: lease.StartDate.Format(billingperiod.DateLayout),
		LeaseEndDate:   lease.EndDate.Format(billingperiod.DateLayout),
		LeaseRent:      lease.RentAmount,
	}

	unit, err := s.propertyRepo.FindUnit(ctx, tx, lease.UnitID)
	if err != nil {
		return nil, err
	}
	if unit != nil {
		detail.UnitNumber = unit.UnitNumber
		property, err := s.propertyRepo.FindProperty(ctx, tx, unit.PropertyID)
		if err != nil {
			return nil, err
		}
		if property != nil {
			detail.Property = &invoicedomain.PropertyInfo{
				ID:      property.ID,
				Name:    property.Name,
				Address: property.Address,
				City:    property.City,
			}
			landlord, err := s.renterRepo.FindUser(ctx, tx, property.OwnerID)
			if err != nil {
				return nil, err
			}
			detail.Landlord = toParty(landlord)
		}
	}

	renter, err := s.renterRepo.FindRenter(ctx, tx, lease.RenterID)
	if err != nil {
		return nil, err
	}
	if renter != nil {
		tenant, err := s.renterRepo.FindUser(ctx, tx, renter.UserID)
		if err != nil {
			return nil, err
		}
		detail.Tenant = toParty(tenant)
		if tenant != nil {
			detail.RenterName = tenant.Username
		}
	}
	return detail, nil
}

func (s *Service) recordConflict(ctx context.Context, err error) {
	if apperror.KindOf(err) == apperror.KindConflict {
		s.metrics.RecordConflict(ctx, "invoice")
	}
}

func toParty(user *renterdomain.User) *invoicedomain.Party {
	if user == nil {
		return nil
	}
	return &invoicedomain.Party{Name: user.Username, Email: user.Email, Phone: user.Phone}
}
