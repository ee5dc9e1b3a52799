package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/leasehold/internal/apperror"
	"github.com/smallbiznis/leasehold/internal/billingperiod"
	"github.com/smallbiznis/leasehold/internal/clock"
	"github.com/smallbiznis/leasehold/internal/config"
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
	Repo         paymentdomain.Repository
	LeaseRepo    leasedomain.Repository
	PropertyRepo propertydomain.Repository
	RenterRepo   renterdomain.Repository
	UtilityRepo  utilitydomain.Repository
	UtilitySvc   utilitydomain.Service
	MeterSvc     meterdomain.Service
	Billing      *config.BillingConfigHolder
	Guard        *lock.LeaseGuard `optional:"true"`
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         paymentdomain.Repository
	leaseRepo    leasedomain.Repository
	propertyRepo propertydomain.Repository
	renterRepo   renterdomain.Repository
	utilityRepo  utilitydomain.Repository
	utilitySvc   utilitydomain.Service
	meterSvc     meterdomain.Service
	billing      *config.BillingConfigHolder
	guard        *lock.LeaseGuard
	metrics      *metrics.Metrics
}

func New(p Params) paymentdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		leaseRepo:    p.LeaseRepo,
		propertyRepo: p.PropertyRepo,
		renterRepo:   p.RenterRepo,
		utilityRepo:  p.UtilityRepo,
		utilitySvc:   p.UtilitySvc,
		meterSvc:     p.MeterSvc,
		billing:      p.Billing,
		guard:        p.Guard,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req paymentdomain.CreateRequest) (*paymentdomain.PaymentDetail, error) {
	if req.LeaseID == 0 {
		return nil, paymentdomain.ErrInvalidID
	}
	if req.PaymentDate.IsZero() {
		return nil, paymentdomain.ErrInvalidPaymentDate
	}
	if req.AmountPaid.IsNegative() {
		return nil, paymentdomain.ErrInvalidAmount
	}

	release, err := s.guard.Acquire(ctx, req.LeaseID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.clock.Now()
	date := billingperiod.Date(req.PaymentDate)
	payment := paymentdomain.Payment{
		ID:          s.genID.Generate(),
		LeaseID:     req.LeaseID,
		PaymentDate: date,
		PeriodKey:   billingperiod.KeyOf(date),
		AmountPaid:  req.AmountPaid,
		Method:      strings.TrimSpace(req.Method),
		ReceiptURL:  strings.TrimSpace(req.ReceiptURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var detail *paymentdomain.PaymentDetail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lease, err := s.leaseRepo.LockByID(ctx, tx, req.LeaseID)
		if err != nil {
			return err
		}
		if lease == nil {
			return paymentdomain.ErrLeaseNotFound
		}
		if err := s.checkOwner(ctx, tx, lease.UnitID, req.OwnerID); err != nil {
			return err
		}

		existing, err := s.repo.FindByLeaseAndPeriod(ctx, tx, lease.ID, payment.PeriodKey, 0)
		if err != nil {
			return err
		}
		if existing != nil {
			return paymentdomain.ErrDuplicatePayment.WithMessage("a payment for %s already exists on this lease", payment.PeriodKey)
		}

		if err := s.upsertReadings(ctx, tx, lease.UnitID, payment, req.Readings); err != nil {
			return err
		}

		if err := s.repo.Insert(ctx, tx, &payment); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return paymentdomain.ErrDuplicatePayment
			}
			return err
		}

		detail, err = s.buildDetail(ctx, tx, payment, lease)
		return err
	})
	if err != nil {
		s.recordConflict(ctx, err)
		return nil, apperror.Wrap(err)
	}

	s.metrics.RecordPayment(ctx, "create")
	logger.WithContext(ctx, s.log).Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("lease_id", payment.LeaseID.String()),
		zap.String("period", payment.PeriodKey),
		zap.Int("readings", len(req.Readings)),
	)
	return detail, nil
}

func (s *Service) Update(ctx context.Context, req paymentdomain.UpdateRequest) (*paymentdomain.PaymentDetail, error) {
	if req.PaymentID == 0 {
		return nil, paymentdomain.ErrInvalidID
	}
	if req.AmountPaid != nil && req.AmountPaid.IsNegative() {
		return nil, paymentdomain.ErrInvalidAmount
	}

	current, err := s.repo.FindByID(ctx, s.db, req.PaymentID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	if current == nil {
		return nil, paymentdomain.ErrPaymentNotFound
	}
	guardLease := current.LeaseID
	if req.LeaseID != nil {
		guardLease = *req.LeaseID
	}
	release, err := s.guard.Acquire(ctx, guardLease)
	if err != nil {
		return nil, err
	}
	defer release()

	var detail *paymentdomain.PaymentDetail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.LockByID(ctx, tx, req.PaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return paymentdomain.ErrPaymentNotFound
		}
		if req.OwnerID != 0 {
			prior, err := s.leaseRepo.FindByID(ctx, tx, payment.LeaseID)
			if err != nil {
				return err
			}
			if prior == nil {
				return paymentdomain.ErrPaymentForbidden
			}
			if err := s.checkOwner(ctx, tx, prior.UnitID, req.OwnerID); err != nil {
				return err
			}
		}

		if req.LeaseID != nil {
			payment.LeaseID = *req.LeaseID
		}
		lease, err := s.leaseRepo.LockByID(ctx, tx, payment.LeaseID)
		if err != nil {
			return err
		}
		if lease == nil {
			return paymentdomain.ErrLeaseNotFound
		}
		if err := s.checkOwner(ctx, tx, lease.UnitID, req.OwnerID); err != nil {
			return err
		}

		if req.PaymentDate != nil {
			if req.PaymentDate.IsZero() {
				return paymentdomain.ErrInvalidPaymentDate
			}
			payment.PaymentDate = billingperiod.Date(*req.PaymentDate)
		}
		payment.PeriodKey = billingperiod.KeyOf(payment.PaymentDate)

		existing, err := s.repo.FindByLeaseAndPeriod(ctx, tx, payment.LeaseID, payment.PeriodKey, payment.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return paymentdomain.ErrDuplicatePayment.WithMessage("a payment for %s already exists on this lease", payment.PeriodKey)
		}

		if req.AmountPaid != nil {
			payment.AmountPaid = *req.AmountPaid
		}
		if req.Method != nil {
			payment.Method = strings.TrimSpace(*req.Method)
		}
		if req.ReceiptURL != nil {
			payment.ReceiptURL = strings.TrimSpace(*req.ReceiptURL)
		}
		payment.UpdatedAt = s.clock.Now()

		if err := s.upsertReadings(ctx, tx, lease.UnitID, *payment, req.Readings); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, payment); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return paymentdomain.ErrDuplicatePayment
			}
			return err
		}

		detail, err = s.buildDetail(ctx, tx, *payment, lease)
		return err
	})
	if err != nil {
		s.recordConflict(ctx, err)
		return nil, apperror.Wrap(err)
	}

	s.metrics.RecordPayment(ctx, "update")
	logger.WithContext(ctx, s.log).Info("payment updated", zap.String("payment_id", req.PaymentID.String()))
	return detail, nil
}

func (s *Service) Delete(ctx context.Context, paymentID, ownerID snowflake.ID) (*paymentdomain.PaymentSummary, error) {
	if paymentID == 0 {
		return nil, paymentdomain.ErrInvalidID
	}

	var (
		summary paymentdomain.PaymentSummary
		removed int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.LockByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return paymentdomain.ErrPaymentNotFound
		}

		lease, err := s.leaseRepo.FindByID(ctx, tx, payment.LeaseID)
		if err != nil {
			return err
		}
		if ownerID != 0 {
			if lease == nil {
				return paymentdomain.ErrPaymentForbidden
			}
			if err := s.checkOwner(ctx, tx, lease.UnitID, ownerID); err != nil {
				return err
			}
		}
		if lease != nil {
			removed, err = s.meterSvc.DeleteReadingsInPeriod(ctx, tx, lease.UnitID, billingperiod.Of(payment.PaymentDate))
			if err != nil {
				return err
			}
		}

		if err := s.repo.Delete(ctx, tx, paymentID); err != nil {
			return err
		}
		summary = toSummary(*payment)
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	s.metrics.RecordPayment(ctx, "delete")
	logger.WithContext(ctx, s.log).Info("payment deleted",
		zap.String("payment_id", paymentID.String()),
		zap.Int64("readings_removed", removed),
	)
	return &summary, nil
}

func (s *Service) List(ctx context.Context, ownerID snowflake.ID) ([]paymentdomain.PaymentDetail, error) {
	if ownerID == 0 {
		return nil, paymentdomain.ErrInvalidID
	}
	payments, err := s.repo.ListByOwner(ctx, s.db, ownerID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	leases := make(map[snowflake.ID]*leasedomain.Lease)
	out := make([]paymentdomain.PaymentDetail, 0, len(payments))
	for _, payment := range payments {
		lease, ok := leases[payment.LeaseID]
		if !ok {
			lease, err = s.leaseRepo.FindByID(ctx, s.db, payment.LeaseID)
			if err != nil {
				return nil, apperror.Wrap(err)
			}
			leases[payment.LeaseID] = lease
		}
		detail, err := s.buildDetail(ctx, s.db, payment, lease)
		if err != nil {
			return nil, apperror.Wrap(err)
		}
		out = append(out, *detail)
	}
	return out, nil
}

// checkOwner rejects a unit that does not belong to ownerID. A zero ownerID
// skips the check.
func (s *Service) checkOwner(ctx context.Context, tx *gorm.DB, unitID, ownerID snowflake.ID) error {
	if ownerID == 0 {
		return nil
	}
	owner, err := s.propertyRepo.OwnerOfUnit(ctx, tx, unitID)
	if err != nil {
		return err
	}
	if owner != ownerID {
		return paymentdomain.ErrPaymentForbidden
	}
	return nil
}

func (s *Service) upsertReadings(ctx context.Context, tx *gorm.DB, unitID snowflake.ID, payment paymentdomain.Payment, readings []paymentdomain.ReadingInput) error {
	if len(readings) == 0 {
		return nil
	}
	cfg := s.billing.Get()
	for _, input := range readings {
		utilityType, err := s.utilitySvc.ResolveKind(ctx, tx, input.Kind)
		if err != nil {
			return err
		}
		if !cfg.AcceptsReadingKind(string(utilityType.Code)) {
			return paymentdomain.ErrReadingKindRejected.WithMessage("payments do not accept %s readings", utilityType.Code)
		}
		_, err = s.meterSvc.UpsertReading(ctx, tx, meterdomain.UpsertReadingRequest{
			UnitID:        unitID,
			UtilityTypeID: utilityType.ID,
			UtilityKind:   string(utilityType.Code),
			CurrentValue:  input.Value,
			Usage:         input.Usage,
			ReadingDate:   payment.PaymentDate,
			Source:        meterdomain.SourcePayment,
			SourceRef:     payment.ID.String(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) buildDetail(ctx context.Context, tx *gorm.DB, payment paymentdomain.Payment, lease *leasedomain.Lease) (*paymentdomain.PaymentDetail, error) {
	detail := &paymentdomain.PaymentDetail{
		PaymentSummary: toSummary(payment),
		Readings:       []paymentdomain.ReadingDetail{},
		CreatedAt:      payment.CreatedAt,
		UpdatedAt:      payment.UpdatedAt,
	}
	if lease == nil {
		return detail, nil
	}
	detail.UnitID = lease.UnitID

	unit, err := s.propertyRepo.FindUnit(ctx, tx, lease.UnitID)
	if err != nil {
		return nil, err
	}
	if unit != nil {
		detail.UnitNumber = unit.UnitNumber
		detail.PropertyID = unit.PropertyID

		property, err := s.propertyRepo.FindProperty(ctx, tx, unit.PropertyID)
		if err != nil {
			return nil, err
		}
		if property != nil {
			detail.PropertyName = property.Name
			owner, err := s.renterRepo.FindUser(ctx, tx, property.OwnerID)
			if err != nil {
				return nil, err
			}
			if owner != nil {
				detail.OwnerName = owner.Username
			}
		}
	}

	renter, err := s.renterRepo.FindRenter(ctx, tx, lease.RenterID)
	if err != nil {
		return nil, err
	}
	if renter != nil {
		user, err := s.renterRepo.FindUser(ctx, tx, renter.UserID)
		if err != nil {
			return nil, err
		}
		if user != nil {
			detail.RenterName = user.Username
		}
	}

	readings, err := s.meterSvc.ListReadingsOnDate(ctx, tx, lease.UnitID, payment.PaymentDate)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return detail, nil
	}

	rules, err := s.utilityRepo.ListByUnit(ctx, tx, lease.UnitID)
	if err != nil {
		return nil, err
	}
	rulesByType := make(map[snowflake.ID]utilitydomain.UnitUtility, len(rules))
	for _, rule := range rules {
		rulesByType[rule.UtilityTypeID] = rule
	}

	for _, reading := range readings {
		item := paymentdomain.ReadingDetail{
			ID:              reading.ID,
			UtilityTypeID:   reading.UtilityTypeID,
			ReadingDate:     reading.ReadingDate.Format(billingperiod.DateLayout),
			PreviousReading: reading.PreviousReading,
			CurrentReading:  reading.CurrentReading,
			Usage:           reading.Usage,
		}
		utilityType, err := s.utilityRepo.FindTypeByID(ctx, tx, reading.UtilityTypeID)
		if err != nil {
			return nil, err
		}
		if utilityType != nil {
			item.UtilityKind = string(utilityType.Code)
		}
		if rule, ok := rulesByType[reading.UtilityTypeID]; ok {
			item.BillingType = string(rule.BillingType)
			if rule.UnitRate.Valid {
				rate := rule.UnitRate.Decimal
				item.UnitRate = &rate
			}
			if rule.FixedRate.Valid {
				rate := rule.FixedRate.Decimal
				item.FixedRate = &rate
			}
		}
		detail.Readings = append(detail.Readings, item)
	}
	return detail, nil
}

func (s *Service) recordConflict(ctx context.Context, err error) {
	if apperror.KindOf(err) == apperror.KindConflict {
		s.metrics.RecordConflict(ctx, "payment")
	}
}

func toSummary(p paymentdomain.Payment) paymentdomain.PaymentSummary {
	return paymentdomain.PaymentSummary{
		ID:          p.ID,
		LeaseID:     p.LeaseID,
		PaymentDate: p.PaymentDate.Format(billingperiod.DateLayout),
		AmountPaid:  p.AmountPaid,
		Method:      p.Method,
		ReceiptURL:  p.ReceiptURL,
	}
}

