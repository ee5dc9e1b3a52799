package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leasehold/internal/apperror"
	"github.com/smallbiznis/leasehold/internal/billingperiod"
	"github.com/smallbiznis/leasehold/internal/clock"
	leasedomain "github.com/smallbiznis/leasehold/internal/lease/domain"
	"github.com/smallbiznis/leasehold/internal/observability/logger"
	"github.com/smallbiznis/leasehold/internal/observability/metrics"
	propertydomain "github.com/smallbiznis/leasehold/internal/property/domain"
	renterdomain "github.com/smallbiznis/leasehold/internal/renter/domain"
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
	Repo         leasedomain.Repository
	PropertyRepo propertydomain.Repository
	RenterRepo   renterdomain.Repository
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         leasedomain.Repository
	propertyRepo propertydomain.Repository
	renterRepo   renterdomain.Repository
	metrics      *metrics.Metrics
}

func New(p Params) leasedomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("lease.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		propertyRepo: p.PropertyRepo,
		renterRepo:   p.RenterRepo,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req leasedomain.CreateRequest) (*leasedomain.LeaseResponse, error) {
	if req.UnitID == 0 || req.RenterID == 0 {
		return nil, leasedomain.ErrInvalidID
	}
	status := leasedomain.NormalizeStatus(req.Status)
	if status == "" {
		return nil, leasedomain.ErrInvalidStatus
	}
	if err := validateTerms(req.StartDate, req.EndDate, req.RentAmount); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	lease := leasedomain.Lease{
		ID:         s.genID.Generate(),
		UnitID:     req.UnitID,
		RenterID:   req.RenterID,
		StartDate:  billingperiod.Date(req.StartDate),
		EndDate:    billingperiod.Date(req.EndDate),
		RentAmount: req.RentAmount,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.DepositAmount != nil {
		lease.DepositAmount = decimal.NewNullDecimal(*req.DepositAmount)
	}

	var resp *leasedomain.LeaseResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unit, err := s.propertyRepo.LockUnit(ctx, tx, req.UnitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return leasedomain.ErrUnitNotFound
		}
		if err := s.checkOwner(ctx, tx, req.UnitID, req.OwnerID); err != nil {
			return err
		}
		if err := s.ensureRenter(ctx, tx, req.RenterID); err != nil {
			return err
		}

		occupying, err := s.repo.FindOccupying(ctx, tx, req.UnitID, 0)
		if err != nil {
			return err
		}
		if occupying != nil {
			return leasedomain.ErrUnitOccupied
		}

		if err := s.repo.Insert(ctx, tx, &lease); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return leasedomain.ErrUnitOccupied
			}
			return err
		}
		if err := s.propertyRepo.SetUnitAvailability(ctx, tx, req.UnitID, !leasedomain.OccupiesUnit(status), now); err != nil {
			return err
		}

		resp, err = s.buildResponse(ctx, tx, lease)
		return err
	})
	if err != nil {
		s.recordConflict(ctx, err)
		return nil, apperror.Wrap(err)
	}

	s.metrics.RecordLeaseTransition(ctx, "create", status)
	logger.WithContext(ctx, s.log).Info("lease created",
		zap.String("lease_id", lease.ID.String()),
		zap.String("unit_id", lease.UnitID.String()),
		zap.String("status", status),
	)
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req leasedomain.UpdateRequest) (*leasedomain.LeaseResponse, error) {
	if req.LeaseID == 0 {
		return nil, leasedomain.ErrInvalidID
	}
	if req.Status != nil && leasedomain.NormalizeStatus(*req.Status) == "" {
		return nil, leasedomain.ErrInvalidStatus
	}

	var resp *leasedomain.LeaseResponse
	var resultStatus string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lease, err := s.repo.LockByID(ctx, tx, req.LeaseID)
		if err != nil {
			return err
		}
		if lease == nil {
			return leasedomain.ErrLeaseNotFound
		}

		oldUnitID := lease.UnitID
		oldStatus := lease.Status
		targetUnitID := oldUnitID
		if req.UnitID != nil && *req.UnitID != oldUnitID {
			targetUnitID = *req.UnitID
		}

		unit, err := s.propertyRepo.LockUnit(ctx, tx, targetUnitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return leasedomain.ErrUnitNotFound
		}
		if err := s.checkOwner(ctx, tx, targetUnitID, req.OwnerID); err != nil {
			return err
		}

		occupying, err := s.repo.FindOccupying(ctx, tx, targetUnitID, lease.ID)
		if err != nil {
			return err
		}
		if occupying != nil {
			return leasedomain.ErrUnitOccupied
		}

		if req.RenterID != nil && *req.RenterID != lease.RenterID {
			if err := s.ensureRenter(ctx, tx, *req.RenterID); err != nil {
				return err
			}
			lease.RenterID = *req.RenterID
		}
		lease.UnitID = targetUnitID
		if req.StartDate != nil {
			lease.StartDate = billingperiod.Date(*req.StartDate)
		}
		if req.EndDate != nil {
			lease.EndDate = billingperiod.Date(*req.EndDate)
		}
		if req.RentAmount != nil {
			lease.RentAmount = *req.RentAmount
		}
		if req.DepositAmount != nil {
			lease.DepositAmount = decimal.NewNullDecimal(*req.DepositAmount)
		}
		if req.Status != nil {
			lease.Status = leasedomain.NormalizeStatus(*req.Status)
		}
		if err := validateTerms(lease.StartDate, lease.EndDate, lease.RentAmount); err != nil {
			return err
		}

		now := s.clock.Now()
		lease.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, lease); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return leasedomain.ErrUnitOccupied
			}
			return err
		}

		switch {
		case targetUnitID != oldUnitID:
			if err := s.propertyRepo.SetUnitAvailability(ctx, tx, oldUnitID, true, now); err != nil {
				return err
			}
			if err := s.propertyRepo.SetUnitAvailability(ctx, tx, targetUnitID, !leasedomain.OccupiesUnit(lease.Status), now); err != nil {
				return err
			}
		case lease.Status != oldStatus:
			if err := s.propertyRepo.SetUnitAvailability(ctx, tx, targetUnitID, !leasedomain.OccupiesUnit(lease.Status), now); err != nil {
				return err
			}
		}

		resultStatus = lease.Status
		resp, err = s.buildResponse(ctx, tx, *lease)
		return err
	})
	if err != nil {
		s.recordConflict(ctx, err)
		return nil, apperror.Wrap(err)
	}

	s.metrics.RecordLeaseTransition(ctx, "update", resultStatus)
	logger.WithContext(ctx, s.log).Info("lease updated",
		zap.String("lease_id", req.LeaseID.String()),
		zap.String("status", resultStatus),
	)
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, leaseID snowflake.ID) error {
	if leaseID == 0 {
		return leasedomain.ErrInvalidID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lease, err := s.repo.LockByID(ctx, tx, leaseID)
		if err != nil {
			return err
		}
		if lease == nil {
			return leasedomain.ErrLeaseNotFound
		}
		if _, err := s.propertyRepo.LockUnit(ctx, tx, lease.UnitID); err != nil {
			return err
		}

		records, err := s.repo.CountBillingRecords(ctx, tx, leaseID)
		if err != nil {
			return err
		}
		if records > 0 {
			return leasedomain.ErrLeaseHasBillingRecords.WithMessage("%d invoices or payments reference this lease", records)
		}

		if err := s.propertyRepo.SetUnitAvailability(ctx, tx, lease.UnitID, true, s.clock.Now()); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, leaseID)
	})
	if err != nil {
		return apperror.Wrap(err)
	}

	s.metrics.RecordLeaseTransition(ctx, "delete", "")
	logger.WithContext(ctx, s.log).Info("lease deleted", zap.String("lease_id", leaseID.String()))
	return nil
}

func (s *Service) Get(ctx context.Context, leaseID, ownerID snowflake.ID) (*leasedomain.LeaseResponse, error) {
	if leaseID == 0 {
		return nil, leasedomain.ErrInvalidID
	}
	lease, err := s.repo.FindByID(ctx, s.db, leaseID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	if lease == nil {
		return nil, leasedomain.ErrLeaseNotFound
	}
	owner, err := s.propertyRepo.OwnerOfUnit(ctx, s.db, lease.UnitID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	if owner != ownerID {
		return nil, leasedomain.ErrLeaseForbidden
	}
	resp, err := s.buildResponse(ctx, s.db, *lease)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return resp, nil
}

func (s *Service) List(ctx context.Context, ownerID snowflake.ID) ([]leasedomain.LeaseResponse, error) {
	return s.list(ctx, ownerID, "")
}

func (s *Service) ListActive(ctx context.Context, ownerID snowflake.ID) ([]leasedomain.LeaseResponse, error) {
	return s.list(ctx, ownerID, leasedomain.StatusActive)
}

func (s *Service) list(ctx context.Context, ownerID snowflake.ID, status string) ([]leasedomain.LeaseResponse, error) {
	if ownerID == 0 {
		return nil, leasedomain.ErrInvalidID
	}
	leases, err := s.repo.ListByOwner(ctx, s.db, ownerID, status)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	out := make([]leasedomain.LeaseResponse, 0, len(leases))
	for _, lease := range leases {
		resp, err := s.buildResponse(ctx, s.db, lease)
		if err != nil {
			return nil, apperror.Wrap(err)
		}
		out = append(out, *resp)
	}
	return out, nil
}

// checkOwner skips the check for a zero ownerID.
func (s *Service) checkOwner(ctx context.Context, tx *gorm.DB, unitID, ownerID snowflake.ID) error {
	if ownerID == 0 {
		return nil
	}
	owner, err := s.propertyRepo.OwnerOfUnit(ctx, tx, unitID)
	if err != nil {
		return err
	}
	if owner != ownerID {
		return leasedomain.ErrLeaseForbidden
	}
	return nil
}

func (s *Service) ensureRenter(ctx context.Context, tx *gorm.DB, renterID snowflake.ID) error {
	renter, err := s.renterRepo.FindRenter(ctx, tx, renterID)
	if err != nil {
		return err
	}
	if renter == nil {
		return leasedomain.ErrRenterNotFound
	}
	return nil
}

func (s *Service) buildResponse(ctx context.Context, tx *gorm.DB, lease leasedomain.Lease) (*leasedomain.LeaseResponse, error) {
	resp := &leasedomain.LeaseResponse{
		ID:         lease.ID,
		UnitID:     lease.UnitID,
		RenterID:   lease.RenterID,
		StartDate:  lease.StartDate.Format(billingperiod.DateLayout),
		EndDate:    lease.EndDate.Format(billingperiod.DateLayout),
		RentAmount: lease.RentAmount,
		Status:     lease.Status,
		CreatedAt:  lease.CreatedAt,
		UpdatedAt:  lease.UpdatedAt,
	}
	if lease.DepositAmount.Valid {
		deposit := lease.DepositAmount.Decimal
		resp.DepositAmount = &deposit
	}

	unit, err := s.propertyRepo.FindUnit(ctx, tx, lease.UnitID)
	if err != nil {
		return nil, err
	}
	if unit != nil {
		resp.UnitNumber = unit.UnitNumber
		resp.UnitAvailable = unit.IsAvailable
		resp.PropertyID = unit.PropertyID
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
			resp.RenterName = user.Username
		}
	}
	return resp, nil
}

func (s *Service) recordConflict(ctx context.Context, err error) {
	if apperror.KindOf(err) == apperror.KindConflict {
		s.metrics.RecordConflict(ctx, "lease")
	}
}

func validateTerms(start, end time.Time, rent decimal.Decimal) error {
	if start.IsZero() || end.IsZero() {
		return leasedomain.ErrInvalidDateRange.WithMessage("start_date and end_date are required")
	}
	if billingperiod.Date(end).Before(billingperiod.Date(start)) {
		return leasedomain.ErrInvalidDateRange.WithMessage("end_date must not precede start_date")
	}
	if rent.IsNegative() {
		return leasedomain.ErrInvalidRentAmount
	}
	return nil
}
