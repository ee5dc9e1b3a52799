package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leasehold/internal/apperror"
	"github.com/smallbiznis/leasehold/internal/billingperiod"
	"github.com/smallbiznis/leasehold/internal/clock"
	"github.com/smallbiznis/leasehold/internal/config"
	meterdomain "github.com/smallbiznis/leasehold/internal/meter/domain"
	"github.com/smallbiznis/leasehold/internal/observability/logger"
	"github.com/smallbiznis/leasehold/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    meterdomain.Repository
	Billing *config.BillingConfigHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    meterdomain.Repository
	billing *config.BillingConfigHolder
	metrics *metrics.Metrics
}

func New(p Params) meterdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("meter.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		billing: p.Billing,
		metrics: p.Metrics,
	}
}

func (s *Service) UpsertReading(ctx context.Context, tx *gorm.DB, req meterdomain.UpsertReadingRequest) (*meterdomain.MeterReading, error) {
	if req.UnitID == 0 || req.UtilityTypeID == 0 {
		return nil, meterdomain.ErrInvalidReading.WithMessage("unit and utility type are required")
	}
	if req.ReadingDate.IsZero() {
		return nil, meterdomain.ErrInvalidReading.WithMessage("reading date is required")
	}
	date := billingperiod.Date(req.ReadingDate)
	now := s.clock.Now()

	prior, err := s.repo.FindLatestBefore(ctx, tx, req.UnitID, req.UtilityTypeID, date)
	if err != nil {
		return nil, err
	}
	previous := decimal.Zero
	if prior != nil {
		previous = prior.CurrentReading
	}

	usage, err := s.usageFor(ctx, req, previous)
	if err != nil {
		return nil, err
	}

	metadata := datatypes.JSONMap{"source": sourceOrDefault(req.Source)}
	if req.SourceRef != "" {
		metadata["source_ref"] = req.SourceRef
	}
	if req.Usage != nil {
		metadata[meterdomain.MetadataUsageOverride] = true
	}

	reading, err := s.repo.FindByKey(ctx, tx, req.UnitID, req.UtilityTypeID, date)
	if err != nil {
		return nil, err
	}
	inserted := reading == nil
	if inserted {
		reading = &meterdomain.MeterReading{
			ID:            s.genID.Generate(),
			UnitID:        req.UnitID,
			UtilityTypeID: req.UtilityTypeID,
			ReadingDate:   date,
			CreatedAt:     now,
		}
	}
	reading.PreviousReading = previous
	reading.CurrentReading = req.CurrentValue
	reading.Usage = usage
	reading.Metadata = metadata
	reading.UpdatedAt = now

	if inserted {
		err = s.repo.Insert(ctx, tx, reading)
	} else {
		err = s.repo.Update(ctx, tx, reading)
	}
	if err != nil {
		return nil, err
	}

	if err := s.relinkFrom(ctx, tx, req.UnitID, req.UtilityTypeID, date.AddDate(0, 0, 1), req.UtilityKind); err != nil {
		return nil, err
	}

	s.metrics.RecordReadingUpserted(ctx, req.UtilityKind, inserted)
	logger.WithContext(ctx, s.log).Debug("meter reading upserted",
		zap.String("unit_id", req.UnitID.String()),
		zap.String("utility_type_id", req.UtilityTypeID.String()),
		zap.String("reading_date", date.Format(billingperiod.DateLayout)),
		zap.Bool("inserted", inserted),
	)
	return reading, nil
}

// relinkFrom re-derives previous/usage of the first reading dated on or after from,
// keeping the chain consistent after a back-dated write or a deletion. An
// explicitly supplied usage is kept; only its previous reading moves.
func (s *Service) relinkFrom(ctx context.Context, tx *gorm.DB, unitID, utilityTypeID snowflake.ID, from time.Time, kind string) error {
	next, err := s.repo.FindFirstOnOrAfter(ctx, tx, unitID, utilityTypeID, from)
	if err != nil || next == nil {
		return err
	}
	prior, err := s.repo.FindLatestBefore(ctx, tx, unitID, utilityTypeID, next.ReadingDate)
	if err != nil {
		return err
	}
	previous := decimal.Zero
	if prior != nil {
		previous = prior.CurrentReading
	}
	if next.PreviousReading.Equal(previous) {
		return nil
	}

	next.PreviousReading = previous
	if !next.UsageOverridden() {
		usage, err := s.applyPolicy(ctx, next.CurrentReading.Sub(previous), unitID, kind)
		if err != nil {
			return err
		}
		next.Usage = usage
	}
	next.UpdatedAt = s.clock.Now()
	return s.repo.Update(ctx, tx, next)
}

func (s *Service) usageFor(ctx context.Context, req meterdomain.UpsertReadingRequest, previous decimal.Decimal) (decimal.Decimal, error) {
	if req.Usage != nil {
		return *req.Usage, nil
	}
	return s.applyPolicy(ctx, req.CurrentValue.Sub(previous), req.UnitID, req.UtilityKind)
}

func (s *Service) applyPolicy(ctx context.Context, usage decimal.Decimal, unitID snowflake.ID, kind string) (decimal.Decimal, error) {
	if !usage.IsNegative() {
		return usage, nil
	}

	policy := s.billing.Get().Meter.NegativeUsagePolicy
	log := logger.WithContext(ctx, s.log).With(
		zap.String("unit_id", unitID.String()),
		zap.String("utility_kind", kind),
		zap.String("usage", usage.String()),
		zap.String("policy", policy),
	)
	switch policy {
	case config.NegativeUsageReject:
		return decimal.Zero, meterdomain.ErrNegativeUsage.WithMessage("reading is lower than the previous reading (usage %s)", usage.String())
	case config.NegativeUsageClamp:
		log.Warn("negative meter usage clamped to zero")
		return decimal.Zero, nil
	default:
		log.Warn("negative meter usage recorded")
		return usage, nil
	}
}

func (s *Service) DeleteReadingsInPeriod(ctx context.Context, tx *gorm.DB, unitID snowflake.ID, period billingperiod.Period) (int64, error) {
	typeIDs, err := s.repo.ListTypesInRange(ctx, tx, unitID, period.Start, period.End)
	if err != nil {
		return 0, err
	}
	removed, err := s.repo.DeleteInRange(ctx, tx, unitID, period.Start, period.End)
	if err != nil {
		return 0, err
	}
	for _, typeID := range typeIDs {
		if err := s.relinkFrom(ctx, tx, unitID, typeID, period.End, ""); err != nil {
			return 0, err
		}
	}
	return removed, nil
}

func (s *Service) ListReadingsOnDate(ctx context.Context, db *gorm.DB, unitID snowflake.ID, date time.Time) ([]meterdomain.MeterReading, error) {
	if db == nil {
		db = s.db
	}
	return s.repo.ListByDate(ctx, db, unitID, billingperiod.Date(date))
}

func (s *Service) ListReadings(ctx context.Context, req meterdomain.ListRequest) ([]meterdomain.MeterReading, error) {
	if req.UnitID == 0 {
		return nil, meterdomain.ErrInvalidUnitID
	}
	items, err := s.repo.ListByUnit(ctx, s.db, req.UnitID, req.UtilityTypeID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return items, nil
}

func sourceOrDefault(source string) string {
	if source == "" {
		return meterdomain.SourceManual
	}
	return source
}
