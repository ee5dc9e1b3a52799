package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leasehold/internal/apperror"
	"github.com/smallbiznis/leasehold/internal/clock"
	propertydomain "github.com/smallbiznis/leasehold/internal/property/domain"
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
	Repo         utilitydomain.Repository
	PropertyRepo propertydomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         utilitydomain.Repository
	propertyRepo propertydomain.Repository
}

func New(p Params) utilitydomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("utility.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		propertyRepo: p.PropertyRepo,
	}
}

type desiredRate struct {
	utilityType *utilitydomain.UtilityType
	billingType utilitydomain.BillingType
	amount      decimal.Decimal
}

func (s *Service) UpsertRates(ctx context.Context, req utilitydomain.UpsertRatesRequest) ([]utilitydomain.RateResponse, error) {
	if req.UnitID == 0 {
		return nil, utilitydomain.ErrInvalidUnitID
	}

	var result []utilitydomain.RateResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unit, err := s.propertyRepo.LockUnit(ctx, tx, req.UnitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return utilitydomain.ErrUnitNotFound
		}
		if req.OwnerID != 0 {
			owner, err := s.propertyRepo.OwnerOfUnit(ctx, tx, req.UnitID)
			if err != nil {
				return err
			}
			if owner != req.OwnerID {
				return utilitydomain.ErrUnitForbidden
			}
		}

		desired, order, err := s.validateRates(ctx, tx, req.Rates)
		if err != nil {
			return err
		}

		existing, err := s.repo.ListByUnit(ctx, tx, req.UnitID)
		if err != nil {
			return err
		}
		byType := make(map[snowflake.ID]utilitydomain.UnitUtility, len(existing))
		for _, item := range existing {
			byType[item.UtilityTypeID] = item
		}

		now := s.clock.Now()
		keep := make([]snowflake.ID, 0, len(order))
		var inserted, updated int
		for _, typeID := range order {
			rate := desired[typeID]
			keep = append(keep, typeID)

			if row, ok := byType[typeID]; ok {
				row.ApplyRate(rate.billingType, rate.amount)
				row.UpdatedAt = now
				if err := s.repo.Update(ctx, tx, &row); err != nil {
					return err
				}
				updated++
				continue
			}

			row := utilitydomain.UnitUtility{
				ID:            s.genID.Generate(),
				UnitID:        req.UnitID,
				UtilityTypeID: typeID,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			row.ApplyRate(rate.billingType, rate.amount)
			if err := s.repo.Insert(ctx, tx, &row); err != nil {
				return err
			}
			inserted++
		}

		removed, err := s.repo.DeleteByUnitExcept(ctx, tx, req.UnitID, keep)
		if err != nil {
			return err
		}

		result, err = s.listRates(ctx, tx, req.UnitID)
		if err != nil {
			return err
		}

		s.log.Info("unit utilities replaced",
			zap.String("unit_id", req.UnitID.String()),
			zap.Int("inserted", inserted),
			zap.Int("updated", updated),
			zap.Int64("removed", removed),
		)
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return result, nil
}

// validateRates resolves every input before any write. A repeated utility type keeps its last entry.
func (s *Service) validateRates(ctx context.Context, tx *gorm.DB, inputs []utilitydomain.RateInput) (map[snowflake.ID]desiredRate, []snowflake.ID, error) {
	desired := make(map[snowflake.ID]desiredRate, len(inputs))
	order := make([]snowflake.ID, 0, len(inputs))

	for _, in := range inputs {
		utilityType, err := s.ResolveKind(ctx, tx, in.UtilityType)
		if err != nil {
			return nil, nil, err
		}

		billingType, ok := utilitydomain.ParseBillingType(in.BillingType)
		if !ok {
			return nil, nil, utilitydomain.ErrInvalidBillingType.WithMessage("billing type %q for %s", in.BillingType, utilityType.Code)
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
		if err != nil {
			return nil, nil, utilitydomain.ErrInvalidAmount.WithMessage("amount for %s must be a number", utilityType.Code)
		}

		if _, seen := desired[utilityType.ID]; !seen {
			order = append(order, utilityType.ID)
		}
		desired[utilityType.ID] = desiredRate{utilityType: utilityType, billingType: billingType, amount: amount}
	}
	return desired, order, nil
}

func (s *Service) ListRates(ctx context.Context, unitID snowflake.ID) ([]utilitydomain.RateResponse, error) {
	if unitID == 0 {
		return nil, utilitydomain.ErrInvalidUnitID
	}
	unit, err := s.propertyRepo.FindUnit(ctx, s.db, unitID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	if unit == nil {
		return nil, utilitydomain.ErrUnitNotFound
	}
	rates, err := s.listRates(ctx, s.db, unitID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return rates, nil
}

func (s *Service) listRates(ctx context.Context, db *gorm.DB, unitID snowflake.ID) ([]utilitydomain.RateResponse, error) {
	rows, err := s.repo.ListByUnit(ctx, db, unitID)
	if err != nil {
		return nil, err
	}

	types := map[snowflake.ID]*utilitydomain.UtilityType{}
	out := make([]utilitydomain.RateResponse, 0, len(rows))
	for _, row := range rows {
		t, ok := types[row.UtilityTypeID]
		if !ok {
			if t, err = s.repo.FindTypeByID(ctx, db, row.UtilityTypeID); err != nil {
				return nil, err
			}
			types[row.UtilityTypeID] = t
		}
		out = append(out, toRateResponse(row, t))
	}
	return out, nil
}

func (s *Service) ListUtilityTypes(ctx context.Context) ([]utilitydomain.UtilityType, error) {
	items, err := s.repo.ListTypes(ctx, s.db)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return items, nil
}

func (s *Service) CreateUtilityType(ctx context.Context, req utilitydomain.CreateUtilityTypeRequest) (*utilitydomain.UtilityType, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, utilitydomain.ErrInvalidUtilityTypeName
	}
	source := strings.TrimSpace(req.Code)
	if source == "" {
		source = name
	}
	code := utilitydomain.UtilityKind(slug.Make(source))
	if code == "" {
		return nil, utilitydomain.ErrInvalidUtilityTypeName
	}

	now := s.clock.Now()
	item := utilitydomain.UtilityType{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindTypeByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if existing != nil {
			return utilitydomain.ErrDuplicateUtilityType
		}
		if err := s.repo.InsertType(ctx, tx, &item); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return utilitydomain.ErrDuplicateUtilityType
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	s.log.Info("utility type created", zap.String("code", string(code)))
	return &item, nil
}

func (s *Service) ResolveKind(ctx context.Context, db *gorm.DB, ref string) (*utilitydomain.UtilityType, error) {
	if db == nil {
		db = s.db
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, utilitydomain.ErrUnknownUtilityType.WithMessage("utility type is required")
	}

	var (
		found *utilitydomain.UtilityType
		err   error
	)
	if id, parseErr := strconv.ParseInt(ref, 10, 64); parseErr == nil {
		found, err = s.repo.FindTypeByID(ctx, db, snowflake.ID(id))
	} else {
		found, err = s.repo.FindTypeByCode(ctx, db, utilitydomain.UtilityKind(slug.Make(ref)))
	}
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, utilitydomain.ErrUnknownUtilityType.WithMessage("unknown utility type %q", ref)
	}
	return found, nil
}

func toRateResponse(row utilitydomain.UnitUtility, t *utilitydomain.UtilityType) utilitydomain.RateResponse {
	resp := utilitydomain.RateResponse{
		ID:            row.ID,
		UnitID:        row.UnitID,
		UtilityTypeID: row.UtilityTypeID,
		BillingType:   row.BillingType,
		FixedRate:     nullDecimalPtr(row.FixedRate),
		UnitRate:      nullDecimalPtr(row.UnitRate),
		UpdatedAt:     row.UpdatedAt,
	}
	if t != nil {
		resp.UtilityKind = t.Code
		resp.UtilityName = t.Name
	}
	return resp
}

func nullDecimalPtr(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}
