package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leasehold/internal/apperror"
	"github.com/smallbiznis/leasehold/internal/clock"
	propertyrepo "github.com/smallbiznis/leasehold/internal/property/repository"
	"github.com/smallbiznis/leasehold/internal/testutil"
	utilitydomain "github.com/smallbiznis/leasehold/internal/utility/domain"
	utilityrepo "github.com/smallbiznis/leasehold/internal/utility/repository"
	utilityservice "github.com/smallbiznis/leasehold/internal/utility/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (utilitydomain.Service, *gorm.DB, *testutil.Fixture) {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	svc := utilityservice.New(utilityservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:         utilityrepo.Provide(),
		PropertyRepo: propertyrepo.Provide(),
	})
	return svc, db, testutil.NewFixture(t, db, node)
}

func countRates(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Raw("SELECT COUNT(1) FROM unit_utilities").Scan(&count).Error)
	return count
}

func TestUpsertRatesInsertsAndReplaces(t *testing.T) {
	ctx := context.Background()
	svc, db, fx := newService(t)
	s := fx.Scenario()

	rates, err := svc.UpsertRates(ctx, utilitydomain.UpsertRatesRequest{
		UnitID: s.Unit.ID,
		Rates: []utilitydomain.RateInput{
			{UtilityType: "electricity", BillingType: "per_unit", Amount: "1.5"},
			{UtilityType: "water", BillingType: "fixed", Amount: "20"},
		},
	})
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, int64(2), countRates(t, db))

	rates, err = svc.UpsertRates(ctx, utilitydomain.UpsertRatesRequest{
		UnitID: s.Unit.ID,
		Rates: []utilitydomain.RateInput{
			{UtilityType: "electricity", BillingType: "fixed", Amount: "75"},
		},
	})
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, int64(1), countRates(t, db))

	rate := rates[0]
	assert.Equal(t, utilitydomain.KindElectricity, rate.UtilityKind)
	assert.Equal(t, utilitydomain.BillingTypeFixed, rate.BillingType)
	require.NotNil(t, rate.FixedRate)
	assert.True(t, rate.FixedRate.Equal(decimal.NewFromInt(75)))
	assert.Nil(t, rate.UnitRate)
}

func TestUpsertRatesAcceptsUtilityTypeID(t *testing.T) {
	svc, _, fx := newService(t)
	s := fx.Scenario()

	rates, err := svc.UpsertRates(context.Background(), utilitydomain.UpsertRatesRequest{
		UnitID: s.Unit.ID,
		Rates:  []utilitydomain.RateInput{{UtilityType: "2", BillingType: "fixed", Amount: "10"}},
	})
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, utilitydomain.KindWater, rates[0].UtilityKind)
}

func TestUpsertRatesInvalidAmountRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, db, fx := newService(t)
	s := fx.Scenario()
	fx.Rate(s.Unit.ID, testutil.WaterTypeID, utilitydomain.BillingTypeFixed, "20")

	_, err := svc.UpsertRates(ctx, utilitydomain.UpsertRatesRequest{
		UnitID: s.Unit.ID,
		Rates: []utilitydomain.RateInput{
			{UtilityType: "electricity", BillingType: "per_unit", Amount: "1.5"},
			{UtilityType: "water", BillingType: "fixed", Amount: "twenty"},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, utilitydomain.ErrInvalidAmount))
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "water")

	rates, err := svc.ListRates(ctx, s.Unit.ID)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, utilitydomain.KindWater, rates[0].UtilityKind)
	assert.True(t, rates[0].FixedRate.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, int64(1), countRates(t, db))
}

func TestUpsertRatesRejectsUnknownInputs(t *testing.T) {
	svc, _, fx := newService(t)
	s := fx.Scenario()

	_, err := svc.UpsertRates(context.Background(), utilitydomain.UpsertRatesRequest{
		UnitID: s.Unit.ID,
		Rates:  []utilitydomain.RateInput{{UtilityType: "gas", BillingType: "fixed", Amount: "1"}},
	})
	assert.True(t, errors.Is(err, utilitydomain.ErrUnknownUtilityType))

	_, err = svc.UpsertRates(context.Background(), utilitydomain.UpsertRatesRequest{
		UnitID: s.Unit.ID,
		Rates:  []utilitydomain.RateInput{{UtilityType: "water", BillingType: "tiered", Amount: "1"}},
	})
	assert.True(t, errors.Is(err, utilitydomain.ErrInvalidBillingType))
}

func TestUpsertRatesMissingUnit(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.UpsertRates(context.Background(), utilitydomain.UpsertRatesRequest{
		UnitID: 999,
		Rates:  []utilitydomain.RateInput{{UtilityType: "water", BillingType: "fixed", Amount: "1"}},
	})
	assert.True(t, errors.Is(err, utilitydomain.ErrUnitNotFound))
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestUpsertRatesRejectsForeignOwner(t *testing.T) {
	svc, db, fx := newService(t)
	s := fx.Scenario()
	fx.Rate(s.Unit.ID, testutil.WaterTypeID, utilitydomain.BillingTypeFixed, "20")
	stranger := fx.User("stranger")

	_, err := svc.UpsertRates(context.Background(), utilitydomain.UpsertRatesRequest{
		OwnerID: stranger.ID,
		UnitID:  s.Unit.ID,
	})
	assert.True(t, errors.Is(err, utilitydomain.ErrUnitForbidden))
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
	assert.Equal(t, int64(1), countRates(t, db))

	rates, err := svc.UpsertRates(context.Background(), utilitydomain.UpsertRatesRequest{
		OwnerID: s.Owner.ID,
		UnitID:  s.Unit.ID,
		Rates:   []utilitydomain.RateInput{{UtilityType: "water", BillingType: "fixed", Amount: "25"}},
	})
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.True(t, rates[0].FixedRate.Equal(decimal.NewFromInt(25)))
}

func TestUpsertRatesDuplicateKindLastWins(t *testing.T) {
	svc, db, fx := newService(t)
	s := fx.Scenario()

	rates, err := svc.UpsertRates(context.Background(), utilitydomain.UpsertRatesRequest{
		UnitID: s.Unit.ID,
		Rates: []utilitydomain.RateInput{
			{UtilityType: "water", BillingType: "fixed", Amount: "10"},
			{UtilityType: "water", BillingType: "per_unit", Amount: "3"},
		},
	})
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, utilitydomain.BillingTypePerUnit, rates[0].BillingType)
	assert.True(t, rates[0].UnitRate.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, int64(1), countRates(t, db))
}

func TestUpsertRatesEmptyListClearsUnit(t *testing.T) {
	svc, db, fx := newService(t)
	s := fx.Scenario()
	fx.Rate(s.Unit.ID, testutil.WaterTypeID, utilitydomain.BillingTypeFixed, "20")

	rates, err := svc.UpsertRates(context.Background(), utilitydomain.UpsertRatesRequest{UnitID: s.Unit.ID})
	require.NoError(t, err)
	assert.Empty(t, rates)
	assert.Equal(t, int64(0), countRates(t, db))
}

func TestCreateUtilityType(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	created, err := svc.CreateUtilityType(ctx, utilitydomain.CreateUtilityTypeRequest{Name: "Natural Gas"})
	require.NoError(t, err)
	assert.Equal(t, utilitydomain.UtilityKind("natural-gas"), created.Code)

	_, err = svc.CreateUtilityType(ctx, utilitydomain.CreateUtilityTypeRequest{Name: "Natural Gas"})
	assert.True(t, errors.Is(err, utilitydomain.ErrDuplicateUtilityType))

	_, err = svc.CreateUtilityType(ctx, utilitydomain.CreateUtilityTypeRequest{Name: "  "})
	assert.True(t, errors.Is(err, utilitydomain.ErrInvalidUtilityTypeName))

	types, err := svc.ListUtilityTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 3)

	resolved, err := svc.ResolveKind(ctx, nil, "Natural Gas")
	require.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)
}
