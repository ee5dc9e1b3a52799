package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/leasehold/internal/apperror"
	"github.com/smallbiznis/leasehold/internal/clock"
	"github.com/smallbiznis/leasehold/internal/config"
	leasedomain "github.com/smallbiznis/leasehold/internal/lease/domain"
	leaserepo "github.com/smallbiznis/leasehold/internal/lease/repository"
	meterdomain "github.com/smallbiznis/leasehold/internal/meter/domain"
	meterrepo "github.com/smallbiznis/leasehold/internal/meter/repository"
	meterservice "github.com/smallbiznis/leasehold/internal/meter/service"
	paymentdomain "github.com/smallbiznis/leasehold/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/leasehold/internal/payment/repository"
	paymentservice "github.com/smallbiznis/leasehold/internal/payment/service"
	propertyrepo "github.com/smallbiznis/leasehold/internal/property/repository"
	renterrepo "github.com/smallbiznis/leasehold/internal/renter/repository"
	"github.com/smallbiznis/leasehold/internal/testutil"
	utilitydomain "github.com/smallbiznis/leasehold/internal/utility/domain"
	utilityrepo "github.com/smallbiznis/leasehold/internal/utility/repository"
	utilityservice "github.com/smallbiznis/leasehold/internal/utility/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type env struct {
	svc   paymentdomain.Service
	meter meterdomain.Service
	db    *gorm.DB
	fx    *testutil.Fixture
	s     testutil.Scenario
	lease leasedomain.Lease
}

func newEnv(t *testing.T, cfg config.BillingConfig) env {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC))
	billing := config.NewStaticBillingConfigHolder(cfg)

	utilities := utilityrepo.Provide()
	properties := propertyrepo.Provide()
	meterSvc := meterservice.New(meterservice.Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clk,
		Repo:    meterrepo.Provide(),
		Billing: billing,
	})
	utilitySvc := utilityservice.New(utilityservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		Repo:         utilities,
		PropertyRepo: properties,
	})
	svc := paymentservice.New(paymentservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		Repo:         paymentrepo.Provide(),
		LeaseRepo:    leaserepo.Provide(),
		PropertyRepo: properties,
		RenterRepo:   renterrepo.Provide(),
		UtilityRepo:  utilities,
		UtilitySvc:   utilitySvc,
		MeterSvc:     meterSvc,
		Billing:      billing,
	})

	fx := testutil.NewFixture(t, db, node)
	s := fx.Scenario()
	lease := fx.Lease(s.Unit.ID, s.Renter.ID, leasedomain.StatusActive, 500)
	return env{svc: svc, meter: meterSvc, db: db, fx: fx, s: s, lease: lease}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (e env) pay(date time.Time, readings ...paymentdomain.ReadingInput) (*paymentdomain.PaymentDetail, error) {
	return e.svc.Create(context.Background(), paymentdomain.CreateRequest{
		LeaseID:     e.lease.ID,
		PaymentDate: date,
		AmountPaid:  decimal.NewFromInt(550),
		Method:      " transfer ",
		Readings:    readings,
	})
}

func (e env) unitReadings(t *testing.T, typeID snowflake.ID) []meterdomain.MeterReading {
	t.Helper()
	items, err := e.meter.ListReadings(context.Background(), meterdomain.ListRequest{
		UnitID:        e.s.Unit.ID,
		UtilityTypeID: typeID,
	})
	require.NoError(t, err)
	return items
}

func electricity(value int64) paymentdomain.ReadingInput {
	return paymentdomain.ReadingInput{Kind: "electricity", Value: decimal.NewFromInt(value)}
}

func water(value int64) paymentdomain.ReadingInput {
	return paymentdomain.ReadingInput{Kind: "water", Value: decimal.NewFromInt(value)}
}

func TestCreatePaymentRecordsReadings(t *testing.T) {
	e := newEnv(t, config.DefaultBillingConfig())
	e.fx.Rate(e.s.Unit.ID, testutil.ElectricityTypeID, utilitydomain.BillingTypePerUnit, "1.5")

	first, err := e.pay(day(2024, 2, 5), electricity(100))
	require.NoError(t, err)
	assert.Equal(t, "2024-02-05", first.PaymentDate)

	detail, err := e.pay(day(2024, 3, 5), electricity(120), water(30))
	require.NoError(t, err)
	assert.Equal(t, "transfer", detail.Method)
	assert.Equal(t, "A-101", detail.UnitNumber)
	assert.Equal(t, "Green Residence", detail.PropertyName)
	assert.Equal(t, "tenant", detail.RenterName)
	assert.Equal(t, "landlord", detail.OwnerName)
	require.Len(t, detail.Readings, 2)

	byKind := map[string]paymentdomain.ReadingDetail{}
	for _, r := range detail.Readings {
		byKind[r.UtilityKind] = r
	}
	elec := byKind["electricity"]
	assert.True(t, elec.PreviousReading.Equal(decimal.NewFromInt(100)))
	assert.True(t, elec.CurrentReading.Equal(decimal.NewFromInt(120)))
	assert.True(t, elec.Usage.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, string(utilitydomain.BillingTypePerUnit), elec.BillingType)
	require.NotNil(t, elec.UnitRate)
	assert.True(t, elec.UnitRate.Equal(decimal.RequireFromString("1.5")))

	wat := byKind["water"]
	assert.True(t, wat.PreviousReading.IsZero())
	assert.Empty(t, wat.BillingType)

	list, err := e.svc.List(context.Background(), e.s.Owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, detail.ID, list[0].ID)
}

func TestCreatePaymentPassesUsageOverride(t *testing.T) {
	e := newEnv(t, config.DefaultBillingConfig())
	usage := decimal.NewFromInt(4)

	reading := electricity(120)
	reading.Usage = &usage
	_, err := e.pay(day(2024, 3, 5), reading)
	require.NoError(t, err)

	items := e.unitReadings(t, testutil.ElectricityTypeID)
	require.Len(t, items, 1)
	assert.True(t, items[0].Usage.Equal(usage), "usage=%s", items[0].Usage)
	assert.True(t, items[0].UsageOverridden())
}

func TestCreatePaymentRejectsSecondPaymentInMonth(t *testing.T) {
	e := newEnv(t, config.DefaultBillingConfig())

	_, err := e.pay(day(2024, 3, 5))
	require.NoError(t, err)

	_, err = e.pay(day(2024, 3, 28), electricity(200))
	require.Error(t, err)
	assert.True(t, errors.Is(err, paymentdomain.ErrDuplicatePayment))
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	var readings int64
	require.NoError(t, e.db.Raw("SELECT COUNT(1) FROM meter_readings").Scan(&readings).Error)
	assert.Zero(t, readings)
}

func TestCreatePaymentValidation(t *testing.T) {
	e := newEnv(t, config.DefaultBillingConfig())

	_, err := e.svc.Create(context.Background(), paymentdomain.CreateRequest{
		LeaseID:     424242,
		PaymentDate: day(2024, 3, 5),
		AmountPaid:  decimal.NewFromInt(10),
	})
	assert.True(t, errors.Is(err, paymentdomain.ErrLeaseNotFound))
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))

	_, err = e.svc.Create(context.Background(), paymentdomain.CreateRequest{
		LeaseID:     e.lease.ID,
		PaymentDate: day(2024, 3, 5),
		AmountPaid:  decimal.NewFromInt(-1),
	})
	assert.True(t, errors.Is(err, paymentdomain.ErrInvalidAmount))

	_, err = e.svc.Create(context.Background(), paymentdomain.CreateRequest{
		LeaseID:    e.lease.ID,
		AmountPaid: decimal.NewFromInt(1),
	})
	assert.True(t, errors.Is(err, paymentdomain.ErrInvalidPaymentDate))

	_, err = e.pay(day(2024, 3, 5), paymentdomain.ReadingInput{Kind: "gas", Value: decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, utilitydomain.ErrUnknownUtilityType))
}

func TestCreatePaymentRejectsUnacceptedReadingKind(t *testing.T) {
	cfg := config.DefaultBillingConfig()
	cfg.Payment.ReadingKinds = []string{"electricity"}
	e := newEnv(t, cfg)

	_, err := e.pay(day(2024, 3, 5), electricity(120), water(30))
	assert.True(t, errors.Is(err, paymentdomain.ErrReadingKindRejected))

	var count int64
	require.NoError(t, e.db.Raw("SELECT COUNT(1) FROM payments").Scan(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, e.db.Raw("SELECT COUNT(1) FROM meter_readings").Scan(&count).Error)
	assert.Zero(t, count, "electricity reading rolled back with the payment")
}

func TestUpdatePaymentMovesMonth(t *testing.T) {
	e := newEnv(t, config.DefaultBillingConfig())

	march, err := e.pay(day(2024, 3, 5))
	require.NoError(t, err)
	_, err = e.pay(day(2024, 4, 5))
	require.NoError(t, err)

	april := day(2024, 4, 20)
	_, err = e.svc.Update(context.Background(), paymentdomain.UpdateRequest{PaymentID: march.ID, PaymentDate: &april})
	assert.True(t, errors.Is(err, paymentdomain.ErrDuplicatePayment))

	may := day(2024, 5, 2)
	amount := decimal.NewFromInt(600)
	method := "cash"
	updated, err := e.svc.Update(context.Background(), paymentdomain.UpdateRequest{
		PaymentID:   march.ID,
		PaymentDate: &may,
		AmountPaid:  &amount,
		Method:      &method,
		Readings:    []paymentdomain.ReadingInput{electricity(140)},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02", updated.PaymentDate)
	assert.True(t, updated.AmountPaid.Equal(amount))
	assert.Equal(t, "cash", updated.Method)
	require.Len(t, updated.Readings, 1)
	assert.True(t, updated.Readings[0].CurrentReading.Equal(decimal.NewFromInt(140)))

	_, err = e.svc.Update(context.Background(), paymentdomain.UpdateRequest{PaymentID: 99})
	assert.True(t, errors.Is(err, paymentdomain.ErrPaymentNotFound))
}

func TestDeletePaymentRemovesReadingsOfItsMonth(t *testing.T) {
	e := newEnv(t, config.DefaultBillingConfig())

	require.NoError(t, e.db.Transaction(func(tx *gorm.DB) error {
		_, err := e.meter.UpsertReading(context.Background(), tx, meterdomain.UpsertReadingRequest{
			UnitID:        e.s.Unit.ID,
			UtilityTypeID: testutil.ElectricityTypeID,
			UtilityKind:   "electricity",
			CurrentValue:  decimal.NewFromInt(100),
			ReadingDate:   day(2024, 2, 10),
		})
		return err
	}))

	payment, err := e.pay(day(2024, 3, 5), electricity(120), water(30))
	require.NoError(t, err)

	summary, err := e.svc.Delete(context.Background(), payment.ID, e.s.Owner.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, summary.ID)
	assert.Equal(t, "2024-03-05", summary.PaymentDate)

	elec := e.unitReadings(t, testutil.ElectricityTypeID)
	require.Len(t, elec, 1)
	assert.True(t, elec[0].CurrentReading.Equal(decimal.NewFromInt(100)))
	assert.Empty(t, e.unitReadings(t, testutil.WaterTypeID))

	_, err = e.svc.Delete(context.Background(), payment.ID, 0)
	assert.True(t, errors.Is(err, paymentdomain.ErrPaymentNotFound))
}

func TestPaymentMutationsRejectForeignOwner(t *testing.T) {
	e := newEnv(t, config.DefaultBillingConfig())
	ctx := context.Background()
	stranger := e.fx.User("stranger")

	_, err := e.svc.Create(ctx, paymentdomain.CreateRequest{
		OwnerID:     stranger.ID,
		LeaseID:     e.lease.ID,
		PaymentDate: day(2024, 3, 5),
		AmountPaid:  decimal.NewFromInt(550),
	})
	assert.True(t, errors.Is(err, paymentdomain.ErrPaymentForbidden))
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	payment, err := e.svc.Create(ctx, paymentdomain.CreateRequest{
		OwnerID:     e.s.Owner.ID,
		LeaseID:     e.lease.ID,
		PaymentDate: day(2024, 3, 5),
		AmountPaid:  decimal.NewFromInt(550),
	})
	require.NoError(t, err)

	amount := decimal.NewFromInt(1)
	_, err = e.svc.Update(ctx, paymentdomain.UpdateRequest{
		OwnerID:    stranger.ID,
		PaymentID:  payment.ID,
		AmountPaid: &amount,
	})
	assert.True(t, errors.Is(err, paymentdomain.ErrPaymentForbidden))

	// Moving the payment onto another owner's lease is rejected as well.
	property := e.fx.Property(stranger.ID)
	unit := e.fx.Unit(property.ID, "B2")
	_, renter := e.fx.Renter(stranger.ID, "other-renter")
	foreign := e.fx.Lease(unit.ID, renter.ID, leasedomain.StatusActive, 300)
	_, err = e.svc.Update(ctx, paymentdomain.UpdateRequest{
		OwnerID:   e.s.Owner.ID,
		PaymentID: payment.ID,
		LeaseID:   &foreign.ID,
	})
	assert.True(t, errors.Is(err, paymentdomain.ErrPaymentForbidden))

	_, err = e.svc.Delete(ctx, payment.ID, stranger.ID)
	assert.True(t, errors.Is(err, paymentdomain.ErrPaymentForbidden))

	items, err := e.svc.List(ctx, e.s.Owner.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].AmountPaid.Equal(decimal.NewFromInt(550)))
	assert.Equal(t, e.lease.ID, items[0].LeaseID)
}
