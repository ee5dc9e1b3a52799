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
	leasedomain "github.com/smallbiznis/leasehold/internal/lease/domain"
	leaserepo "github.com/smallbiznis/leasehold/internal/lease/repository"
	leaseservice "github.com/smallbiznis/leasehold/internal/lease/service"
	propertyrepo "github.com/smallbiznis/leasehold/internal/property/repository"
	renterrepo "github.com/smallbiznis/leasehold/internal/renter/repository"
	"github.com/smallbiznis/leasehold/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type env struct {
	svc leasedomain.Service
	db  *gorm.DB
	fx  *testutil.Fixture
	s   testutil.Scenario
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	svc := leaseservice.New(leaseservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:         leaserepo.Provide(),
		PropertyRepo: propertyrepo.Provide(),
		RenterRepo:   renterrepo.Provide(),
	})
	fx := testutil.NewFixture(t, db, node)
	return env{svc: svc, db: db, fx: fx, s: fx.Scenario()}
}

func (e env) create(unitID snowflake.ID, status string) (*leasedomain.LeaseResponse, error) {
	return e.svc.Create(context.Background(), leasedomain.CreateRequest{
		UnitID:     unitID,
		RenterID:   e.s.Renter.ID,
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		RentAmount: decimal.NewFromInt(500),
		Status:     status,
	})
}

func (e env) unitAvailable(t *testing.T, unitID snowflake.ID) bool {
	t.Helper()
	var available bool
	require.NoError(t, e.db.Raw("SELECT is_available FROM units WHERE id = ?", unitID).Scan(&available).Error)
	return available
}

func TestCreateLeaseMarksUnitUnavailable(t *testing.T) {
	e := newEnv(t)

	lease, err := e.create(e.s.Unit.ID, "Active")
	require.NoError(t, err)
	assert.Equal(t, leasedomain.StatusActive, lease.Status)
	assert.Equal(t, "A-101", lease.UnitNumber)
	assert.Equal(t, "tenant", lease.RenterName)
	assert.Equal(t, "2024-01-01", lease.StartDate)
	assert.False(t, lease.UnitAvailable)
	assert.False(t, e.unitAvailable(t, e.s.Unit.ID))
}

func TestCreateLeaseTerminatedKeepsUnitAvailable(t *testing.T) {
	e := newEnv(t)

	_, err := e.create(e.s.Unit.ID, leasedomain.StatusTerminated)
	require.NoError(t, err)
	assert.True(t, e.unitAvailable(t, e.s.Unit.ID))
}

func TestCreateLeaseRejectsOccupiedUnit(t *testing.T) {
	e := newEnv(t)

	_, err := e.create(e.s.Unit.ID, leasedomain.StatusPending)
	require.NoError(t, err)

	_, err = e.create(e.s.Unit.ID, leasedomain.StatusActive)
	require.Error(t, err)
	assert.True(t, errors.Is(err, leasedomain.ErrUnitOccupied))
	assert.True(t, errors.Is(err, apperror.ErrConflict))

	var count int64
	require.NoError(t, e.db.Raw("SELECT COUNT(1) FROM leases").Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateLeaseValidation(t *testing.T) {
	e := newEnv(t)

	_, err := e.create(999, leasedomain.StatusActive)
	assert.True(t, errors.Is(err, leasedomain.ErrUnitNotFound))

	_, err = e.create(e.s.Unit.ID, "  ")
	assert.True(t, errors.Is(err, leasedomain.ErrInvalidStatus))

	_, err = e.svc.Create(context.Background(), leasedomain.CreateRequest{
		UnitID:     e.s.Unit.ID,
		RenterID:   e.s.Renter.ID,
		StartDate:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		RentAmount: decimal.NewFromInt(500),
		Status:     leasedomain.StatusActive,
	})
	assert.True(t, errors.Is(err, leasedomain.ErrInvalidDateRange))

	_, err = e.svc.Create(context.Background(), leasedomain.CreateRequest{
		UnitID:     e.s.Unit.ID,
		RenterID:   12345,
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		RentAmount: decimal.NewFromInt(500),
		Status:     leasedomain.StatusActive,
	})
	assert.True(t, errors.Is(err, leasedomain.ErrRenterNotFound))
	assert.True(t, e.unitAvailable(t, e.s.Unit.ID))
}

func TestUpdateLeaseMovesUnit(t *testing.T) {
	e := newEnv(t)
	other := e.fx.Unit(e.s.Property.ID, "B-202")

	lease, err := e.create(e.s.Unit.ID, leasedomain.StatusActive)
	require.NoError(t, err)

	updated, err := e.svc.Update(context.Background(), leasedomain.UpdateRequest{
		LeaseID: lease.ID,
		UnitID:  &other.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, other.ID, updated.UnitID)
	assert.True(t, e.unitAvailable(t, e.s.Unit.ID))
	assert.False(t, e.unitAvailable(t, other.ID))
}

func TestUpdateLeaseRejectsOccupiedTarget(t *testing.T) {
	e := newEnv(t)
	other := e.fx.Unit(e.s.Property.ID, "B-202")

	lease, err := e.create(e.s.Unit.ID, leasedomain.StatusActive)
	require.NoError(t, err)
	_, err = e.create(other.ID, leasedomain.StatusActive)
	require.NoError(t, err)

	_, err = e.svc.Update(context.Background(), leasedomain.UpdateRequest{LeaseID: lease.ID, UnitID: &other.ID})
	assert.True(t, errors.Is(err, leasedomain.ErrUnitOccupied))
	assert.False(t, e.unitAvailable(t, e.s.Unit.ID))
}

func TestUpdateLeaseStatusRecomputesAvailability(t *testing.T) {
	e := newEnv(t)

	lease, err := e.create(e.s.Unit.ID, leasedomain.StatusActive)
	require.NoError(t, err)

	status := leasedomain.StatusTerminated
	updated, err := e.svc.Update(context.Background(), leasedomain.UpdateRequest{LeaseID: lease.ID, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, leasedomain.StatusTerminated, updated.Status)
	assert.True(t, e.unitAvailable(t, e.s.Unit.ID))

	status = leasedomain.StatusActive
	_, err = e.svc.Update(context.Background(), leasedomain.UpdateRequest{LeaseID: lease.ID, Status: &status})
	require.NoError(t, err)
	assert.False(t, e.unitAvailable(t, e.s.Unit.ID))
}

func TestUpdateLeaseRenterMustExist(t *testing.T) {
	e := newEnv(t)

	lease, err := e.create(e.s.Unit.ID, leasedomain.StatusActive)
	require.NoError(t, err)

	missing := snowflake.ID(4242)
	_, err = e.svc.Update(context.Background(), leasedomain.UpdateRequest{LeaseID: lease.ID, RenterID: &missing})
	assert.True(t, errors.Is(err, leasedomain.ErrRenterNotFound))

	_, err = e.svc.Update(context.Background(), leasedomain.UpdateRequest{LeaseID: 777})
	assert.True(t, errors.Is(err, leasedomain.ErrLeaseNotFound))
}

func TestDeleteLeaseFreesUnitEvenIfNeverActive(t *testing.T) {
	e := newEnv(t)
	e.fx.Lease(e.s.Unit.ID, e.s.Renter.ID, leasedomain.StatusExpired, 500)
	require.NoError(t, e.db.Exec("UPDATE units SET is_available = ? WHERE id = ?", false, e.s.Unit.ID).Error)

	leases, err := e.svc.List(context.Background(), e.s.Owner.ID)
	require.NoError(t, err)
	require.Len(t, leases, 1)

	require.NoError(t, e.svc.Delete(context.Background(), leases[0].ID))
	assert.True(t, e.unitAvailable(t, e.s.Unit.ID))

	_, err = e.svc.Get(context.Background(), leases[0].ID, e.s.Owner.ID)
	assert.True(t, errors.Is(err, leasedomain.ErrLeaseNotFound))
}

func TestDeleteLeaseWithBillingRecordsConflicts(t *testing.T) {
	e := newEnv(t)
	lease := e.fx.Lease(e.s.Unit.ID, e.s.Renter.ID, leasedomain.StatusActive, 500)
	require.NoError(t, e.db.Exec(
		`INSERT INTO payments (id, lease_id, payment_date, period_key, amount_paid, method, receipt_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		991, lease.ID, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), "2024-03", "500", "cash", "",
		time.Now().UTC(), time.Now().UTC(),
	).Error)

	err := e.svc.Delete(context.Background(), lease.ID)
	assert.True(t, errors.Is(err, leasedomain.ErrLeaseHasBillingRecords))
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestGetAndListScopedToOwner(t *testing.T) {
	e := newEnv(t)
	stranger := e.fx.User("stranger")

	active, err := e.create(e.s.Unit.ID, leasedomain.StatusActive)
	require.NoError(t, err)
	other := e.fx.Unit(e.s.Property.ID, "B-202")
	_, err = e.create(other.ID, leasedomain.StatusTerminated)
	require.NoError(t, err)

	got, err := e.svc.Get(context.Background(), active.ID, e.s.Owner.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	_, err = e.svc.Get(context.Background(), active.ID, stranger.ID)
	assert.True(t, errors.Is(err, leasedomain.ErrLeaseForbidden))

	all, err := e.svc.List(context.Background(), e.s.Owner.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyActive, err := e.svc.ListActive(context.Background(), e.s.Owner.ID)
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, active.ID, onlyActive[0].ID)

	none, err := e.svc.List(context.Background(), stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLeaseWritesRejectForeignUnit(t *testing.T) {
	e := newEnv(t)
	stranger := e.fx.User("stranger")
	foreignUnit := e.fx.Unit(e.fx.Property(stranger.ID).ID, "Z-1")

	_, err := e.svc.Create(context.Background(), leasedomain.CreateRequest{
		OwnerID:    stranger.ID,
		UnitID:     e.s.Unit.ID,
		RenterID:   e.s.Renter.ID,
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		RentAmount: decimal.NewFromInt(500),
		Status:     leasedomain.StatusActive,
	})
	assert.True(t, errors.Is(err, leasedomain.ErrLeaseForbidden))
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
	assert.True(t, e.unitAvailable(t, e.s.Unit.ID))

	lease, err := e.svc.Create(context.Background(), leasedomain.CreateRequest{
		OwnerID:    e.s.Owner.ID,
		UnitID:     e.s.Unit.ID,
		RenterID:   e.s.Renter.ID,
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		RentAmount: decimal.NewFromInt(500),
		Status:     leasedomain.StatusActive,
	})
	require.NoError(t, err)

	_, err = e.svc.Update(context.Background(), leasedomain.UpdateRequest{
		OwnerID: e.s.Owner.ID,
		LeaseID: lease.ID,
		UnitID:  &foreignUnit.ID,
	})
	assert.True(t, errors.Is(err, leasedomain.ErrLeaseForbidden))
	assert.True(t, e.unitAvailable(t, foreignUnit.ID))
	assert.False(t, e.unitAvailable(t, e.s.Unit.ID))
}
