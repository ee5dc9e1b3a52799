package testutil

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	leasedomain "github.com/smallbiznis/leasehold/internal/lease/domain"
	propertydomain "github.com/smallbiznis/leasehold/internal/property/domain"
	renterdomain "github.com/smallbiznis/leasehold/internal/renter/domain"
	utilitydomain "github.com/smallbiznis/leasehold/internal/utility/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Built-in utility type ids seeded by OpenDB.
const (
	ElectricityTypeID = snowflake.ID(1)
	WaterTypeID       = snowflake.ID(2)
)

// Fixture seeds rows directly, bypassing the services under test.
type Fixture struct {
	t    testing.TB
	db   *gorm.DB
	node *snowflake.Node
	now  time.Time
}

func NewFixture(t testing.TB, db *gorm.DB, node *snowflake.Node) *Fixture {
	return &Fixture{t: t, db: db, node: node, now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *Fixture) create(value any) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(value).Error)
}

func (f *Fixture) User(name string) renterdomain.User {
	f.t.Helper()
	user := renterdomain.User{
		ID:        f.node.Generate(),
		Username:  name,
		Email:     name + "@example.com",
		Phone:     "+62-800-0000",
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}
	f.create(&user)
	return user
}

func (f *Fixture) Property(ownerID snowflake.ID) propertydomain.Property {
	f.t.Helper()
	property := propertydomain.Property{
		ID:        f.node.Generate(),
		OwnerID:   ownerID,
		Name:      "Green Residence",
		Address:   "Jl. Melati 12",
		City:      "Bandung",
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}
	f.create(&property)
	return property
}

func (f *Fixture) Unit(propertyID snowflake.ID, number string) propertydomain.Unit {
	f.t.Helper()
	unit := propertydomain.Unit{
		ID:          f.node.Generate(),
		PropertyID:  propertyID,
		UnitNumber:  number,
		IsAvailable: true,
		CreatedAt:   f.now,
		UpdatedAt:   f.now,
	}
	f.create(&unit)
	return unit
}

// Renter creates a tenant user managed by ownerID.
func (f *Fixture) Renter(ownerID snowflake.ID, name string) (renterdomain.User, renterdomain.Renter) {
	f.t.Helper()
	user := f.User(name)
	renter := renterdomain.Renter{
		ID:        f.node.Generate(),
		UserID:    user.ID,
		OwnerID:   ownerID,
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}
	f.create(&renter)
	return user, renter
}

func (f *Fixture) Lease(unitID, renterID snowflake.ID, status string, rent int64) leasedomain.Lease {
	f.t.Helper()
	lease := leasedomain.Lease{
		ID:         f.node.Generate(),
		UnitID:     unitID,
		RenterID:   renterID,
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		RentAmount: decimal.NewFromInt(rent),
		Status:     status,
		CreatedAt:  f.now,
		UpdatedAt:  f.now,
	}
	f.create(&lease)
	return lease
}

func (f *Fixture) Rate(unitID, typeID snowflake.ID, billingType utilitydomain.BillingType, amount string) utilitydomain.UnitUtility {
	f.t.Helper()
	row := utilitydomain.UnitUtility{
		ID:            f.node.Generate(),
		UnitID:        unitID,
		UtilityTypeID: typeID,
		CreatedAt:     f.now,
		UpdatedAt:     f.now,
	}
	row.ApplyRate(billingType, decimal.RequireFromString(amount))
	f.create(&row)
	return row
}

// Scenario is an owner with one property, unit and renter.
type Scenario struct {
	Owner      renterdomain.User
	Property   propertydomain.Property
	Unit       propertydomain.Unit
	RenterUser renterdomain.User
	Renter     renterdomain.Renter
}

func (f *Fixture) Scenario() Scenario {
	f.t.Helper()
	owner := f.User("landlord")
	property := f.Property(owner.ID)
	unit := f.Unit(property.ID, "A-101")
	renterUser, renter := f.Renter(owner.ID, "tenant")
	return Scenario{
		Owner:      owner,
		Property:   property,
		Unit:       unit,
		RenterUser: renterUser,
		Renter:     renter,
	}
}
