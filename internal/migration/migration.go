package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/leasehold/internal/audit/domain"
	invoicedomain "github.com/smallbiznis/leasehold/internal/invoice/domain"
	leasedomain "github.com/smallbiznis/leasehold/internal/lease/domain"
	meterdomain "github.com/smallbiznis/leasehold/internal/meter/domain"
	paymentdomain "github.com/smallbiznis/leasehold/internal/payment/domain"
	propertydomain "github.com/smallbiznis/leasehold/internal/property/domain"
	renterdomain "github.com/smallbiznis/leasehold/internal/renter/domain"
	utilitydomain "github.com/smallbiznis/leasehold/internal/utility/domain"
	"github.com/smallbiznis/leasehold/pkg/db"
	"gorm.io/gorm"
)

// occupyingLeaseIndex keeps at most one active or pending lease per unit.
const occupyingLeaseIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_leases_unit_occupying
	ON leases (unit_id) WHERE status IN ('active', 'pending')`

// Migrate brings the schema up to date for the connection's dialect.
// Postgres runs the embedded SQL migrations; other dialects auto-migrate the models.
func Migrate(conn *gorm.DB, dialect string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if dialect == db.TypePostgres {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	return AutoMigrate(conn, dialect)
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(sqlDB *sql.DB) error {
	if sqlDB == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every table owned by the service, parents first.
func Models() []any {
	return []any{
		&renterdomain.User{},
		&propertydomain.Property{},
		&propertydomain.Unit{},
		&renterdomain.Renter{},
		&utilitydomain.UtilityType{},
		&utilitydomain.UnitUtility{},
		&meterdomain.MeterReading{},
		&leasedomain.Lease{},
		&invoicedomain.Invoice{},
		&paymentdomain.Payment{},
		&auditdomain.AuditLog{},
	}
}

// AutoMigrate creates the schema from the models. MySQL has no partial
// indexes, so lease occupancy there relies on row locks alone.
func AutoMigrate(conn *gorm.DB, dialect string) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if dialect == db.TypeMySQL {
		return nil
	}
	if err := conn.Exec(occupyingLeaseIndex).Error; err != nil {
		return fmt.Errorf("create occupying lease index: %w", err)
	}
	return nil
}
