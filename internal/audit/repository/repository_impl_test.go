package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	auditdomain "github.com/smallbiznis/leasehold/internal/audit/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return conn, mock
}

func TestInsertWritesAuditRow(t *testing.T) {
	conn, mock := newMockDB(t)
	actor := "42"

	mock.ExpectExec(`INSERT INTO audit_logs \(id, actor_id, action, target_type, target_id, metadata, ip_address, user_agent, created_at\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := Provide().Insert(context.Background(), conn, &auditdomain.AuditLog{
		ID:         1,
		ActorID:    &actor,
		Action:     "lease.create",
		TargetType: "lease",
		CreatedAt:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReturnsDriverError(t *testing.T) {
	conn, mock := newMockDB(t)

	mock.ExpectExec(`INSERT INTO audit_logs`).WillReturnError(errors.New("connection refused"))

	err := Provide().Insert(context.Background(), conn, &auditdomain.AuditLog{ID: 1, Action: "x", TargetType: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFiltersAndOrders(t *testing.T) {
	conn, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "actor_id", "action", "target_type", "target_id", "created_at"}).
		AddRow(2, "42", "invoice.create", "invoice", "20", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)).
		AddRow(1, "42", "lease.create", "lease", "10", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	mock.ExpectQuery(`SELECT \* FROM "audit_logs" WHERE .*actor_id.* ORDER BY created_at DESC, id DESC LIMIT`).
		WillReturnRows(rows)

	items, err := Provide().List(context.Background(), conn, auditdomain.ListFilter{ActorID: " 42 "})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "invoice.create", items[0].Action)
	require.NotNil(t, items[1].TargetID)
	assert.Equal(t, "10", *items[1].TargetID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
