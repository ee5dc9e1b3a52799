package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/leasehold/internal/actorcontext"
	"github.com/smallbiznis/leasehold/internal/apperror"
	auditdomain "github.com/smallbiznis/leasehold/internal/audit/domain"
	auditrepo "github.com/smallbiznis/leasehold/internal/audit/repository"
	auditservice "github.com/smallbiznis/leasehold/internal/audit/service"
	"github.com/smallbiznis/leasehold/internal/clock"
	obscontext "github.com/smallbiznis/leasehold/internal/observability/context"
	"github.com/smallbiznis/leasehold/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type auditEnv struct {
	svc   auditdomain.Service
	clock *clock.FakeClock
}

func newAuditEnv(t *testing.T) auditEnv {
	t.Helper()
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := auditservice.New(auditservice.Params{
		DB:    testutil.OpenDB(t),
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Clock: fake,
		Repo:  auditrepo.Provide(),
	})
	return auditEnv{svc: svc, clock: fake}
}

func callerCtx(id int64) context.Context {
	return actorcontext.WithUserID(context.Background(), snowflake.ID(id))
}

func strPtr(v string) *string { return &v }

func TestAuditLogRecordsCallerAndMasksReceipt(t *testing.T) {
	env := newAuditEnv(t)
	ctx := callerCtx(42)
	ctx = obscontext.WithRequestID(ctx, "req-1")
	ctx = auditdomain.WithClient(ctx, " 10.0.0.8 ", "curl/8.0")

	err := env.svc.AuditLog(ctx, "payment.create", "payment", strPtr("123"), map[string]any{
		"receipt_url": "https://files.example.com/r/abcdef.png?sig=x",
		"amount_paid": "550",
	})
	require.NoError(t, err)

	items, err := env.svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, items, 1)

	entry := items[0]
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "42", *entry.ActorID)
	assert.Equal(t, "payment.create", entry.Action)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, "123", *entry.TargetID)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.8", *entry.IPAddress)
	assert.Equal(t, "https://files.example.com/****.png", entry.Metadata["receipt_url"])
	assert.Equal(t, "550", entry.Metadata["amount_paid"])
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	env := newAuditEnv(t)

	err := env.svc.AuditLog(callerCtx(1), " ", "lease", nil, nil)
	require.ErrorIs(t, err, auditdomain.ErrInvalidAction)
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))
}

func TestListIsScopedToCallerAndFiltered(t *testing.T) {
	env := newAuditEnv(t)

	require.NoError(t, env.svc.AuditLog(callerCtx(1), "lease.create", "lease", strPtr("10"), nil))
	env.clock.Advance(time.Minute)
	require.NoError(t, env.svc.AuditLog(callerCtx(1), "invoice.create", "invoice", strPtr("20"), nil))
	env.clock.Advance(time.Minute)
	require.NoError(t, env.svc.AuditLog(callerCtx(2), "lease.create", "lease", strPtr("30"), nil))

	mine, err := env.svc.List(callerCtx(1), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "invoice.create", mine[0].Action)
	assert.Equal(t, "lease.create", mine[1].Action)

	leases, err := env.svc.List(callerCtx(1), auditdomain.ListAuditLogRequest{TargetType: "lease"})
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.Equal(t, "10", *leases[0].TargetID)

	none, err := env.svc.List(callerCtx(3), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListRequiresCaller(t *testing.T) {
	env := newAuditEnv(t)

	_, err := env.svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.ErrorIs(t, err, auditdomain.ErrMissingActor)
}
