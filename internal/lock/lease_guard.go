package lock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/leasehold/internal/apperror"
	"github.com/smallbiznis/leasehold/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyLeaseBilling = "leasehold:lease:%s:billing"

var ErrOperationInProgress = apperror.Conflict("operation_in_progress")

// LeaseGuard serializes invoice and payment writes per lease across replicas.
// A nil guard admits every caller; row locks in the store still apply.
type LeaseGuard struct {
	locker *Locker
	ttl    time.Duration
	log    *zap.Logger
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

func NewLeaseGuard(p Params) (*LeaseGuard, error) {
	addr := strings.TrimSpace(p.Config.RedisAddr)
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(p.Config.RedisPassword),
		DB:       p.Config.RedisDB,
	})

	ttl := p.Config.LeaseLockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}

	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
	}

	return &LeaseGuard{
		locker: NewLocker(client),
		ttl:    ttl,
		log:    p.Log.Named("lease.guard"),
	}, nil
}

// NewLeaseGuardWithClient builds a guard over an existing client.
func NewLeaseGuardWithClient(client redis.UniversalClient, ttl time.Duration, log *zap.Logger) *LeaseGuard {
	if client == nil {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LeaseGuard{locker: NewLocker(client), ttl: ttl, log: log}
}

// Acquire takes the lease's billing lock. The returned release func is never nil.
func (g *LeaseGuard) Acquire(ctx context.Context, leaseID snowflake.ID) (func(), error) {
	if g == nil || g.locker == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf(keyLeaseBilling, leaseID.String())
	token, ok, err := g.locker.TryLock(ctx, key, g.ttl)
	if err != nil {
		return func() {}, apperror.Internal(err)
	}
	if !ok {
		return func() {}, ErrOperationInProgress
	}

	return func() {
		// the caller's ctx may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := g.locker.Release(releaseCtx, key, token); err != nil {
			g.log.Warn("release lease lock failed", zap.String("lease_id", leaseID.String()), zap.Error(err))
		}
	}, nil
}
