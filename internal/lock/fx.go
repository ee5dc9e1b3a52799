package lock

import "go.uber.org/fx"

var Module = fx.Module("lease.lock",
	fx.Provide(NewLeaseGuard),
)
