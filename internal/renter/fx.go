package renter

import (
	"github.com/smallbiznis/leasehold/internal/renter/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("renter.repository",
	fx.Provide(repository.Provide),
)
