package utility

import (
	"github.com/smallbiznis/leasehold/internal/utility/repository"
	"github.com/smallbiznis/leasehold/internal/utility/service"
	"go.uber.org/fx"
)

var Module = fx.Module("utility.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
