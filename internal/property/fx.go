package property

import (
	"github.com/smallbiznis/leasehold/internal/property/repository"
	"go.uber.org/fx"
)

// Module provides unit and property accessors. Property CRUD lives outside this service.
var Module = fx.Module("property.repository",
	fx.Provide(repository.Provide),
)
