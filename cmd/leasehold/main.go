package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/leasehold/internal/clock"
	"github.com/smallbiznis/leasehold/internal/config"
	"github.com/smallbiznis/leasehold/internal/migration"
	"github.com/smallbiznis/leasehold/internal/observability"
	"github.com/smallbiznis/leasehold/internal/server"
	"github.com/smallbiznis/leasehold/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Billing domains and the HTTP surface
		server.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNodeID)
}
