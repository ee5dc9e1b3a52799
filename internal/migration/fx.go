package migration

import (
	"context"

	"github.com/smallbiznis/leasehold/internal/seed"
	"github.com/smallbiznis/leasehold/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg db.Config, log *zap.Logger) error {
		if err := Migrate(conn, cfg.Type); err != nil {
			return err
		}
		if err := seed.EnsureUtilityTypes(context.Background(), conn); err != nil {
			return err
		}
		log.Named("migrations").Info("schema ready", zap.String("dialect", cfg.Type))
		return nil
	}),
)
