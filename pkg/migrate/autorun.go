package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/gemline-backend/pkg/config"
	"github.com/angelmondragon/gemline-backend/pkg/db"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date on boot when running in dev with
// auto-migrate enabled. Postgres gets the embedded goose migrations; sqlite is
// built straight from the gorm models.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.DB.IsSQLite() {
		logg.Info(logg.WithField(ctx, "db_driver", cfg.DB.Driver), "migrate.sqlite_automigrate")
		if err := client.AutoMigrate(ctx); err != nil {
			return fmt.Errorf("sqlite auto-migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "source": "embedded"})
	logg.Info(ctx, "migrate.dev_autorun_started")
	if err := Run(ctx, sqlDB, Migrations(), "up", logg); err != nil {
		return fmt.Errorf("dev auto-migrate: %w", err)
	}
	logg.Info(ctx, "migrate.dev_autorun_completed")
	return nil
}
