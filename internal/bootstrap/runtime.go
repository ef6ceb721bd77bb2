// Package bootstrap wires the process-wide runtime shared by the commands.
package bootstrap

import (
	"fmt"
	"log/slog"

	"fittedin/internal/cache"
	"fittedin/internal/config"
	"fittedin/internal/database"
	"fittedin/internal/middleware"
	"fittedin/internal/models"
	"fittedin/internal/observability"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// Migrate runs AutoMigrate even in production, where Connect skips it.
	Migrate bool
}

// InitRuntime sets up logging, connects to the database and Redis, and
// initializes the auth middleware. The Redis client is nil when Redis is
// unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	middleware.SetupLogger(cfg.Env)
	models.ExposeDetails = !cfg.IsProduction()

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.Migrate && cfg.IsProduction() {
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, err
		}
		middleware.Logger.Info("Database migration completed", slog.String("env", cfg.Env))
	}

	if err := observability.RegisterDatabaseMetrics(db); err != nil {
		return nil, nil, fmt.Errorf("register database metrics: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()

	middleware.InitMiddleware(cfg, rdb)
	return db, rdb, nil
}
