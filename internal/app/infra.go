// internal/app/infra.go
package app

import (
	"context"
	"fmt"

	"mattepass-service/internal/config"
	"mattepass-service/internal/db"
	"mattepass-service/internal/migration"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Infra holds the shared connections used by the API and the cron worker.
type Infra struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

// Connect migrates the schema, then opens PostgreSQL and Redis.
func Connect(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Infra, error) {
	if cfg.RunMigrations {
		if err := migration.Run(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("database migrations applied")
	}

	pool, err := db.ConnectDB(ctx, cfg.Postgres())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	logger.Info("connected to PostgreSQL")

	redisClient, err := db.NewRedisClient(cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

	return &Infra{Pool: pool, Redis: redisClient}, nil
}

func (i *Infra) Close() {
	_ = i.Redis.Close()
	i.Pool.Close()
}
