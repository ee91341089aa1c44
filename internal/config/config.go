// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"mattepass-service/internal/db"
	"mattepass-service/internal/pkg/jwt"

	"github.com/spf13/viper"
)

type AppConfig struct {
	// Server
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`
	MetricsPath string `mapstructure:"METRICS_PATH"`

	// Postgres
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	RunMigrations bool   `mapstructure:"RUN_MIGRATIONS"`

	// Redis
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPass     string `mapstructure:"REDIS_PASS"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPoolSize int    `mapstructure:"REDIS_POOL_SIZE"`

	// JWT
	JWTPrivateKeyPath string        `mapstructure:"JWT_PRIVATE_KEY_PATH"`
	JWTPublicKeyPath  string        `mapstructure:"JWT_PUBLIC_KEY_PATH"`
	JWTIssuer         string        `mapstructure:"JWT_ISSUER"`
	JWTAudience       string        `mapstructure:"JWT_AUDIENCE"`
	JWTTTL            time.Duration `mapstructure:"JWT_TTL"`
	JWTKeyID          string        `mapstructure:"JWT_KID"`

	// Bootstrap admin
	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`

	// Jobs and caching
	LifecycleSchedule string        `mapstructure:"LIFECYCLE_SCHEDULE"`
	CronMetricsAddr   string        `mapstructure:"CRON_METRICS_ADDR"`
	PlanCacheTTL      time.Duration `mapstructure:"PLAN_CACHE_TTL"`
}

var keys = []string{
	"HTTP_ADDR", "METRICS_PATH",
	"DATABASE_URL", "DB_MAX_CONNS", "RUN_MIGRATIONS",
	"REDIS_ADDR", "REDIS_PASS", "REDIS_DB", "REDIS_POOL_SIZE",
	"JWT_PRIVATE_KEY_PATH", "JWT_PUBLIC_KEY_PATH", "JWT_ISSUER", "JWT_AUDIENCE", "JWT_TTL", "JWT_KID",
	"ADMIN_USERNAME", "ADMIN_EMAIL", "ADMIN_PASSWORD",
	"LIFECYCLE_SCHEDULE", "CRON_METRICS_ADDR", "PLAN_CACHE_TTL",
}

// Load reads configuration from environment variables.
func Load() (*AppConfig, error) {
	viper.SetDefault("HTTP_ADDR", ":8000")
	viper.SetDefault("METRICS_PATH", "/metrics")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("RUN_MIGRATIONS", true)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 10)
	viper.SetDefault("JWT_PRIVATE_KEY_PATH", "/app/secrets/jwt_private.pem")
	viper.SetDefault("JWT_PUBLIC_KEY_PATH", "/app/secrets/jwt_public.pem")
	viper.SetDefault("JWT_ISSUER", "mattepass")
	viper.SetDefault("JWT_AUDIENCE", "mattepass-users")
	viper.SetDefault("JWT_TTL", 24*time.Hour)
	viper.SetDefault("JWT_KID", "mattepass-key")
	viper.SetDefault("LIFECYCLE_SCHEDULE", "*/15 * * * *") // every 15 minutes
	viper.SetDefault("CRON_METRICS_ADDR", ":9091")
	viper.SetDefault("PLAN_CACHE_TTL", 10*time.Minute)
	viper.AutomaticEnv()

	// unset keys without defaults only reach Unmarshal when bound
	for _, key := range keys {
		_ = viper.BindEnv(key)
	}

	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTTTL <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be positive")
	}
	return &cfg, nil
}

func (c *AppConfig) JWT() jwt.Config {
	return jwt.Config{
		PrivPath: c.JWTPrivateKeyPath,
		PubPath:  c.JWTPublicKeyPath,
		Issuer:   c.JWTIssuer,
		Audience: c.JWTAudience,
		TTL:      c.JWTTTL,
		KID:      c.JWTKeyID,
	}
}

func (c *AppConfig) Postgres() db.PostgresConfig {
	return db.PostgresConfig{URL: c.DatabaseURL, MaxConns: c.DBMaxConns}
}

func (c *AppConfig) Redis() db.RedisConfig {
	return db.RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPass,
		DB:       c.RedisDB,
		PoolSize: c.RedisPoolSize,
	}
}
