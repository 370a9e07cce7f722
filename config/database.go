package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"lettermill"`
	Password string `env:"PASSWORD"                envDefault:"lettermill"`
	Name     string `env:"NAME"                    envDefault:"lettermill"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration for the snapshot cache.
type RedisConfig struct {
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// CacheConfig contains snapshot cache configuration.
type CacheConfig struct {
	// SnapshotTTL is the TTL for cached job-list snapshots. Pollers hit
	// the list endpoint every few seconds; the TTL absorbs that read
	// load without letting snapshots go meaningfully stale.
	SnapshotTTL time.Duration `env:"CACHE_SNAPSHOT_TTL" envDefault:"2s"`
}
