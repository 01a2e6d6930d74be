package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"jobtrack"`
	Password string `env:"PASSWORD"                envDefault:"jobtrack"`
	Name     string `env:"NAME"                    envDefault:"jobtrack"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
}

// CacheConfig contains TTL settings for the Redis-backed cache layer.
type CacheConfig struct {
	// StatsTTL is the TTL for memoized aggregate metrics.
	StatsTTL time.Duration `env:"CACHE_STATS_TTL" envDefault:"10m"`

	// ConfigTTL is the TTL for operator configuration entries such as
	// alert thresholds. One year, effectively durable.
	ConfigTTL time.Duration `env:"CACHE_CONFIG_TTL" envDefault:"8760h"`

	// CredentialTTL is the TTL for stored tracker OAuth credentials.
	CredentialTTL time.Duration `env:"CACHE_CREDENTIAL_TTL" envDefault:"8760h"`
}

// Sanitize applies guardrails to cache configuration values.
func (c *CacheConfig) Sanitize() {
	if c.StatsTTL <= 0 {
		c.StatsTTL = 10 * time.Minute
	}
	if c.ConfigTTL <= 0 {
		c.ConfigTTL = 8760 * time.Hour
	}
	if c.CredentialTTL <= 0 {
		c.CredentialTTL = 8760 * time.Hour
	}
}
