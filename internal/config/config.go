package config

import "time"

// ServerConfig is the root configuration for a pixhistorial instance.
type ServerConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Source    SourceConfig    `yaml:"source"`
	Collector CollectorConfig `yaml:"collector"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    HTTPConfig      `yaml:"server"`
	Health    HealthConfig    `yaml:"health"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// SourceConfig holds the external quotes API settings.
type SourceConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CollectorConfig holds collection cycle settings: the cron schedule,
// the retry policy, and the circuit breaker.
type CollectorConfig struct {
	Schedule         string        `yaml:"schedule"` // five-field cron expression
	MaxAttempts      int           `yaml:"max_attempts"`
	BaseDelay        time.Duration `yaml:"base_delay"`
	MaxDelay         time.Duration `yaml:"max_delay"`
	JitterFraction   float64       `yaml:"jitter_fraction"`
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
}

// DatabaseConfig holds the PostgreSQL connection for quote storage.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HTTPConfig holds the read API server settings.
type HTTPConfig struct {
	Port           int     `yaml:"port"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// HealthConfig holds health probe settings.
type HealthConfig struct {
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}
