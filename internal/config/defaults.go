package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultSourceTimeout    = 30 * time.Second
	DefaultSchedule         = "*/15 * * * *"
	DefaultMaxAttempts      = 3
	DefaultBaseDelay        = 1 * time.Second
	DefaultMaxDelay         = 10 * time.Second
	DefaultJitterFraction   = 0.5
	DefaultBreakerThreshold = 3
	DefaultBreakerCooldown  = 5 * time.Minute
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 10
	DefaultMinConns         = 2
	DefaultServerPort       = 8080
	DefaultRateLimitRPS     = 5
	DefaultRateLimitBurst   = 10
	DefaultProbeTimeout     = 3 * time.Second
)

func (c *ServerConfig) applyDefaults() {
	// Source defaults
	if c.Source.Timeout == 0 {
		c.Source.Timeout = DefaultSourceTimeout
	}

	// Collector defaults
	if c.Collector.Schedule == "" {
		c.Collector.Schedule = DefaultSchedule
	}
	if c.Collector.MaxAttempts == 0 {
		c.Collector.MaxAttempts = DefaultMaxAttempts
	}
	if c.Collector.BaseDelay == 0 {
		c.Collector.BaseDelay = DefaultBaseDelay
	}
	if c.Collector.MaxDelay == 0 {
		c.Collector.MaxDelay = DefaultMaxDelay
	}
	if c.Collector.JitterFraction == 0 {
		c.Collector.JitterFraction = DefaultJitterFraction
	}
	if c.Collector.BreakerThreshold == 0 {
		c.Collector.BreakerThreshold = DefaultBreakerThreshold
	}
	if c.Collector.BreakerCooldown == 0 {
		c.Collector.BreakerCooldown = DefaultBreakerCooldown
	}

	// Database defaults
	applyDBDefaults(&c.Database.Postgres)

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.RateLimitRPS == 0 {
		c.Server.RateLimitRPS = DefaultRateLimitRPS
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = DefaultRateLimitBurst
	}

	// Health defaults
	if c.Health.ProbeTimeout == 0 {
		c.Health.ProbeTimeout = DefaultProbeTimeout
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
