package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks that all required fields are set and values are valid.
func (c *ServerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Source.URL == "" {
		return errors.New("source.url is required")
	}
	if c.Source.Timeout <= 0 {
		return errors.New("source.timeout must be positive")
	}

	if _, err := cron.ParseStandard(c.Collector.Schedule); err != nil {
		return fmt.Errorf("collector.schedule is not a valid cron expression: %w", err)
	}
	if c.Collector.MaxAttempts < 1 {
		return errors.New("collector.max_attempts must be >= 1")
	}
	if c.Collector.BaseDelay <= 0 {
		return errors.New("collector.base_delay must be positive")
	}
	if c.Collector.MaxDelay < c.Collector.BaseDelay {
		return errors.New("collector.max_delay must be >= base_delay")
	}
	if c.Collector.JitterFraction < 0 || c.Collector.JitterFraction > 1 {
		return fmt.Errorf("collector.jitter_fraction must be in [0, 1], got %g", c.Collector.JitterFraction)
	}
	if c.Collector.BreakerThreshold < 1 {
		return errors.New("collector.breaker_threshold must be >= 1")
	}
	if c.Collector.BreakerCooldown <= 0 {
		return errors.New("collector.breaker_cooldown must be positive")
	}

	if err := c.Database.Postgres.validate("database.postgres"); err != nil {
		return err
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS <= 0 {
		return errors.New("server.rate_limit_rps must be positive")
	}
	if c.Server.RateLimitBurst < 1 {
		return errors.New("server.rate_limit_burst must be >= 1")
	}

	if c.Health.ProbeTimeout <= 0 {
		return errors.New("health.probe_timeout must be positive")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
