package tasks

import (
	"time"

	"github.com/mrlokans/readtrack/internal/config"
)

// Config holds configuration for the task queue system.
type Config struct {
	Workers int // Default: 2

	// Retry policy for purge and rebuild tasks.
	MaxRetries int           // Default: 3
	RetryDelay time.Duration // Default: 30s

	TaskTimeout       time.Duration // Default: 2m
	ReleaseAfter      time.Duration // Stuck tasks go back to the queue. Default: 15m
	CleanupInterval   time.Duration // Default: 1h
	RetentionDuration time.Duration // How long finished tasks are kept. Default: 24h
}

func DefaultConfig() Config {
	return Config{
		Workers:           2,
		MaxRetries:        3,
		RetryDelay:        30 * time.Second,
		TaskTimeout:       2 * time.Minute,
		ReleaseAfter:      15 * time.Minute,
		CleanupInterval:   1 * time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}

// ConfigFrom converts the environment section, filling zero values from
// DefaultConfig.
func ConfigFrom(c config.Tasks) Config {
	cfg := DefaultConfig()
	if c.Workers > 0 {
		cfg.Workers = c.Workers
	}
	if c.MaxRetries > 0 {
		cfg.MaxRetries = c.MaxRetries
	}
	if c.RetryDelay > 0 {
		cfg.RetryDelay = c.RetryDelay
	}
	if c.TaskTimeout > 0 {
		cfg.TaskTimeout = c.TaskTimeout
	}
	if c.ReleaseAfter > 0 {
		cfg.ReleaseAfter = c.ReleaseAfter
	}
	if c.CleanupInterval > 0 {
		cfg.CleanupInterval = c.CleanupInterval
	}
	if c.RetentionDuration > 0 {
		cfg.RetentionDuration = c.RetentionDuration
	}
	return cfg
}
