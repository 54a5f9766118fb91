package config

import (
	"fmt"
	"time"
)

// WorkflowConfig holds settings shared by the server and the worker.
type WorkflowConfig struct {
	// Timezone is the IANA zone whose calendar day decides what is overdue.
	Timezone    string        `env:"ATELIER_TIMEZONE" default:"UTC"`
	LockTimeout time.Duration `env:"ATELIER_LOCK_TIMEOUT"`

	location *time.Location
}

// Validate resolves the timezone.
func (c *WorkflowConfig) Validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid ATELIER_TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc
	return nil
}

// Location returns the resolved timezone, UTC before validation.
func (c *WorkflowConfig) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// ObservabilityConfig holds logging and telemetry configuration.
type ObservabilityConfig struct {
	OTelEnabled bool   `env:"ATELIER_OTEL_ENABLED"`
	ServiceName string `env:"OTEL_SERVICE_NAME"`
	LogLevel    string `env:"ATELIER_LOG_LEVEL" default:"info"`

	// LogFile, when set, also writes JSON logs to a size-rotated file.
	LogFile       string `env:"ATELIER_LOG_FILE"`
	LogMaxSizeMB  int    `env:"ATELIER_LOG_MAX_SIZE_MB" default:"100"`
	LogMaxBackups int    `env:"ATELIER_LOG_MAX_BACKUPS" default:"5"`
	LogMaxAgeDays int    `env:"ATELIER_LOG_MAX_AGE_DAYS" default:"28"`
}
