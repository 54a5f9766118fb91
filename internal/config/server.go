// Package config loads the configuration of each binary from ATELIER_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/rezkam/atelier/internal/env"
)

// ServerConfig holds all configuration for the server binary.
type ServerConfig struct {
	Database        DatabaseConfig
	Redis           RedisConfig
	Archive         ArchiveConfig
	Workflow        WorkflowConfig
	HTTP            HTTPConfig
	Auth            AuthConfig
	Observability   ObservabilityConfig
	ShutdownTimeout time.Duration `env:"ATELIER_SHUTDOWN_TIMEOUT" default:"10s"`
}

// HTTPConfig holds HTTP server configuration. Zero values use the server defaults.
type HTTPConfig struct {
	Host              string        `env:"ATELIER_HTTP_HOST"`
	Port              string        `env:"ATELIER_HTTP_PORT"`
	ReadTimeout       time.Duration `env:"ATELIER_HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `env:"ATELIER_HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `env:"ATELIER_HTTP_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `env:"ATELIER_HTTP_READ_HEADER_TIMEOUT"`
	MaxHeaderBytes    int           `env:"ATELIER_HTTP_MAX_HEADER_BYTES"`
	MaxBodyBytes      int64         `env:"ATELIER_HTTP_MAX_BODY_BYTES"`
}

// AuthConfig holds authenticator configuration.
type AuthConfig struct {
	OperationTimeout time.Duration `env:"ATELIER_AUTH_OPERATION_TIMEOUT"`
	UpdateQueueSize  int           `env:"ATELIER_AUTH_UPDATE_QUEUE_SIZE"`
}

// LoadServerConfig loads and validates server configuration from environment.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	return cfg, nil
}

// WorkerConfig holds all configuration for the worker binary.
type WorkerConfig struct {
	Database         DatabaseConfig
	Redis            RedisConfig
	Workflow         WorkflowConfig
	Observability    ObservabilityConfig
	Interval         time.Duration `env:"ATELIER_WORKER_INTERVAL" default:"1h"`
	OperationTimeout time.Duration `env:"ATELIER_WORKER_OPERATION_TIMEOUT"`
}

// LoadWorkerConfig loads and validates worker configuration from environment.
func LoadWorkerConfig() (*WorkerConfig, error) {
	cfg := &WorkerConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load worker config: %w", err)
	}

	return cfg, nil
}

// APIKeyConfig holds configuration for the apikey binary.
type APIKeyConfig struct {
	Database DatabaseConfig
}

// LoadAPIKeyConfig loads and validates apikey configuration from environment.
func LoadAPIKeyConfig() (*APIKeyConfig, error) {
	cfg := &APIKeyConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load apikey config: %w", err)
	}

	return cfg, nil
}
