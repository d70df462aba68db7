// Package config provides configuration loading for hearth.
//
// Configuration is read from an optional YAML file and overridden by
// HEARTH_* environment variables. Defaults cover a single-host install
// with an embedded SQLite database and event publishing disabled.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Supported store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config holds the complete hearth configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Store         StoreConfig         `koanf:"store"`
	Events        EventsConfig        `koanf:"events"`
	Home          HomeConfig          `koanf:"home"`
	Observability ObservabilityConfig `koanf:"observability"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"http_host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig selects the database backing families, items and notes.
type StoreConfig struct {
	Driver string `koanf:"driver"` // sqlite or mysql
	DSN    Secret `koanf:"dsn"`
}

// EventsConfig controls publishing of home events to NATS.
type EventsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	NATSURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// HomeConfig holds household behaviour knobs.
type HomeConfig struct {
	LowStockThreshold float64 `koanf:"low_stock_threshold"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	Endpoint        string `koanf:"otlp_endpoint"`
	Protocol        string `koanf:"otlp_protocol"` // grpc or http/protobuf
	Insecure        bool   `koanf:"otlp_insecure"`
}

// LoggingConfig holds the subset of logging settings exposed in config files.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - Store driver is unknown or the DSN is empty
//   - Events are enabled without a NATS URL
//   - Low stock threshold is negative
//   - Service name is empty (when telemetry is enabled)
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.Store.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		return fmt.Errorf("unsupported store driver %q (must be %s or %s)", c.Store.Driver, DriverSQLite, DriverMySQL)
	}
	if !c.Store.DSN.IsSet() {
		return errors.New("store dsn is required")
	}

	if c.Events.Enabled && strings.TrimSpace(c.Events.NATSURL) == "" {
		return errors.New("events.nats_url is required when events are enabled")
	}

	if c.Home.LowStockThreshold < 0 {
		return fmt.Errorf("home.low_stock_threshold must be >= 0, got %v", c.Home.LowStockThreshold)
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	return nil
}
