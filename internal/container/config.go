// Package container provides dependency injection and lifecycle management
// for the timesheet service following Clean Architecture principles.
package container

import (
	"fmt"
	"time"
)

// Access strategies
const (
	AccessStrategyIndex  = "index"
	AccessStrategyFanout = "fanout"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	Database DatabaseConfig
	Lark     LarkConfig
	Auth     AuthConfig
	Access   AccessConfig
	Server   ServerConfig
	Worker   WorkerConfig
	Events   EventsConfig
	Export   ExportConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file, or ":memory:"
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// AutoMigrate applies the embedded migrations on start
	AutoMigrate bool
}

// LarkConfig holds Lark API settings. Empty credentials disable notifications.
type LarkConfig struct {
	AppID     string
	AppSecret string
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	// Secret is the base64 encoded HMAC key
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// AccessConfig selects the manager scope strategy.
type AccessConfig struct {
	// Strategy is "index" or "fanout"
	Strategy        string
	FanoutBatchSize int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// IndexRefreshInterval is how often the manager index is rebuilt
	IndexRefreshInterval time.Duration
}

// EventsConfig holds event dispatch settings.
type EventsConfig struct {
	HandlerTimeout time.Duration
}

// ExportConfig holds workbook settings.
type ExportConfig struct {
	SheetName string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/timesheets.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		Auth: AuthConfig{
			Issuer:   "timesheetd",
			TokenTTL: 12 * time.Hour,
		},
		Access: AccessConfig{
			Strategy:        AccessStrategyIndex,
			FanoutBatchSize: 8,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			RequestTimeout: 5 * time.Second,
		},
		Worker: WorkerConfig{
			IndexRefreshInterval: 5 * time.Minute,
		},
		Events: EventsConfig{
			HandlerTimeout: 30 * time.Second,
		},
		Export: ExportConfig{
			SheetName: "Approved Hours",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}

	switch c.Access.Strategy {
	case AccessStrategyIndex, AccessStrategyFanout:
	default:
		return fmt.Errorf("unknown access strategy %q", c.Access.Strategy)
	}
	if c.Access.FanoutBatchSize <= 0 {
		return fmt.Errorf("access.fanout_batch_size must be positive")
	}

	return nil
}
