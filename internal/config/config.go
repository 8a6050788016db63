package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Access strategies for resolving the projects an account manages
const (
	StrategyIndex  = "index"
	StrategyFanout = "fanout"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Access   AccessConfig   `mapstructure:"access"`
	Lark     LarkConfig     `mapstructure:"lark"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Events   EventsConfig   `mapstructure:"events"`
	Export   ExportConfig   `mapstructure:"export"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// AuthConfig holds bearer token settings. Secret is base64 encoded.
type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// AccessConfig selects how manager scope is resolved
type AccessConfig struct {
	Strategy        string `mapstructure:"strategy"`
	FanoutBatchSize int    `mapstructure:"fanout_batch_size"`
}

// LarkConfig holds Lark API configuration. Notifications are sent only when
// both credentials are set.
type LarkConfig struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
}

// Enabled reports whether Lark credentials are configured
func (l LarkConfig) Enabled() bool {
	return l.AppID != "" && l.AppSecret != ""
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	IndexRefreshInterval time.Duration `mapstructure:"index_refresh_interval"`
}

// EventsConfig holds event dispatch configuration
type EventsConfig struct {
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
}

// ExportConfig holds workbook export configuration
type ExportConfig struct {
	SheetName string `mapstructure:"sheet_name"`
}

// Load reads an optional .env file, then configPath (when non-empty), then
// environment overrides.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("TIMESHEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.request_timeout", 5*time.Second)

	v.SetDefault("database.path", "data/timesheets.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("auth.issuer", "timesheetd")
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	v.SetDefault("access.strategy", StrategyIndex)
	v.SetDefault("access.fanout_batch_size", 8)

	v.SetDefault("worker.index_refresh_interval", 5*time.Minute)
	v.SetDefault("events.handler_timeout", 30*time.Second)
	v.SetDefault("export.sheet_name", "Approved Hours")
}

// bindEnvVars binds secrets to their conventional variable names
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"auth.secret":     "TIMESHEET_AUTH_SECRET",
		"lark.app_id":     "LARK_APP_ID",
		"lark.app_secret": "LARK_APP_SECRET",
		"database.path":   "TIMESHEET_DB_PATH",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if _, err := base64.StdEncoding.DecodeString(c.Auth.Secret); err != nil {
		return fmt.Errorf("auth.secret must be base64: %w", err)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.Access.Strategy {
	case StrategyIndex, StrategyFanout:
	default:
		return fmt.Errorf("access.strategy must be %q or %q, got %q", StrategyIndex, StrategyFanout, c.Access.Strategy)
	}
	if c.Access.FanoutBatchSize <= 0 {
		return fmt.Errorf("access.fanout_batch_size must be positive")
	}

	if (c.Lark.AppID == "") != (c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret must be set together")
	}

	return nil
}
