package config

import (
	"github.com/garyjia/timesheet-approval/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			AutoMigrate:     c.Database.AutoMigrate,
		},
		Lark: container.LarkConfig{
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
		},
		Auth: container.AuthConfig{
			Secret:   c.Auth.Secret,
			Issuer:   c.Auth.Issuer,
			TokenTTL: c.Auth.TokenTTL,
		},
		Access: container.AccessConfig{
			Strategy:        c.Access.Strategy,
			FanoutBatchSize: c.Access.FanoutBatchSize,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			RequestTimeout: c.Server.RequestTimeout,
		},
		Worker: container.WorkerConfig{
			IndexRefreshInterval: c.Worker.IndexRefreshInterval,
		},
		Events: container.EventsConfig{
			HandlerTimeout: c.Events.HandlerTimeout,
		},
		Export: container.ExportConfig{
			SheetName: c.Export.SheetName,
		},
	}
}
