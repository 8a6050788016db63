package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/timesheet-approval/internal/container"
	httpserver "github.com/garyjia/timesheet-approval/internal/interfaces/http"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *rootOptions) error {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting timesheet service",
		zap.Int("port", cfg.Server.Port),
		zap.String("access_strategy", cfg.Access.Strategy))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container close failed", zap.Error(err))
		}
	}()

	svc := c.Services()
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			RequestTimeout: cfg.Server.RequestTimeout,
			Debug:          cfg.Logger.Level == "debug",
		},
		httpserver.Services{
			Timesheets: svc.Timesheets,
			Approvals:  svc.Approvals,
			Membership: svc.Membership,
			Exports:    svc.Exports,
			Access:     svc.Access,
			Profiles:   c.Repositories().Profiles,
		},
		c.Issuer(),
		func() (bool, interface{}) {
			status := c.Health()
			return status.Overall, status
		},
		c.ServiceLogger(),
	)

	if err := server.Start(ctx); err != nil {
		return err
	}

	logger.Info("Server exited successfully")
	return nil
}
