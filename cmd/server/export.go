package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/timesheet-approval/internal/application/service"
	"github.com/garyjia/timesheet-approval/internal/container"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
)

type exportOptions struct {
	Week           string
	Output         string
	AccountID      string
	OrganizationID string
}

func newExportCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the approved hours workbook for a week",
		Long: `Write the approved hours workbook for a week to a file.

The export runs with the access of the given account, exactly as the
HTTP export endpoint would.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Week, "week", "", "week start, a Monday as YYYY-MM-DD")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (defaults to the generated name)")
	cmd.Flags().StringVar(&opts.AccountID, "account", "", "requesting account id")
	cmd.Flags().StringVar(&opts.OrganizationID, "org", "", "organization id")
	_ = cmd.MarkFlagRequired("week")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("org")

	return cmd
}

func runExport(cmd *cobra.Command, rootOpts *rootOptions, opts *exportOptions) error {
	weekStart, err := entity.ParseWeekStart(opts.Week)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig(rootOpts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer c.Close()

	out, err := c.Services().Exports.ExportApproved(ctx, service.Requester{
		AccountID:      opts.AccountID,
		OrganizationID: opts.OrganizationID,
	}, weekStart)
	if err != nil {
		return err
	}

	path := opts.Output
	if path == "" {
		path = out.Filename
	}
	if err := os.WriteFile(path, out.Content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.Info("Export written", zap.String("path", path), zap.Int("rows", out.Rows))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d row(s) to %s\n", out.Rows, path)
	return nil
}
