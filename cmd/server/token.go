package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/timesheet-approval/internal/auth"
)

type tokenOptions struct {
	AccountID      string
	OrganizationID string
	Name           string
}

func newTokenCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an account",
		Long: `Mint a signed bearer token using the configured auth secret.

Tokens are normally issued by the identity provider in front of the
service. This command exists for operators and local development.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			issuer, err := auth.NewIssuer(auth.Config{
				Base64Secret: cfg.Auth.Secret,
				Issuer:       cfg.Auth.Issuer,
				TTL:          cfg.Auth.TokenTTL,
			})
			if err != nil {
				return err
			}

			token, err := issuer.Issue(opts.AccountID, opts.OrganizationID, opts.Name)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.AccountID, "account", "", "account id (token subject)")
	cmd.Flags().StringVar(&opts.OrganizationID, "org", "", "organization id")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("org")

	return cmd
}
