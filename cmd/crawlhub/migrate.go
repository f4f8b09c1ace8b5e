package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/crawlhub/internal/server"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the frontier table if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Database.DSN == "" {
				return errors.New("database.dsn is required for migrate")
			}
			store, err := server.OpenFrontier(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.CreateSchema(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "frontier table %q is ready\n", cfg.Database.Table)
			return nil
		},
	}
}
