package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/crawlhub/internal/catalog"
	"github.com/JakeFAU/crawlhub/internal/server"
)

func newBatchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "Inspect archived batches",
	}
	cmd.AddCommand(newBatchesListCmd())
	cmd.AddCommand(newBatchesGetCmd())
	return cmd
}

func newBatchesListCmd() *cobra.Command {
	var date, owner string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived batches for a day, optionally for one owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if date == "" {
				return errors.New("--date is required")
			}
			cat, closeFn, err := openCatalog(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if owner != "" {
				groups, err := cat.ListBatchesForOwner(cmd.Context(), date, owner)
				if err != nil {
					return err
				}
				return printJSON(cmd, groups)
			}
			groups, err := cat.ListBatches(cmd.Context(), date)
			if err != nil {
				return err
			}
			return printJSON(cmd, groups)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to list, YYYY-MM-DD (UTC)")
	cmd.Flags().StringVar(&owner, "owner", "", "owner token (64 hex characters)")
	return cmd
}

func newBatchesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print one archived batch as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, closeFn, err := openCatalog(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			doc, err := cat.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, doc)
		},
	}
}

func openCatalog(cmd *cobra.Command) (*catalog.Catalog, func(), error) {
	cfg, err := configFrom(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	objects, client, err := server.OpenObjectStore(cmd.Context(), cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if client != nil {
			_ = client.Close()
		}
	}
	cat, err := catalog.New(objects, cfg.Ingest.SchemaVersion, cfg.Ingest.Shard)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("catalog init failed: %w", err)
	}
	return cat, closeFn, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
