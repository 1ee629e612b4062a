package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/money-vault/internal/cli"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := store.ImportHistory(ctx, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				writeLine(cmd.OutOrStdout(), "%s", cli.FormatInfo("Nothing imported yet"))
				return nil
			}
			writeLine(cmd.OutOrStdout(), "%s", cli.RenderHistory(records))
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "number of imports to show")
	return cmd
}
