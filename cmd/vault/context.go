package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/money-vault/internal/summary"
)

func contextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Print the ledger digest used as assistant context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			recent, _ := cmd.Flags().GetInt("recent")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			s, err := summary.New(store, cfg.Currency)
			if err != nil {
				return err
			}
			s.RecentCount = cfg.SummaryRecent
			if recent > 0 {
				s.RecentCount = recent
			}
			s.MaxBytes = cfg.SummaryMaxBytes

			digest, err := s.Summarize(ctx)
			if err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), "%s", digest)
			return nil
		},
	}

	cmd.Flags().Int("recent", 0, "number of recent transactions (default from summary.recent)")
	return cmd
}
