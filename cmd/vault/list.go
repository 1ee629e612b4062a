package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/money-vault/internal/cli"
	"github.com/Veraticus/money-vault/internal/service"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger transactions, newest first",
		Example: `  vault list --from 2024-05-01 --category 식비
  vault list --search 스타벅스 --limit 10`,
		Args: cobra.NoArgs,
		RunE: runList,
	}

	cmd.Flags().String("from", "", "first date to include (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last date to include (YYYY-MM-DD)")
	cmd.Flags().String("category", "", "only this category")
	cmd.Flags().String("search", "", "description contains text")
	cmd.Flags().Int("limit", 50, "maximum rows (0 for all)")

	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")
	category, _ := cmd.Flags().GetString("category")
	search, _ := cmd.Flags().GetString("search")
	limit, _ := cmd.Flags().GetInt("limit")

	from, err := parseDateFlag("from", fromFlag)
	if err != nil {
		return err
	}
	to, err := parseDateFlag("to", toFlag)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txns, err := store.Transactions(ctx, service.TransactionFilter{
		From:     from,
		To:       to,
		Category: category,
		Search:   search,
		Limit:    limit,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(txns) == 0 {
		writeLine(out, "%s", cli.FormatInfo("No transactions found"))
		return nil
	}

	writeLine(out, "%s", cli.RenderTransactions(txns, cfg.Currency))
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	writeLine(out, "%s", cli.SubtleStyle.Render(
		cli.FormatCount(len(txns), total)))
	return nil
}
