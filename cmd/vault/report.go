package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/money-vault/internal/cli"
	"github.com/Veraticus/money-vault/internal/common"
	"github.com/Veraticus/money-vault/internal/model"
	"github.com/Veraticus/money-vault/internal/service"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize spending by category, day or month",
		Long: `Report totals ledger entries of one type. Expense totals are money spent,
so refunds reduce them.`,
		Example: `  vault report --by category --month 2024-05
  vault report --by date --from 2024-05-01 --to 2024-05-31
  vault report --by month --type income`,
		Args: cobra.NoArgs,
		RunE: runReport,
	}

	cmd.Flags().String("by", "category", "grouping (category, date, month)")
	cmd.Flags().String("type", "expense", "transaction type (expense, income, transfer)")
	cmd.Flags().String("from", "", "first date to include (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last date to include (YYYY-MM-DD)")
	cmd.Flags().String("month", "", "single month to include (YYYY-MM)")

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	by, _ := cmd.Flags().GetString("by")
	typeFlag, _ := cmd.Flags().GetString("type")
	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")
	month, _ := cmd.Flags().GetString("month")

	groupBy := service.GroupBy(by)
	switch groupBy {
	case service.GroupByCategory, service.GroupByDate, service.GroupByMonth:
	default:
		return common.NewUserError(fmt.Sprintf("--by must be category, date or month, not %q", by), nil)
	}

	txType, err := model.ParseTxType(typeFlag)
	if err != nil {
		return common.NewUserError("Unknown --type", err)
	}

	query := service.AggregateQuery{GroupBy: groupBy, Type: txType}
	if month != "" {
		if query.From, query.To, err = parseMonthFlag(month); err != nil {
			return err
		}
	} else {
		if query.From, err = parseDateFlag("from", fromFlag); err != nil {
			return err
		}
		if query.To, err = parseDateFlag("to", toFlag); err != nil {
			return err
		}
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rows, err := store.Aggregate(ctx, query)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		writeLine(out, "%s", cli.FormatInfo("No "+string(txType)+" transactions in range"))
		return nil
	}
	writeLine(out, "%s", cli.FormatTitle(fmt.Sprintf("%s by %s", txType, groupBy)))
	writeLine(out, "%s", cli.RenderAggregate(rows, groupBy, cfg.Currency))
	return nil
}
