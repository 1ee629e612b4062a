package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/money-vault/internal/cli"
)

func resetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every transaction from the ledger",
		Long: `Reset removes all transactions and the import history. This cannot be
undone; run "vault backup" first if you may want the data back.`,
		Args: cobra.NoArgs,
		RunE: runReset,
	}

	cmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")
	return cmd
}

func runReset(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	force, _ := cmd.Flags().GetBool("force")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count transactions: %w", err)
	}
	if count == 0 {
		writeLine(out, "No transactions found. Nothing to reset.")
		return nil
	}

	if !force {
		writeLine(out, "%s", cli.FormatWarning(fmt.Sprintf("This will delete %d transactions.", count)))
		if _, err := fmt.Fprint(out, "Are you sure you want to continue? [y/N]: "); err != nil {
			return err
		}

		response, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && response == "" {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if r := strings.TrimSpace(response); r != "y" && r != "Y" {
			writeLine(out, "Reset canceled.")
			return nil
		}
	}

	deleted, err := store.Reset(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset ledger: %w", err)
	}

	writeLine(out, "%s", cli.FormatSuccess(fmt.Sprintf("Deleted %d transactions", deleted)))
	return nil
}
