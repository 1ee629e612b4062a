package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/money-vault/internal/cli"
	"github.com/Veraticus/money-vault/internal/common"
	"github.com/Veraticus/money-vault/internal/service"
)

func recategorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recategorize <id> <category> [subcategory]",
		Short: "Change the category of a transaction",
		Long: `Recategorize updates the category of one transaction. The id is the
fingerprint shown by "vault list"; a unique prefix is enough.

Categories do not affect duplicate detection, so re-importing the same
export later keeps your change.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: runRecategorize,
	}
}

func runRecategorize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	subcategory := ""
	if len(args) == 3 {
		subcategory = args[2]
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	fingerprint, err := resolveFingerprint(cmd, store, args[0])
	if err != nil {
		return err
	}

	if err := store.UpdateClassification(ctx, fingerprint, args[1], subcategory); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewUserError("No transaction with id "+args[0], err)
		}
		return err
	}

	writeLine(cmd.OutOrStdout(), "%s", cli.FormatSuccess("Updated "+fingerprint[:12]))
	return nil
}

// resolveFingerprint expands a fingerprint prefix to the full value.
func resolveFingerprint(cmd *cobra.Command, store service.Ledger, prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < 6 {
		return "", common.NewUserError("Transaction id must be at least 6 characters", nil)
	}

	txns, err := store.Load(cmd.Context())
	if err != nil {
		return "", err
	}

	var match string
	for _, txn := range txns {
		if strings.HasPrefix(txn.Fingerprint, prefix) {
			if match != "" {
				return "", common.NewUserError("Transaction id "+prefix+" is ambiguous", nil)
			}
			match = txn.Fingerprint
		}
	}
	if match == "" {
		return "", common.NewUserError("No transaction with id "+prefix, common.ErrNotFound)
	}
	return match, nil
}
