package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/money-vault/internal/cli"
	"github.com/Veraticus/money-vault/internal/common"
	"github.com/Veraticus/money-vault/internal/storage"
)

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [path]",
		Short: "Write a consistent copy of the ledger",
		Example: `  vault backup ~/backups/vault.db
  vault backup            # vault-YYYYMMDD-HHMMSS.db next to the ledger`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			dest := fmt.Sprintf("%s.%s.bak", cfg.DatabasePath, time.Now().Format("20060102-150405"))
			if len(args) == 1 {
				dest = args[0]
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Backup(ctx, dest); err != nil {
				if errors.Is(err, storage.ErrBackupExists) {
					return common.NewUserError(dest+" already exists", err)
				}
				return err
			}

			writeLine(cmd.OutOrStdout(), "%s", cli.FormatSuccess("Backed up ledger to "+dest))
			return nil
		},
	}
}
