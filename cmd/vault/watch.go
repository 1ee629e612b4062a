package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/money-vault/internal/archive"
	"github.com/Veraticus/money-vault/internal/cli"
	"github.com/Veraticus/money-vault/internal/common"
	"github.com/Veraticus/money-vault/internal/ingest"
	"github.com/Veraticus/money-vault/internal/statement"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Import archives as they are dropped into a directory",
		Long: `Watch monitors an inbox directory and imports each export archive or
statement file once it has finished being written.`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().StringP("password", "p", "", "archive password (or VAULT_PASSWORD)")
	cmd.Flags().String("format", "auto", "statement format (auto, banksalad, bankcsv, ofx)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return common.NewUserError(dir+" is not a directory", err)
	}

	format, password, err := importSettings(cmd)
	if err != nil {
		return err
	}

	handler := cli.NewInterruptHandler(cmd.OutOrStdout(), "Imports already finished are kept in the ledger")
	ctx, stop := handler.HandleInterrupts(cmd.Context())
	defer stop()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	out := cmd.OutOrStdout()
	watcher := &ingest.Watcher{
		Pipeline: &ingest.Pipeline{
			Extractor: archive.NewExtractor(),
			Parser:    statement.NewParser(cfg.Currency),
			Store:     store,
		},
		Dir:        dir,
		Passphrase: password,
		Format:     format,
		Debounce:   cfg.WatchDebounce,
		OnReport: func(r ingest.Report) {
			printImportReports(cmd, []ingest.Report{r}, false)
		},
	}

	writeLine(out, "%s", cli.FormatInfo("Watching "+dir+" (Ctrl+C to stop)"))
	return watcher.Run(ctx)
}
