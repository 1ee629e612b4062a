package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/money-vault/internal/archive"
	"github.com/Veraticus/money-vault/internal/cli"
	"github.com/Veraticus/money-vault/internal/common"
	"github.com/Veraticus/money-vault/internal/ingest"
	"github.com/Veraticus/money-vault/internal/statement"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <archive>...",
		Short: "Import bank export archives into the ledger",
		Long: `Import decrypts each export archive, parses the statement inside and
merges its rows into the ledger. Rows already in the ledger are skipped.

Bare statement files (.xlsx, .csv, .ofx, .qfx) are imported directly.`,
		Example: `  # Import a BankSalad export
  vault import banksalad-2024-05.zip -p 1234

  # Preview several exports without saving
  VAULT_PASSWORD=1234 vault import --dry-run exports/*.zip`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().StringP("password", "p", "", "archive password (or VAULT_PASSWORD)")
	cmd.Flags().String("format", "auto", "statement format (auto, banksalad, bankcsv, ofx)")
	cmd.Flags().Bool("dry-run", false, "Show what would be imported without saving")
	cmd.Flags().Bool("show-warnings", false, "List skipped rows")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	showWarnings, _ := cmd.Flags().GetBool("show-warnings")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	format, password, err := importSettings(cmd)
	if err != nil {
		return err
	}

	uploads := make([]ingest.Upload, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return common.NewUserError("Cannot read "+path, err)
		}
		uploads = append(uploads, ingest.Upload{
			Name:       filepath.Base(path),
			Data:       data,
			Passphrase: password,
			Format:     format,
		})
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	pipeline := &ingest.Pipeline{
		Extractor:   archive.NewExtractor(),
		Parser:      statement.NewParser(cfg.Currency),
		Store:       store,
		Concurrency: cfg.ImportConcurrency,
		DryRun:      dryRun,
	}
	if len(uploads) > 1 {
		bar := cli.NewImportProgress(cmd.ErrOrStderr(), len(uploads))
		pipeline.Progress = func(ingest.Report) { _ = bar.Add(1) }
	}

	reports, err := pipeline.IngestAll(ctx, uploads)
	if err != nil {
		return err
	}

	failed := printImportReports(cmd, reports, showWarnings)
	if failed > 0 {
		return common.NewUserError(fmt.Sprintf("%d of %d imports failed", failed, len(reports)), nil)
	}
	return nil
}

func printImportReports(cmd *cobra.Command, reports []ingest.Report, showWarnings bool) int {
	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range reports {
		if r.Err != nil {
			failed++
			writeLine(out, "%s", cli.FormatError(fmt.Sprintf("%s: %s", r.Source, explainImportError(r.Err))))
			continue
		}

		verb := "imported"
		if r.DryRun {
			verb = "would import"
		}
		writeLine(out, "%s", cli.FormatSuccess(fmt.Sprintf("%s (%s): %s %d, %d duplicates",
			r.Source, r.Format, verb, r.Result.Accepted, r.Result.Duplicates)))

		if len(r.Warnings) > 0 {
			writeLine(out, "  %s", cli.FormatWarning(fmt.Sprintf("%d rows skipped", len(r.Warnings))))
			if showWarnings {
				for _, w := range r.Warnings {
					writeLine(out, "    %s", w)
				}
			}
		}
	}
	return failed
}

// importSettings resolves the --format and --password flags. The password
// falls back to VAULT_PASSWORD or the config file.
func importSettings(cmd *cobra.Command) (statement.Format, string, error) {
	formatFlag, _ := cmd.Flags().GetString("format")
	format, err := statement.ParseFormat(formatFlag)
	if err != nil {
		return "", "", common.NewUserError("Unknown --format "+formatFlag, err)
	}

	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = cfg.Password
	}
	return format, password, nil
}
