package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/money-vault/internal/archive"
	"github.com/Veraticus/money-vault/internal/cli"
	"github.com/Veraticus/money-vault/internal/common"
	"github.com/Veraticus/money-vault/internal/statement"
)

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <file>...",
		Short: "Show which statement format a file or archive contains",
		Long: `Detect opens each archive or statement file and reports the export
format it would be imported as, without touching the ledger.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDetect,
	}

	cmd.Flags().StringP("password", "p", "", "archive password (or VAULT_PASSWORD)")
	return cmd
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = cfg.Password
	}

	extractor := archive.NewExtractor()
	failed := 0
	for _, path := range args {
		name := filepath.Base(path)
		data, err := os.ReadFile(path)
		if err != nil {
			return common.NewUserError("Cannot read "+path, err)
		}

		if strings.EqualFold(filepath.Ext(name), ".zip") {
			stmt, err := extractor.Extract(ctx, data, password)
			if err != nil {
				failed++
				writeLine(out, "%s", cli.FormatError(fmt.Sprintf("%s: %s", name, explainImportError(err))))
				continue
			}
			name, data = stmt.Name, stmt.Data
		}

		format, err := statement.Detect(data, name)
		if err != nil {
			failed++
			writeLine(out, "%s", cli.FormatError(fmt.Sprintf("%s: %s", filepath.Base(path), explainImportError(err))))
			continue
		}
		writeLine(out, "%s: %s (%s)", filepath.Base(path), format, name)
	}

	if failed > 0 {
		return common.NewUserError(fmt.Sprintf("%d of %d files not recognized", failed, len(args)), nil)
	}
	return nil
}
