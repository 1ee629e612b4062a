// Package ingest wires archive extraction, statement parsing and ledger
// merging into a single import flow.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/money-vault/internal/archive"
	"github.com/Veraticus/money-vault/internal/model"
	"github.com/Veraticus/money-vault/internal/service"
	"github.com/Veraticus/money-vault/internal/statement"
)

// DefaultConcurrency bounds parallel extraction and parsing.
const DefaultConcurrency = 4

// Extractor pulls the statement out of an export archive.
type Extractor interface {
	Extract(ctx context.Context, data []byte, passphrase string) (*archive.Statement, error)
}

// Parser converts a statement file into transactions.
type Parser interface {
	Parse(ctx context.Context, data []byte, name string, format statement.Format) (*statement.Result, error)
}

// Upload is one file handed to the pipeline.
type Upload struct {
	Name       string
	Passphrase string
	Format     statement.Format
	Data       []byte
}

// Report describes what happened to one upload.
type Report struct {
	Err       error
	Source    string
	Statement string
	Format    statement.Format
	Warnings  []statement.Warning
	Result    model.MergeResult
	Parsed    int
	DryRun    bool
}

// Pipeline imports uploads into a ledger. Extraction and parsing run in
// parallel; merges are applied one at a time.
type Pipeline struct {
	Extractor   Extractor
	Parser      Parser
	Store       service.Ledger
	Progress    func(Report) // called after each upload in IngestAll
	Concurrency int
	DryRun      bool // report what would be merged without writing
}

// prepared is an upload that has been extracted and parsed.
type prepared struct {
	report Report
	txns   []model.Transaction
}

// Ingest runs one upload through extraction, parsing and merge.
func (p *Pipeline) Ingest(ctx context.Context, u Upload) (*Report, error) {
	prep, err := p.prepare(ctx, u)
	if err != nil {
		return nil, err
	}
	report, err := p.merge(ctx, prep)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// IngestAll imports every upload and returns one report per upload in
// input order. A failed upload is reported in its Report.Err and does not
// stop the others. Only context cancellation ends the run early.
func (p *Pipeline) IngestAll(ctx context.Context, uploads []Upload) ([]Report, error) {
	limit := p.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	preps := make([]prepared, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, u := range uploads {
		g.Go(func() error {
			prep, err := p.prepare(gctx, u)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				prep = prepared{report: Report{Source: u.Name, Err: err}}
			}
			preps[i] = prep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(preps))
	for _, prep := range preps {
		report := prep.report
		if report.Err == nil {
			merged, err := p.merge(ctx, prep)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return reports, ctxErr
				}
				report.Err = err
			} else {
				report = merged
			}
		}
		if report.Err != nil {
			slog.Warn("Import failed", "source", report.Source, "error", report.Err)
		}
		if p.Progress != nil {
			p.Progress(report)
		}
		reports = append(reports, report)
	}

	return reports, nil
}

func (p *Pipeline) prepare(ctx context.Context, u Upload) (prepared, error) {
	name, data := u.Name, u.Data
	if !isStatementFile(u.Name) {
		stmt, err := p.Extractor.Extract(ctx, u.Data, u.Passphrase)
		if err != nil {
			return prepared{}, fmt.Errorf("%s: %w", u.Name, err)
		}
		name, data = stmt.Name, stmt.Data
	}

	result, err := p.Parser.Parse(ctx, data, name, u.Format)
	if err != nil {
		return prepared{}, fmt.Errorf("%s: %w", u.Name, err)
	}

	return prepared{
		report: Report{
			Source:    u.Name,
			Statement: name,
			Format:    result.Format,
			Parsed:    len(result.Transactions),
			Warnings:  result.Warnings,
			DryRun:    p.DryRun,
		},
		txns: result.Transactions,
	}, nil
}

func (p *Pipeline) merge(ctx context.Context, prep prepared) (Report, error) {
	report := prep.report
	if p.DryRun {
		res, err := p.preview(ctx, prep.txns)
		if err != nil {
			return report, err
		}
		report.Result = res
		return report, nil
	}

	res, err := p.Store.Merge(ctx, prep.txns, service.MergeOptions{Source: report.Source})
	if err != nil {
		return report, fmt.Errorf("%s: %w", report.Source, err)
	}
	report.Result = res

	slog.Info("Imported statement",
		"source", report.Source,
		"format", report.Format,
		"accepted", res.Accepted,
		"duplicates", res.Duplicates,
		"warnings", len(report.Warnings))

	return report, nil
}

// preview counts what a merge would accept without writing anything.
func (p *Pipeline) preview(ctx context.Context, txns []model.Transaction) (model.MergeResult, error) {
	existing, err := p.Store.Load(ctx)
	if err != nil {
		return model.MergeResult{}, fmt.Errorf("failed to load ledger: %w", err)
	}

	seen := make(map[string]bool, len(existing)+len(txns))
	for i := range existing {
		seen[existing[i].Fingerprint] = true
	}

	var res model.MergeResult
	for i := range txns {
		fp := txns[i].ComputeFingerprint()
		if seen[fp] {
			res.Duplicates++
			continue
		}
		seen[fp] = true
		res.Accepted++
	}
	return res, nil
}

// isStatementFile reports whether name is a bare statement rather than an
// export archive.
func isStatementFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".csv", ".ofx", ".qfx":
		return true
	}
	return false
}
