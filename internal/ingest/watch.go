package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Veraticus/money-vault/internal/common"
	"github.com/Veraticus/money-vault/internal/statement"
)

// DefaultDebounce is how long a file must stay quiet before it is imported.
const DefaultDebounce = 2 * time.Second

// Watcher imports archives dropped into an inbox directory.
type Watcher struct {
	Pipeline   *Pipeline
	OnReport   func(Report)
	Dir        string
	Passphrase string
	Format     statement.Format
	Debounce   time.Duration
}

// Run watches Dir until ctx is canceled. Files are imported one at a time
// once no write has been seen for Debounce.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.Dir, err)
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()
	ready := make(chan string)
	// Last modification time imported per path.
	imported := make(map[string]time.Time)

	slog.Info("Watching inbox", "dir", w.Dir, "debounce", debounce)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isImportable(event.Name) {
				continue
			}

			name := event.Name
			if t, exists := timers[name]; exists {
				t.Stop()
			}
			timers[name] = time.AfterFunc(debounce, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})

		case name := <-ready:
			delete(timers, name)
			w.importFile(ctx, name, imported)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			common.LogError(err, "File watcher error", common.Fields{"dir": w.Dir})
		}
	}
}

func (w *Watcher) importFile(ctx context.Context, path string, imported map[string]time.Time) {
	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("Inbox file vanished", "path", path, "error", err)
		return
	}
	if last, ok := imported[path]; ok && last.Equal(info.ModTime()) {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Failed to read inbox file", "path", path, "error", err)
		return
	}

	upload := Upload{
		Name:       filepath.Base(path),
		Data:       data,
		Passphrase: w.Passphrase,
		Format:     w.Format,
	}

	report, err := w.Pipeline.Ingest(ctx, upload)
	if err != nil {
		report = &Report{Source: upload.Name, Err: err}
		slog.Warn("Inbox import failed", "path", path, "error", err)
	} else {
		imported[path] = info.ModTime()
	}

	if w.OnReport != nil {
		w.OnReport(*report)
	}
}

func isImportable(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".zip") || isStatementFile(base)
}
