// Package archive opens password-protected bank export archives and pulls
// out the statement file they carry.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/yeka/zip"
)

// Extraction errors.
var (
	ErrWrongPassword    = errors.New("wrong archive password")
	ErrNoStatementFound = errors.New("no statement file found in archive")
	ErrCorruptArchive   = errors.New("archive is corrupt or not a zip file")
)

// MaxStatementSize bounds the decompressed size of a statement entry.
const MaxStatementSize = 64 << 20

// statementExtensions lists recognized statement files in order of preference.
var statementExtensions = []string{".xlsx", ".csv", ".ofx", ".qfx"}

// Statement is the raw content of the statement file found in an archive.
type Statement struct {
	Name string
	Data []byte
}

// Extractor decrypts archives entirely in memory. The zero value is ready
// to use and safe for concurrent use.
type Extractor struct {
	// MaxSize overrides MaxStatementSize when positive.
	MaxSize int64
}

// NewExtractor creates an extractor with default limits.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract locates the statement entry in data and returns its decrypted
// content. Nothing is written to disk.
func (e *Extractor) Extract(ctx context.Context, data []byte, passphrase string) (*Statement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}

	entry := selectEntry(r.File)
	if entry == nil {
		return nil, ErrNoStatementFound
	}

	content, err := e.readEntry(entry, passphrase)
	if err != nil {
		return nil, err
	}

	slog.Debug("Extracted statement",
		"entry", entry.Name,
		"encrypted", entry.IsEncrypted(),
		"bytes", len(content))

	return &Statement{Name: path.Base(entry.Name), Data: content}, nil
}

func (e *Extractor) readEntry(f *zip.File, passphrase string) ([]byte, error) {
	limit := e.MaxSize
	if limit <= 0 {
		limit = MaxStatementSize
	}
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrCorruptArchive, f.Name, limit)
	}

	encrypted := f.IsEncrypted()
	if encrypted {
		if passphrase == "" {
			return nil, ErrWrongPassword
		}
		f.SetPassword(passphrase)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, classifyReadError(encrypted, err)
	}
	defer func() { _ = rc.Close() }()

	// Read one byte past the limit to detect entries that lie about their size.
	content, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, classifyReadError(encrypted, err)
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrCorruptArchive, f.Name, limit)
	}

	return content, nil
}

// classifyReadError maps a read failure to a typed error. ZipCrypto has no
// reliable password check, so any failure while reading an encrypted entry
// is reported as a wrong password.
func classifyReadError(encrypted bool, err error) error {
	if encrypted {
		return fmt.Errorf("%w: %w", ErrWrongPassword, err)
	}
	return fmt.Errorf("%w: %w", ErrCorruptArchive, err)
}

// selectEntry picks the most preferred statement file. Among entries with
// the same extension the first one in archive order wins.
func selectEntry(files []*zip.File) *zip.File {
	for _, ext := range statementExtensions {
		for _, f := range files {
			if isCandidate(f) && strings.EqualFold(path.Ext(f.Name), ext) {
				return f
			}
		}
	}
	return nil
}

func isCandidate(f *zip.File) bool {
	if f.FileInfo().IsDir() {
		return false
	}
	name := strings.ReplaceAll(f.Name, `\`, "/")
	if strings.HasPrefix(name, "__MACOSX/") {
		return false
	}
	return !strings.HasPrefix(path.Base(name), ".")
}
