package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/money-vault/internal/common"
)

// Setting keys.
const (
	KeyDatabasePath      = "database.path"
	KeyCurrency          = "ledger.currency"
	KeySummaryRecent     = "summary.recent"
	KeySummaryMaxBytes   = "summary.max_bytes"
	KeyLogLevel          = "logging.level"
	KeyLogFormat         = "logging.format"
	KeyImportConcurrency = "import.concurrency"
	KeyImportPassword    = "import.password"
	KeyWatchDebounce     = "watch.debounce"
)

// EnvPrefix is prepended to environment overrides, e.g. VAULT_DATABASE_PATH.
const EnvPrefix = "VAULT"

// Config holds resolved settings.
type Config struct {
	DatabasePath      string
	Currency          string
	LogLevel          string
	LogFormat         string
	Password          string
	SummaryRecent     int
	SummaryMaxBytes   int
	ImportConcurrency int
	WatchDebounce     time.Duration
}

// SetDefaults registers default values and environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, "$HOME/.local/share/vault/vault.db")
	v.SetDefault(KeyCurrency, "KRW")
	v.SetDefault(KeySummaryRecent, 20)
	v.SetDefault(KeySummaryMaxBytes, 8000)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyImportConcurrency, 4)
	v.SetDefault(KeyWatchDebounce, 2*time.Second)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// VAULT_PASSWORD is the documented name for the archive password.
	_ = v.BindEnv(KeyImportPassword, EnvPrefix+"_PASSWORD", EnvPrefix+"_IMPORT_PASSWORD")
}

// LoadDotEnv loads environment variables from .env files when present.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(ExpandPath(p)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load resolves and validates settings from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabasePath:      ExpandPath(v.GetString(KeyDatabasePath)),
		Currency:          strings.ToUpper(strings.TrimSpace(v.GetString(KeyCurrency))),
		LogLevel:          v.GetString(KeyLogLevel),
		LogFormat:         v.GetString(KeyLogFormat),
		Password:          v.GetString(KeyImportPassword),
		SummaryRecent:     v.GetInt(KeySummaryRecent),
		SummaryMaxBytes:   v.GetInt(KeySummaryMaxBytes),
		ImportConcurrency: v.GetInt(KeyImportConcurrency),
		WatchDebounce:     v.GetDuration(KeyWatchDebounce),
	}

	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyDatabasePath)
	}
	if money.GetCurrency(cfg.Currency) == nil {
		return nil, fmt.Errorf("%w: unknown currency %q", common.ErrInvalidConfig, cfg.Currency)
	}
	if _, err := common.ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	if cfg.ImportConcurrency < 1 {
		return nil, fmt.Errorf("%w: %s must be positive", common.ErrInvalidConfig, KeyImportConcurrency)
	}
	if cfg.SummaryRecent < 1 {
		return nil, fmt.Errorf("%w: %s must be positive", common.ErrInvalidConfig, KeySummaryRecent)
	}

	return cfg, nil
}
