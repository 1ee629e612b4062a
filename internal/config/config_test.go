package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/money-vault/internal/common"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("VAULT_TEST_DIR", "/srv/vault")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: home},
		{in: "~/vault.db", want: filepath.Join(home, "vault.db")},
		{in: "$VAULT_TEST_DIR/vault.db", want: "/srv/vault/vault.db"},
		{in: "/abs/path.db", want: "/abs/path.db"},
		{in: "~other/x", want: "~other/x"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/.local/share/vault/vault.db", cfg.DatabasePath)
	assert.Equal(t, "KRW", cfg.Currency)
	assert.Equal(t, 20, cfg.SummaryRecent)
	assert.Equal(t, 4, cfg.ImportConcurrency)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	assert.Empty(t, cfg.Password)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("VAULT_DATABASE_PATH", "/tmp/other.db")
	t.Setenv("VAULT_LEDGER_CURRENCY", "usd")
	t.Setenv("VAULT_PASSWORD", "s3cret")
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.DatabasePath)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, "s3cret", cfg.Password)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{key: KeyCurrency, value: "DOGE"},
		{key: KeyLogLevel, value: "loud"},
		{key: KeyImportConcurrency, value: 0},
		{key: KeySummaryRecent, value: -1},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}

	v := viper.New()
	SetDefaults(v)
	v.Set(KeyDatabasePath, "")
	_, err := Load(v)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("VAULT_DOTENV_PROBE=from-file\n"), 0o600))

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	t.Cleanup(func() { _ = os.Unsetenv("VAULT_DOTENV_PROBE") })
	assert.Equal(t, "from-file", os.Getenv("VAULT_DOTENV_PROBE"))
}
