package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/strata/internal/config"
)

func memFs(t *testing.T) afero.Fs {
	t.Helper()

	prev := config.AppFs
	fs := afero.NewMemMapFs()
	config.AppFs = fs
	t.Cleanup(func() { config.AppFs = prev })

	homedir.DisableCache = true
	t.Setenv("HOME", "/home/test")
	for _, key := range []string{"DATABASE_URL", "STRATA_LOG_LEVEL", "STRATA_SERVER_ADDR"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return fs
}

func TestLoadDefaults(t *testing.T) {
	memFs(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Dialect)
	assert.Equal(t, "file:strata.db", cfg.Database.URL)
	assert.Equal(t, 5*time.Minute, cfg.Database.StatementTTL)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.File)
}

func TestLoadFileAndEnv(t *testing.T) {
	fs := memFs(t)

	require.NoError(t, afero.WriteFile(fs, "/home/test/.strata.yaml", []byte(`
database:
  dialect: postgres
  url: postgres://localhost/app
  statement_ttl: 30s
server:
  base_path: /api
min_version: 0.2.0
`), 0o644))
	t.Setenv("STRATA_SERVER_ADDR", ":9000")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "/home/test/.strata.yaml", cfg.File)
	assert.Equal(t, "postgres", cfg.Database.Dialect)
	assert.Equal(t, "postgres://localhost/app", cfg.Database.URL)
	assert.Equal(t, 30*time.Second, cfg.Database.StatementTTL)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "0.2.0", cfg.MinVersion)
}

func TestLoadDotEnv(t *testing.T) {
	fs := memFs(t)

	require.NoError(t, afero.WriteFile(fs, ".env", []byte("DATABASE_URL=file:from-env.db\nSTRATA_LOG_LEVEL=warn\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, ".env.local", []byte("STRATA_LOG_LEVEL=debug\n"), 0o644))

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "file:from-env.db", cfg.Database.URL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestSaveThenLoad(t *testing.T) {
	fs := memFs(t)

	path, err := config.Save(&config.Config{
		Database: config.Database{Dialect: "mysql", URL: "root@/app", StatementTTL: time.Minute},
		Server:   config.Server{Addr: ":7000"},
		LogLevel: "info",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "/home/test/.config/strata/.strata.yaml", path)

	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	require.True(t, exists)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Dialect)
	assert.Equal(t, time.Minute, cfg.Database.StatementTTL)
	assert.Equal(t, ":7000", cfg.Server.Addr)
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		min     string
		current string
		wantErr error
	}{
		{"", "0.0.1", nil},
		{"0.2.0", "0.2.0", nil},
		{"0.2.0", "1.0.0", nil},
		{"0.2.0", "0.1.9", config.ErrVersionTooOld},
	}
	for _, tt := range tests {
		cfg := &config.Config{MinVersion: tt.min}
		err := cfg.CheckVersion(tt.current)
		if tt.wantErr == nil {
			assert.NoError(t, err, "%s vs %s", tt.current, tt.min)
		} else {
			assert.ErrorIs(t, err, tt.wantErr)
		}
	}

	assert.Error(t, (&config.Config{MinVersion: "nope"}).CheckVersion("1.0.0"))
}
