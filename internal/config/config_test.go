package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.NotEmpty(t, cfg.Storage.DataPath)
	assert.Empty(t, cfg.Storage.MirrorPath)
	assert.InDelta(t, 1.0, cfg.Auth.LoginRPS, 0.001)
	assert.Equal(t, 5, cfg.Auth.LoginBurst)
}

func TestLoadFlagsWin(t *testing.T) {
	t.Setenv("LIBRERIA_ENV", "staging")

	cfg, err := Load([]string{"-env", "production", "-storage-backend", "sqlite"})
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Environment)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
}

func TestLoadEnvironmentBeatsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "libreria.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
[app]
environment = "staging"

[logger]
level = "debug"
`), 0o644))

	t.Setenv("LIBRERIA_ENV", "production")

	cfg, err := Load([]string{"-config", file})
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Environment)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadTOMLFile(t *testing.T) {
	dataPath := t.TempDir()
	file := filepath.Join(t.TempDir(), "libreria.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
[storage]
data_path = "`+dataPath+`"
backend = "sqlite"

[auth]
login_rps = 2.5
login_burst = 10
`), 0o644))

	cfg, err := Load([]string{"-config", file})
	require.NoError(t, err)

	assert.Equal(t, dataPath, cfg.Storage.DataPath)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.InDelta(t, 2.5, cfg.Auth.LoginRPS, 0.001)
	assert.Equal(t, 10, cfg.Auth.LoginBurst)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	_, err := Load([]string{"-storage-backend", "memoria"})
	assert.Error(t, err)
}

func TestLoadRejectsUnknownEnvironment(t *testing.T) {
	_, err := Load([]string{"-env", "qa"})
	assert.Error(t, err)
}

func TestExpandDataPathResolvesHome(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{DataPath: "~/" + filepath.Join("subdir", "libreria")}}
	require.NoError(t, cfg.expandDataPath())

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "subdir", "libreria"), cfg.Storage.DataPath)
}
