package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "dirac-fulfillment", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 200*time.Millisecond, cfg.Database.SlowQueryThresh)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, allocation.GateOnConfirmed, cfg.Allocation.Mode())
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[app]
name = "fulfillment-test"
env = "test"
port = "9090"

[database]
host = "db.internal"
port = 5433
user = "svc"
dbname = "orders"

[allocation]
gate_mode = "received"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "fulfillment-test", cfg.App.Name)
	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, allocation.GateOnReceived, cfg.Allocation.Mode())
}

func TestLoadRejectsInvalidGateMode(t *testing.T) {
	dir := t.TempDir()
	content := `
[allocation]
gate_mode = "whenever"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gate_mode")
}

func TestLoadRejectsBadPoolSettings(t *testing.T) {
	dir := t.TempDir()
	content := `
[database]
max_open_conns = 2
max_idle_conns = 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_idle_conns")
}

func TestDatabaseConfigDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "p@ss/word",
		DBName:   "fulfillment",
		SSLMode:  "disable",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "localhost:5432")
	assert.Contains(t, dsn, "/fulfillment")
	assert.Contains(t, dsn, "sslmode=disable")
	// Special characters in the password must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}
