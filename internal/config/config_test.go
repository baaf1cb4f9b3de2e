package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parlor.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultCatalogue(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:8080", cfg.Address())
	assert.Equal(t, "info", cfg.Server.LogLevel)

	tables := cfg.TeenPattiTables()
	require.Len(t, tables, 120)
	assert.Equal(t, "tp-001", tables[0].ID)
	assert.Equal(t, "Global Table 1", tables[0].Name)
	assert.Equal(t, 50, tables[0].Ante)
	assert.Equal(t, 2000, tables[39].MinBuyIn)
	assert.Equal(t, 200, tables[40].Ante)
	assert.Equal(t, 10000, tables[40].MinBuyIn)
	assert.Equal(t, 500, tables[119].Ante)
	assert.Equal(t, 600000, tables[119].MaxBuyIn)
	assert.Equal(t, "tp-120", tables[119].ID)
	assert.Equal(t, 6, tables[77].MaxPlayers)

	require.Len(t, cfg.LudoTables(), 1)
	require.Len(t, cfg.TwentyNineTables(), 1)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server {
  port      = 9000
  log_level = "debug"
  seed      = 42
}

teenpatti_table "high" {
  name = "High Rollers"
  ante = 1000
}

ludo_table "ludo-1" {
  auto_start = true
}

twentynine_table "t29-1" {
  name = "Club"
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, int64(42), cfg.Server.Seed)
	assert.Equal(t, "localhost", cfg.Server.Address)

	tp := cfg.TeenPattiTables()
	require.Len(t, tp, 1)
	assert.Equal(t, "High Rollers", tp[0].Name)
	assert.Equal(t, 40000, tp[0].MinBuyIn)
	assert.Equal(t, 800000, tp[0].MaxBuyIn)
	assert.Equal(t, 6, tp[0].MaxPlayers)

	ludo := cfg.LudoTables()
	require.Len(t, ludo, 1)
	assert.True(t, ludo[0].AutoStart)
	assert.Equal(t, "ludo-1", ludo[0].Name)
	assert.Equal(t, "Club", cfg.TwentyNineTables()[0].Name)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server {
  port    = 9000
  db_path = "file.db"
}
`)
	t.Setenv("PARLOR_PORT", "7000")
	t.Setenv("PARLOR_AUTH_SECRET", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Server.AuthSecret)
	assert.Equal(t, "file.db", cfg.Server.DBPath, "unset env leaves file values")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, `server {`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `teenpatti_table "x" {}`))
	assert.Error(t, err, "ante is required")

	t.Setenv("PARLOR_PORT", "not-a-number")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"log level", func(c *Config) { c.Server.LogLevel = "loud" }},
		{"duplicate id", func(c *Config) { c.Ludo[0].ID = c.TeenPatti[0].ID }},
		{"empty id", func(c *Config) { c.TwentyNine[0].ID = "" }},
		{"buy-in range", func(c *Config) { c.TeenPatti[3].MaxBuyIn = 1 }},
		{"ante", func(c *Config) { c.TeenPatti[0].Ante = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
