package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "modulistica.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "manca.yaml"))
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "modulistica.db", cfg.Database.DSN)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "…", cfg.Render.Marker)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: dati.db
definitions: definizioni.yaml
log:
  level: debug
fonts:
  Corporate: fonts/corporate.ttf
entities:
  unit:
    table: units
    relations:
      children: {kind: unit, local: id, remote: parent_id, many: true}
  customer:
    table: customers
    primary_key: code
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	dir := filepath.Dir(path)
	require.Equal(t, "dati.db", cfg.Database.DSN)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, filepath.Join(dir, "definizioni.yaml"), cfg.Definitions)
	require.Equal(t, filepath.Join(dir, "fonts/corporate.ttf"), cfg.Fonts["Corporate"])
	require.Equal(t, filepath.Join(dir, "output"), cfg.OutputDir)

	unit := cfg.Entities["unit"]
	require.Equal(t, "units", unit.Name)
	require.True(t, unit.Relations["children"].Many)
	require.Equal(t, "parent_id", unit.Relations["children"].Remote)
	require.Equal(t, "code", cfg.Entities["customer"].PrimaryKey)

	lvl, err := cfg.ZapLevel()
	require.NoError(t, err)
	require.Equal(t, zapcore.DebugLevel, lvl.Level())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv(EnvDSN, "file:override.db")
	cfg, err := Load(writeConfig(t, "database: {dsn: dati.db}\n"))
	require.NoError(t, err)
	require.Equal(t, "file:override.db", cfg.Database.DSN)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"driver":    "database: {driver: oracle}\n",
		"log level": "log: {level: loud}\n",
		"entity":    "entities: {unit: {primary_key: id}}\n",
		"yaml":      "database: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}
