package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
app:
  name: station-alert
  env: test
data:
  source: csv
  csv_path: data/telemetry.csv
  mapping_path: configs/column_mapping.csv
rules:
  path: configs/rules.yaml
database:
  timescaledb:
    host: localhost
    port: 5432
    user: postgres
    password: secret
    dbname: station_data
    sslmode: disable
api:
  port: "8080"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "station-alert", cfg.App.Name)
	assert.Equal(t, "csv", cfg.Data.Source)
	assert.Equal(t, "localhost", cfg.Database.TimescaleDB.Host)
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "PK", cfg.Data.KeyColumn)
	assert.Equal(t, "bit", cfg.Data.BitColumn)
	assert.Equal(t, "ts", cfg.Data.TimeColumn)
	assert.Equal(t, "equ_code", cfg.Data.DeviceColumn)
	assert.Equal(t, 30*time.Second, cfg.Data.Lateness.Std())
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, "info", cfg.App.LogLevel)
}

func TestLoadConfigDurationLiteral(t *testing.T) {
	content := strings.Replace(sampleConfig, "source: csv", "source: csv\n  lateness: 45s", 1)
	cfg, err := LoadConfig(writeConfig(t, content))
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Data.Lateness.Std())

	_, err = LoadConfig(writeConfig(t, strings.Replace(sampleConfig, "source: csv", "source: csv\n  lateness: notaduration", 1)))
	assert.Error(t, err)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("NATS_URL", "nats://broker:4222")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.TimescaleDB.Host)
	assert.Equal(t, 6432, cfg.Database.TimescaleDB.Port)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
}

func TestLoadConfigRejectsBadEnvPort(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	_, err := LoadConfig(writeConfig(t, sampleConfig))
	assert.Error(t, err)
}

func TestLoadConfigBadYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "app: [unclosed"))
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
