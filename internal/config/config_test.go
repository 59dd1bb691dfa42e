package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/boiler_data.xlsx", cfg.SourcePath)
	assert.Empty(t, cfg.SourceURL)
	assert.Equal(t, 30*time.Second, cfg.SourceTimeout)
	assert.Equal(t, SinkFile, cfg.Sink)
	assert.Equal(t, "public", cfg.OutputDir)
	assert.Equal(t, "data/boiler.db", cfg.SQLitePath)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "boiler-telemetry", cfg.KafkaSinkTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.LogFile)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 8, cfg.SyncCacheSize)
	assert.Equal(t, domain.DefaultBuildConfig(), cfg.Build)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("SOURCE_PATH", "/srv/boiler.xls")
	t.Setenv("SOURCE_URL", "https://example.test/boiler.xlsx")
	t.Setenv("SOURCE_TOKEN", "secret")
	t.Setenv("SOURCE_TIMEOUT", "5s")
	t.Setenv("SINK", "KAFKA")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_FILE", "/var/log/boiler.log")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("SYNC_INTERVAL", "1m")
	t.Setenv("SYNC_CACHE_SIZE", "2")
	t.Setenv("SCAN_FLOOR", "4")
	t.Setenv("SCAN_CEILING", "none")
	t.Setenv("BOILER_CAPACITIES", "20, 19.5,0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/boiler.xls", cfg.SourcePath)
	assert.Equal(t, "https://example.test/boiler.xlsx", cfg.SourceURL)
	assert.Equal(t, "secret", cfg.SourceToken)
	assert.Equal(t, 5*time.Second, cfg.SourceTimeout)
	assert.Equal(t, SinkKafka, cfg.Sink)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "/var/log/boiler.log", cfg.LogFile)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
	assert.Equal(t, 2, cfg.SyncCacheSize)
	assert.Equal(t, domain.ScanWindow{Floor: 4, Ceiling: domain.NoCeiling}, cfg.Build.Window)
	assert.Equal(t, map[domain.BoilerID]float64{
		domain.Boiler1: 20,
		domain.Boiler2: 19.5,
		domain.Boiler3: 0,
	}, cfg.Build.Capacities)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SOURCE_TIMEOUT", "soon"},
		{"SYNC_INTERVAL", "0s"},
		{"SYNC_CACHE_SIZE", "0"},
		{"SCAN_FLOOR", "-1"},
		{"SCAN_CEILING", "top"},
		{"BOILER_CAPACITIES", "18,18"},
		{"BOILER_CAPACITIES", "18,-1,16"},
		{"SINK", "s3"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_CeilingBelowFloor(t *testing.T) {
	t.Setenv("SCAN_FLOOR", "100")
	t.Setenv("SCAN_CEILING", "50")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid build settings")
}

func TestLoad_KafkaSinkUsesDefaultBroker(t *testing.T) {
	t.Setenv("SINK", "kafka")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SinkKafka, cfg.Sink)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
}

func TestLoad_SQLiteSink(t *testing.T) {
	t.Setenv("SINK", "SQLite")
	t.Setenv("SQLITE_PATH", "/var/lib/boiler/etl.db")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SinkSQLite, cfg.Sink)
	assert.Equal(t, "/var/lib/boiler/etl.db", cfg.SQLitePath)
}

func TestValidate_SinkRequirements(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"file", Config{SourcePath: "wb.xlsx", Sink: SinkFile}, "OUTPUT_DIR"},
		{"kafka", Config{SourcePath: "wb.xlsx", Sink: SinkKafka}, "KAFKA_BROKERS"},
		{"sqlite", Config{SourcePath: "wb.xlsx", Sink: SinkSQLite}, "SQLITE_PATH"},
		{"source", Config{Sink: SinkFile, OutputDir: "public"}, "SOURCE_PATH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boiler.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[scan]
floor = 12
ceiling = 600

[capacities]
boiler3 = 14.5

[sheets]
water = ["feedwater"]
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SCAN_CEILING", "700")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Build.Window.Floor)
	assert.Equal(t, 700, cfg.Build.Window.Ceiling, "env overrides the file")
	assert.Equal(t, 14.5, cfg.Build.Capacity(domain.Boiler3))
	assert.Equal(t, 18.0, cfg.Build.Capacity(domain.Boiler1))
	assert.Equal(t, []string{"feedwater"}, cfg.Build.Hints[domain.WaterKey])
	assert.Equal(t, []string{"ngsteam", "steam"}, cfg.Build.Hints[domain.SteamKey])
}

func TestLoad_MissingConfigFileFails(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.toml"))
	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultBuildConfig(), cfg.Build)
}

func TestLoadFile_Missing(t *testing.T) {
	f, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Nil(t, f)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseFile_Errors(t *testing.T) {
	_, err := ParseFile([]byte("[scan]\nfloor = \"nine\""))
	assert.Error(t, err)

	_, err = ParseFile([]byte("[sheets]\nsteem = [\"x\"]"))
	assert.Error(t, err, "unknown keys are rejected")

	f, err := ParseFile([]byte("[capacities]\nboiler2 = -3.0"))
	require.NoError(t, err)
	b := domain.DefaultBuildConfig()
	assert.Error(t, f.Apply(&b))
}
