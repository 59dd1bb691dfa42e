package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

// Sink names accepted by SINK.
const (
	SinkFile   = "file"
	SinkKafka  = "kafka"
	SinkSQLite = "sqlite"
)

// Config holds all service settings, populated from environment variables
// and an optional TOML file.
type Config struct {
	// Workbook source. SourceURL wins over SourcePath when both are set.
	SourcePath    string
	SourceURL     string
	SourceToken   string
	SourceTimeout time.Duration

	Sink           string
	OutputDir      string
	SQLitePath     string
	KafkaBrokers   []string
	KafkaSinkTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	LogFile         string
	ShutdownTimeout time.Duration

	SyncInterval  time.Duration
	SyncCacheSize int

	ConfigFile string

	// Build is the sheet hints, scan window and capacities used for
	// extraction.
	Build domain.BuildConfig
}

// Load reads configuration from environment variables, applying defaults
// where unset. If CONFIG_FILE names a TOML file, its values are applied
// before the environment, so an env var always has the last word.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	sourceTimeout, err := parsePositiveDuration("SOURCE_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	syncInterval, err := parsePositiveDuration("SYNC_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("SYNC_CACHE_SIZE", 8)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SourcePath:      sharedcfg.EnvOrDefault("SOURCE_PATH", "data/boiler_data.xlsx"),
		SourceURL:       os.Getenv("SOURCE_URL"),
		SourceToken:     os.Getenv("SOURCE_TOKEN"),
		SourceTimeout:   sourceTimeout,
		Sink:            strings.ToLower(sharedcfg.EnvOrDefault("SINK", SinkFile)),
		OutputDir:       sharedcfg.EnvOrDefault("OUTPUT_DIR", "public"),
		SQLitePath:      sharedcfg.EnvOrDefault("SQLITE_PATH", "data/boiler.db"),
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:  sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "boiler-telemetry"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		LogFile:         os.Getenv("LOG_FILE"),
		ShutdownTimeout: shutdownTimeout,
		SyncInterval:    syncInterval,
		SyncCacheSize:   cacheSize,
		ConfigFile:      os.Getenv("CONFIG_FILE"),
		Build:           domain.DefaultBuildConfig(),
	}

	if cfg.ConfigFile != "" {
		fc, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		if err := fc.Apply(&cfg.Build); err != nil {
			return nil, fmt.Errorf("config file %s: %w", cfg.ConfigFile, err)
		}
	}

	if err := applyBuildEnv(&cfg.Build); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SourcePath == "" && c.SourceURL == "" {
		return errors.New("SOURCE_PATH or SOURCE_URL is required")
	}
	switch c.Sink {
	case SinkFile:
		if c.OutputDir == "" {
			return errors.New("OUTPUT_DIR is required for the file sink")
		}
	case SinkKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required for the kafka sink")
		}
		if c.KafkaSinkTopic == "" {
			return errors.New("KAFKA_SINK_TOPIC is required for the kafka sink")
		}
	case SinkSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite sink")
		}
	default:
		return fmt.Errorf("invalid SINK %q: must be %s, %s or %s", c.Sink, SinkFile, SinkKafka, SinkSQLite)
	}
	if err := c.Build.Validate(); err != nil {
		return fmt.Errorf("invalid build settings: %w", err)
	}
	return nil
}

func applyBuildEnv(b *domain.BuildConfig) error {
	if s := os.Getenv("SCAN_FLOOR"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return errors.New("invalid SCAN_FLOOR")
		}
		b.Window.Floor = n
	}
	if s := os.Getenv("SCAN_CEILING"); s != "" {
		n, err := parseCeiling(s)
		if err != nil {
			return errors.New("invalid SCAN_CEILING")
		}
		b.Window.Ceiling = n
	}
	if s := os.Getenv("BOILER_CAPACITIES"); s != "" {
		caps, err := parseCapacities(s)
		if err != nil {
			return fmt.Errorf("invalid BOILER_CAPACITIES: %w", err)
		}
		b.Capacities = caps
	}
	return nil
}

// parseCeiling accepts a row index, or "none" for an unbounded scan.
func parseCeiling(s string) (int, error) {
	if strings.EqualFold(strings.TrimSpace(s), "none") {
		return domain.NoCeiling, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("ceiling %q must be a row index or none", s)
	}
	return n, nil
}

// parseCapacities reads "18,18,16" as the capacities of boilers 1 to 3.
func parseCapacities(s string) (map[domain.BoilerID]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != len(domain.Boilers) {
		return nil, fmt.Errorf("want %d values, got %d", len(domain.Boilers), len(parts))
	}
	caps := make(map[domain.BoilerID]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("boiler %d: %q is not a capacity", i+1, p)
		}
		caps[domain.Boilers[i]] = v
	}
	return caps, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
