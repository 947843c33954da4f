package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultPath is where Load looks for a config file when none is given.
const DefaultPath = "./config/config.yml"

const envPrefix = "DOWNSCALER"

// Config holds the main configuration for the application.
type Config struct {
	Resize  Resize  `mapstructure:"resize"`
	Batch   Batch   `mapstructure:"batch"`
	Retry   Retry   `mapstructure:"retry"`
	Storage Storage `mapstructure:"storage"`
	Kafka   Kafka   `mapstructure:"kafka"`
}

// Resize holds the size-convergence settings.
type Resize struct {
	SizeLimit   string `mapstructure:"size_limit"`   // humanized, e.g. "44MiB"
	MaxPasses   int    `mapstructure:"max_passes"`   // iteration cap of the convergence loop
	FixedFormat string `mapstructure:"fixed_format"` // output format when converting
	Quality     int    `mapstructure:"quality"`      // encoder quality for the fixed format
}

// Batch holds worker pool settings.
type Batch struct {
	Workers  int  `mapstructure:"workers"` // 0 means one per logical CPU
	Progress bool `mapstructure:"progress"`
}

// Retry defines retry policy configuration for outbound sinks.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Storage holds configuration for the optional S3-compatible output mirror.
type Storage struct {
	Enabled    bool   `mapstructure:"enabled"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for the optional result event stream.
type Kafka struct {
	Enabled bool     `mapstructure:"enabled"`
	Topic   string   `mapstructure:"topic"`   // Kafka topic name
	Brokers []string `mapstructure:"brokers"` // List of Kafka broker addresses
}

// LimitBytes parses SizeLimit into a byte count.
func (r Resize) LimitBytes() (int64, error) {
	n, err := humanize.ParseBytes(r.SizeLimit)
	if err != nil {
		return 0, fmt.Errorf("invalid size limit %q: %w", r.SizeLimit, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("size limit must be positive")
	}

	return int64(n), nil
}

// WorkerCount returns the pool size, defaulting to the logical CPU count.
func (b Batch) WorkerCount() int {
	if b.Workers > 0 {
		return b.Workers
	}

	return runtime.NumCPU()
}

// Validate checks values that cannot be expressed through defaults.
func (c *Config) Validate() error {
	if _, err := c.Resize.LimitBytes(); err != nil {
		return err
	}
	if c.Resize.MaxPasses < 1 {
		return fmt.Errorf("max passes must be at least 1, got %d", c.Resize.MaxPasses)
	}
	if c.Resize.Quality < 1 || c.Resize.Quality > 100 {
		return fmt.Errorf("quality must be within 1..100, got %d", c.Resize.Quality)
	}
	switch strings.ToLower(c.Resize.FixedFormat) {
	case "jpeg", "jpg":
	default:
		return fmt.Errorf("unsupported fixed format %q", c.Resize.FixedFormat)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Batch.Workers)
	}
	if c.Storage.Enabled && (c.Storage.Endpoint == "" || c.Storage.BucketName == "") {
		return errors.New("storage is enabled but endpoint or bucket_name is empty")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("kafka is enabled but brokers or topic is empty")
	}

	return nil
}

// flagBindings maps viper keys to the command-line flags that override them.
var flagBindings = map[string]string{
	"resize.size_limit": "size-limit",
	"resize.max_passes": "max-passes",
	"resize.quality":    "quality",
	"batch.workers":     "workers",
	"batch.progress":    "progress",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("resize.size_limit", "44MiB")
	v.SetDefault("resize.max_passes", 10)
	v.SetDefault("resize.fixed_format", "jpeg")
	v.SetDefault("resize.quality", 100)
	v.SetDefault("batch.workers", 0)
	v.SetDefault("batch.progress", false)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 200*time.Millisecond)
	v.SetDefault("retry.backoff", 2.0)
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket_name", "")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "downscaler.results")
}

// Load builds the configuration from defaults, an optional YAML file,
// DOWNSCALER_* environment variables and the given flags, in increasing
// order of precedence.
//
// A missing file at DefaultPath is not an error; a missing explicit path is.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for key, name := range flagBindings {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
