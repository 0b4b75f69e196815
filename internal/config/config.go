// Package config provides configuration structures and loading logic for tracebench.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the root configuration structure for tracebench.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Loader   LoaderConfig   `mapstructure:"loader"`
	Report   ReportConfig   `mapstructure:"report"`
	Tempo    TempoConfig    `mapstructure:"tempo"`
	Datasets []Dataset      `mapstructure:"datasets"`
}

// AppConfig defines process-level settings such as the serve address and log level.
type AppConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// AnalysisConfig defines how traces are windowed, filtered and loaded.
type AnalysisConfig struct {
	Window            string  `mapstructure:"window"`
	IQRMultiplier     float64 `mapstructure:"iqr_multiplier"`
	ParallelLoads     bool    `mapstructure:"parallel_loads"`
	NegativeDurations string  `mapstructure:"negative_durations"`
}

// LoaderConfig defines tolerance for bad input lines.
type LoaderConfig struct {
	SkipMalformedLines bool `mapstructure:"skip_malformed_lines"`
}

// ReportConfig defines how results are rendered and exported.
type ReportConfig struct {
	Format      string `mapstructure:"format"`
	Bins        int    `mapstructure:"bins"`
	Width       int    `mapstructure:"width"`
	MarkdownDir string `mapstructure:"markdown_dir"`
	MetricsFile string `mapstructure:"metrics_file"`

	SlackWebhookURL string `mapstructure:"slack_webhook_url"`
}

// TempoConfig defines connection settings for the Grafana Tempo backend traces are exported from.
type TempoConfig struct {
	URL         string `mapstructure:"url"`
	Timeout     string `mapstructure:"timeout"`
	SearchLimit int    `mapstructure:"search_limit"`
}

// GetTimeoutDuration parses the configured string timeout into a time.Duration.
func (c *TempoConfig) GetTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// Dataset names the trace files recorded for one benchmark run at a given load (messages/second).
type Dataset struct {
	Name  string   `mapstructure:"name"`
	Rate  int      `mapstructure:"rate"`
	Files []string `mapstructure:"files"`
}

// GetWindow parses the configured window. ok is false when no window is configured.
func (c *AnalysisConfig) GetWindow() (d time.Duration, ok bool, err error) {
	if strings.TrimSpace(c.Window) == "" {
		return 0, false, nil
	}
	d, err = time.ParseDuration(c.Window)
	if err != nil {
		return 0, false, fmt.Errorf("invalid analysis.window %q: %w", c.Window, err)
	}
	if d < 0 {
		return 0, false, fmt.Errorf("invalid analysis.window %q: must not be negative", c.Window)
	}
	return d, true, nil
}

// SlogLevel maps the configured log level onto slog. Unknown values fall back to info.
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Addr returns the host:port the HTTP server listens on.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FindDataset returns the dataset with the given name.
func FindDataset(datasets []Dataset, name string) (Dataset, bool) {
	for _, d := range datasets {
		if d.Name == name {
			return d, true
		}
	}
	return Dataset{}, false
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("analysis.window", "")
	v.SetDefault("analysis.iqr_multiplier", 1.5)
	v.SetDefault("analysis.parallel_loads", true)
	v.SetDefault("analysis.negative_durations", "keep")
	v.SetDefault("loader.skip_malformed_lines", false)
	v.SetDefault("report.format", "text")
	v.SetDefault("report.bins", 30)
	v.SetDefault("report.width", 50)
	v.SetDefault("report.markdown_dir", "")
	v.SetDefault("report.metrics_file", "")
	v.SetDefault("report.slack_webhook_url", "")
	v.SetDefault("tempo.url", "http://localhost:3200")
	v.SetDefault("tempo.timeout", "30s")
	v.SetDefault("tempo.search_limit", 1000)
}

// New returns a viper instance with search paths, environment binding and defaults applied.
// If configFile is non-empty it is used instead of searching.
func New(configFile string) *viper.Viper {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("tracebench")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/tracebench")
	}

	// Allow environment variables to override config
	v.SetEnvPrefix("TRACEBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	return v
}

// Load reads configuration into a Config. A missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if _, _, err := cfg.Analysis.GetWindow(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
