package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/crossover/internal/alert"
	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/strategy/ma_crossover"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Backtest   BacktestConfig   `mapstructure:"backtest"`
	Collectors CollectorsConfig `mapstructure:"collectors"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Notifiers  NotifiersConfig  `mapstructure:"notifiers"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	APIKey          string        `mapstructure:"api_key"`
	JobTTLHours     int           `mapstructure:"job_ttl_hours"`
	MaxJobs         int           `mapstructure:"max_jobs"`
	JobTimeout      time.Duration `mapstructure:"job_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// BacktestConfig holds the defaults used when a backtest request omits a field.
type BacktestConfig struct {
	Symbol     string `mapstructure:"symbol"`
	Source     string `mapstructure:"source"`
	Start      string `mapstructure:"start"` // YYYY-MM-DD
	End        string `mapstructure:"end"`   // YYYY-MM-DD
	FastWindow int    `mapstructure:"fast_window"`
	SlowWindow int    `mapstructure:"slow_window"`
}

// StartDate parses Start.
func (b BacktestConfig) StartDate() (time.Time, error) {
	return time.Parse(core.DateLayout, b.Start)
}

// EndDate parses End.
func (b BacktestConfig) EndDate() (time.Time, error) {
	return time.Parse(core.DateLayout, b.End)
}

type CollectorsConfig struct {
	Yahoo YahooConfig `mapstructure:"yahoo"`
	CSV   CSVConfig   `mapstructure:"csv"`
}

type YahooConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CSVConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// CacheConfig controls the in-memory price cache in front of each source.
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

type StorageConfig struct {
	Archive ArchiveConfig `mapstructure:"archive"`
}

// ArchiveConfig selects the report archive. An empty Type disables it.
type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs", "s3" or ""
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// NotifiersConfig selects where finished backtest jobs are announced.
type NotifiersConfig struct {
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// AlertsConfig holds rules checked against every backtest result.
type AlertsConfig struct {
	Rules []alert.Rule `mapstructure:"rules"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file. Keys missing from the file keep
// their Defaults value. An empty path returns Defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Defaults(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("server.job_ttl_hours", d.Server.JobTTLHours)
	v.SetDefault("server.max_jobs", d.Server.MaxJobs)
	v.SetDefault("server.job_timeout", d.Server.JobTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)

	v.SetDefault("backtest.symbol", d.Backtest.Symbol)
	v.SetDefault("backtest.source", d.Backtest.Source)
	v.SetDefault("backtest.start", d.Backtest.Start)
	v.SetDefault("backtest.end", d.Backtest.End)
	v.SetDefault("backtest.fast_window", d.Backtest.FastWindow)
	v.SetDefault("backtest.slow_window", d.Backtest.SlowWindow)

	v.SetDefault("collectors.yahoo.enabled", d.Collectors.Yahoo.Enabled)
	v.SetDefault("collectors.yahoo.base_url", d.Collectors.Yahoo.BaseURL)
	v.SetDefault("collectors.yahoo.timeout", d.Collectors.Yahoo.Timeout)
	v.SetDefault("collectors.csv.enabled", d.Collectors.CSV.Enabled)
	v.SetDefault("collectors.csv.dir", d.Collectors.CSV.Dir)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)

	v.SetDefault("storage.archive.type", d.Storage.Archive.Type)
	v.SetDefault("storage.archive.path", d.Storage.Archive.Path)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			JobTTLHours:     1,
			MaxJobs:         100,
			JobTimeout:      2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Backtest: BacktestConfig{
			Symbol:     "TATAMOTORS.NS",
			Source:     "yahoo",
			Start:      "2020-01-01",
			End:        "2024-01-01",
			FastWindow: 5,
			SlowWindow: 15,
		},
		Collectors: CollectorsConfig{
			Yahoo: YahooConfig{
				Enabled: true,
				Timeout: 10 * time.Second,
			},
			CSV: CSVConfig{
				Dir: "./data",
			},
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        15 * time.Minute,
			MaxEntries: 256,
		},
		Storage: StorageConfig{
			Archive: ArchiveConfig{
				Path: "./reports",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxJobs < 0 || c.Server.JobTTLHours < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_jobs and job_ttl_hours cannot be negative"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown log level %q", c.Log.Level))
	}

	// Backtest defaults must describe a runnable backtest
	b := c.Backtest
	if err := ma_crossover.ValidateWindows(b.FastWindow, b.SlowWindow); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("backtest: %w", err))
	}
	start, err := b.StartDate()
	if err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("backtest.start: %w", err))
	}
	end, err := b.EndDate()
	if err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("backtest.end: %w", err))
	}
	if end.Before(start) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("backtest.end %s before backtest.start %s", b.End, b.Start))
	}

	// Collector validation
	if c.Collectors.CSV.Enabled && c.Collectors.CSV.Dir == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("collectors.csv.dir required when csv is enabled"))
	}
	if b.Source != "" && !c.sourceEnabled(b.Source) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("backtest.source %q is not an enabled collector", b.Source))
	}

	if c.Cache.Enabled && (c.Cache.TTL <= 0 || c.Cache.MaxEntries < 1) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cache ttl and max_entries must be positive when cache is enabled"))
	}

	// Archive validation - if type set, check its settings exist
	switch c.Storage.Archive.Type {
	case "":
	case "localfs":
		if c.Storage.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage.archive.path required when type is localfs"))
		}
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage.archive.s3.bucket required when type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage.archive.type %q", c.Storage.Archive.Type))
	}

	// Notifier validation - enabled notifiers need their endpoint
	if c.Notifiers.Webhook.Enabled && c.Notifiers.Webhook.URL == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("notifiers.webhook.url required when webhook is enabled"))
	}
	if c.Notifiers.Telegram.Enabled && (c.Notifiers.Telegram.BotToken == "" || c.Notifiers.Telegram.ChatID == "") {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("notifiers.telegram bot_token and chat_id required when telegram is enabled"))
	}

	for i := range c.Alerts.Rules {
		if err := c.Alerts.Rules[i].Validate(); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path))
	}

	return nil
}

func (c *Config) sourceEnabled(name string) bool {
	switch name {
	case "yahoo":
		return c.Collectors.Yahoo.Enabled
	case "csv":
		return c.Collectors.CSV.Enabled
	}
	return false
}
