package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/tooltrack-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Research ResearchConfig `yaml:"research" mapstructure:"research"`
	Notion   NotionConfig   `yaml:"notion" mapstructure:"notion"`
	Curation CurationConfig `yaml:"curation" mapstructure:"curation"`
	Alerts   AlertsConfig   `yaml:"alerts" mapstructure:"alerts"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ResearchConfig holds settings for the research collection client.
type ResearchConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	Model     string  `yaml:"model" mapstructure:"model"`
	MaxTokens int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// NotionConfig holds the Notion watchlist integration settings.
type NotionConfig struct {
	Token       string `yaml:"token" mapstructure:"token"`
	WatchlistDB string `yaml:"watchlist_db" mapstructure:"watchlist_db"`
}

// CurationConfig holds the curation policy knobs. These are loaded once at
// process start and passed into the core at construction.
type CurationConfig struct {
	MinQualityThreshold   float64 `yaml:"min_quality_threshold" mapstructure:"min_quality_threshold"`
	SignificanceThreshold float64 `yaml:"significance_threshold" mapstructure:"significance_threshold"`
	FreshnessWindowDays   int     `yaml:"freshness_window_days" mapstructure:"freshness_window_days"`
	FreshnessHorizonDays  int     `yaml:"freshness_horizon_days" mapstructure:"freshness_horizon_days"`
}

// AlertsConfig configures outbound alerting.
type AlertsConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	LookbackHours        int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
}

// BatchConfig configures batch curation.
type BatchConfig struct {
	MaxConcurrentTools int `yaml:"max_concurrent_tools" mapstructure:"max_concurrent_tools"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TOOLTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "tooltrack.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_tools", 5)
	v.SetDefault("curation.min_quality_threshold", 0.7)
	v.SetDefault("curation.significance_threshold", 0.5)
	v.SetDefault("curation.freshness_window_days", 30)
	v.SetDefault("curation.freshness_horizon_days", 180)
	v.SetDefault("research.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("research.max_tokens", 4096)
	v.SetDefault("research.rate_limit", 0.5)
	v.SetDefault("alerts.failure_rate_threshold", 0.25)
	v.SetDefault("alerts.lookback_hours", 24)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
