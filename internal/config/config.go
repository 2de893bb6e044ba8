package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/leadpilot/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Automation AutomationConfig `yaml:"automation" mapstructure:"automation"`
	Credit     CreditConfig     `yaml:"credit" mapstructure:"credit"`
	Profile    model.Profile    `yaml:"profile" mapstructure:"profile"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures session persistence.
type StoreConfig struct {
	Driver       string        `yaml:"driver" mapstructure:"driver"`
	DatabaseURL  string        `yaml:"database_url" mapstructure:"database_url"`
	SyncInterval time.Duration `yaml:"sync_interval" mapstructure:"sync_interval"`
	MaxConns     int32         `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns     int32         `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	LanguageCode string  `yaml:"language_code" mapstructure:"language_code"`
}

// DiscoveryConfig selects the candidate source.
type DiscoveryConfig struct {
	// Source is "perplexity" or "places".
	Source          string `yaml:"source" mapstructure:"source"`
	DefaultLocation string `yaml:"default_location" mapstructure:"default_location"`
	DefaultSector   string `yaml:"default_sector" mapstructure:"default_sector"`
}

// PipelineConfig configures the discovery and enrichment run.
type PipelineConfig struct {
	Limit               int           `yaml:"limit" mapstructure:"limit"`
	Throttle            time.Duration `yaml:"throttle" mapstructure:"throttle"`
	LookupTimeout       time.Duration `yaml:"lookup_timeout" mapstructure:"lookup_timeout"`
	DiscoveryTimeout    time.Duration `yaml:"discovery_timeout" mapstructure:"discovery_timeout"`
	RetryAttempts       int           `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	StopWhenOutOfCredit bool          `yaml:"stop_when_out_of_credit" mapstructure:"stop_when_out_of_credit"`
}

// AutomationConfig configures webhook delivery of completed leads.
type AutomationConfig struct {
	// WebhookURL is the fallback endpoint when the profile has none.
	WebhookURL       string        `yaml:"webhook_url" mapstructure:"webhook_url"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RateLimit        float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout"`
}

// CreditConfig configures the credit meter.
type CreditConfig struct {
	InitialBalance int `yaml:"initial_balance" mapstructure:"initial_balance"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	// A missing .env is fine; it only seeds os env for AutomaticEnv below.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEADPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows, so secrets need
	// empty defaults to be settable from the environment.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("perplexity.key", "")
	v.SetDefault("jina.key", "")
	v.SetDefault("google.key", "")
	v.SetDefault("automation.webhook_url", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadpilot.db")
	v.SetDefault("store.sync_interval", "2s")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("google.rate_limit", 5)
	v.SetDefault("google.language_code", "en")
	v.SetDefault("discovery.source", "perplexity")
	v.SetDefault("discovery.default_location", "Istanbul")
	v.SetDefault("discovery.default_sector", "tech")
	v.SetDefault("pipeline.limit", 20)
	v.SetDefault("pipeline.throttle", "500ms")
	v.SetDefault("pipeline.lookup_timeout", "90s")
	v.SetDefault("pipeline.discovery_timeout", "120s")
	v.SetDefault("pipeline.retry_attempts", 2)
	v.SetDefault("pipeline.stop_when_out_of_credit", false)
	v.SetDefault("automation.timeout", "10s")
	v.SetDefault("automation.rate_limit", 5)
	v.SetDefault("automation.failure_threshold", 5)
	v.SetDefault("automation.reset_timeout", "30s")
	v.SetDefault("credit.initial_balance", 1500)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command mode depends on. Modes: "pipeline"
// (run and serve) and "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "pipeline", "serve":
		switch c.Discovery.Source {
		case "perplexity":
			if c.Perplexity.Key == "" {
				errs = append(errs, "perplexity.key is required for discovery.source=perplexity")
			}
		case "places":
			if c.Google.Key == "" {
				errs = append(errs, "google.key is required for discovery.source=places")
			}
		default:
			errs = append(errs, "discovery.source must be perplexity or places")
		}
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.Pipeline.Limit < 0 {
			errs = append(errs, "pipeline.limit must be >= 0")
		}
		if c.Pipeline.Throttle < 0 {
			errs = append(errs, "pipeline.throttle must be >= 0")
		}
	}

	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
