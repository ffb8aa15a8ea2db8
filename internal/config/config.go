package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Eval      EvalConfig      `yaml:"eval" mapstructure:"eval"`
	External  ExternalConfig  `yaml:"external" mapstructure:"external"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the results database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for the reasoning capability.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// JinaConfig holds Jina AI embeddings settings for the semantic capability.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// EvalConfig configures the comparison engine. Thresholds here are the
// defaults applied when an AttributeSpec carries none of its own.
type EvalConfig struct {
	FuzzyThreshold        float64 `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
	SemanticThreshold     float64 `yaml:"semantic_threshold" mapstructure:"semantic_threshold"`
	LLMThreshold          float64 `yaml:"llm_threshold" mapstructure:"llm_threshold"`
	ListItemThreshold     float64 `yaml:"list_item_threshold" mapstructure:"list_item_threshold"`
	MaxConcurrentSections int     `yaml:"max_concurrent_sections" mapstructure:"max_concurrent_sections"`
	MaxConcurrentAttrs    int     `yaml:"max_concurrent_attrs" mapstructure:"max_concurrent_attrs"`
}

// ExternalConfig governs calls to the embedding and reasoning capabilities.
type ExternalConfig struct {
	MaxConcurrent   int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`
	RetryAttempts   int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	BackoffMs       int     `yaml:"backoff_ms" mapstructure:"backoff_ms"`
	BreakerFailures int     `yaml:"breaker_failures" mapstructure:"breaker_failures"`
}

// ServerConfig configures the evaluation HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("EVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "evaluations.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 512)
	v.SetDefault("jina.base_url", "https://api.jina.ai")
	v.SetDefault("jina.model", "jina-embeddings-v3")
	v.SetDefault("eval.fuzzy_threshold", 0.8)
	v.SetDefault("eval.semantic_threshold", 0.8)
	v.SetDefault("eval.llm_threshold", 0.8)
	v.SetDefault("eval.list_item_threshold", 0.8)
	v.SetDefault("eval.max_concurrent_sections", 4)
	v.SetDefault("eval.max_concurrent_attrs", 8)
	v.SetDefault("external.max_concurrent", 4)
	v.SetDefault("external.timeout_secs", 30)
	v.SetDefault("external.rate_limit_per_sec", 10)
	v.SetDefault("external.retry_attempts", 3)
	v.SetDefault("external.backoff_ms", 1000)
	v.SetDefault("external.breaker_failures", 5)

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
