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
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Mistral   MistralConfig   `yaml:"mistral" mapstructure:"mistral"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings. The classifier runs on
// the cheaper model; per-page extraction and second-turn retries use
// the stronger one.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	ClassifyModel  string `yaml:"classify_model" mapstructure:"classify_model"`
	ExtractModel   string `yaml:"extract_model" mapstructure:"extract_model"`
	MaxRetries     int    `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSec int    `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// MistralConfig holds the document-annotation backend settings.
type MistralConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PipelineConfig configures extraction behavior.
type PipelineConfig struct {
	// Backend selects the extraction backend: "vision" (per-page image
	// calls) or "document" (assembled-PDF annotation service).
	Backend string `yaml:"backend" mapstructure:"backend"`

	// ClassifyBatchSize is the number of pages per classification call.
	ClassifyBatchSize int `yaml:"classify_batch_size" mapstructure:"classify_batch_size"`

	// MaxSecondTurnPasses caps targeted re-extraction passes. The
	// production default is a single pass.
	MaxSecondTurnPasses int `yaml:"max_second_turn_passes" mapstructure:"max_second_turn_passes"`

	// AnnotatePageLimit is the externally imposed page ceiling per
	// document-annotation call.
	AnnotatePageLimit int `yaml:"annotate_page_limit" mapstructure:"annotate_page_limit"`
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
	v.SetEnvPrefix("CONTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.classify_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.extract_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_retries", 3)
	v.SetDefault("anthropic.requests_per_sec", 5)
	v.SetDefault("mistral.model", "mistral-ocr-latest")
	v.SetDefault("mistral.base_url", "https://api.mistral.ai")
	v.SetDefault("pipeline.backend", "vision")
	v.SetDefault("pipeline.classify_batch_size", 15)
	v.SetDefault("pipeline.max_second_turn_passes", 1)
	v.SetDefault("pipeline.annotate_page_limit", 8)

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
