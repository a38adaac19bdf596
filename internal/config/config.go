// Package config loads and validates application configuration from a
// yaml file and PIXWATCH_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Detector DetectorConfig `yaml:"detector" mapstructure:"detector"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Twitter  TwitterConfig  `yaml:"twitter" mapstructure:"twitter"`
	Reddit   RedditConfig   `yaml:"reddit" mapstructure:"reddit"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// LLMConfig holds OpenRouter API settings and batch dispatch tuning.
type LLMConfig struct {
	APIKey             string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL            string  `yaml:"base_url" mapstructure:"base_url"`
	Model              string  `yaml:"model" mapstructure:"model"`
	BatchSize          int     `yaml:"batch_size" mapstructure:"batch_size"`
	MaxConcurrent      int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	RequestDelaySecs   float64 `yaml:"request_delay_secs" mapstructure:"request_delay_secs"`
	RequestTimeoutSecs int     `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	MaxRetries         int     `yaml:"max_retries" mapstructure:"max_retries"`
	PromptTemplateFile string  `yaml:"prompt_template_file" mapstructure:"prompt_template_file"`
}

// RequestDelay returns the inter-request delay as a duration.
func (c LLMConfig) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySecs * float64(time.Second))
}

// RequestTimeout returns the per-request timeout as a duration.
func (c LLMConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// DetectorConfig configures thresholding.
type DetectorConfig struct {
	FraudThreshold float64 `yaml:"fraud_threshold" mapstructure:"fraud_threshold"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres, sqlite or file
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
	ResultsDir  string `yaml:"results_dir" mapstructure:"results_dir"`
	DLQPath     string `yaml:"dlq_path" mapstructure:"dlq_path"`
}

// TwitterConfig holds Twitter recent-search settings.
type TwitterConfig struct {
	BearerToken string `yaml:"bearer_token" mapstructure:"bearer_token"`
	Query       string `yaml:"query" mapstructure:"query"`
	MaxResults  int    `yaml:"max_results" mapstructure:"max_results"`
}

// RedditConfig holds Reddit search settings.
type RedditConfig struct {
	UserAgent  string   `yaml:"user_agent" mapstructure:"user_agent"`
	Query      string   `yaml:"query" mapstructure:"query"`
	Subreddits []string `yaml:"subreddits" mapstructure:"subreddits"`
	MaxResults int      `yaml:"max_results" mapstructure:"max_results"`
}

// ServerConfig configures the analyze HTTP server.
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
	v.SetEnvPrefix("PIXWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.batch_size", 10)
	v.SetDefault("llm.max_concurrent", 2)
	v.SetDefault("llm.request_delay_secs", 1.0)
	v.SetDefault("llm.request_timeout_secs", 60)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("detector.fraud_threshold", 0.7)
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.table", "fraud_cases")
	v.SetDefault("store.results_dir", "results")
	v.SetDefault("store.dlq_path", "results/failed_batches.jsonl")
	v.SetDefault("twitter.query", `"golpe do pix" OR "me roubaram no pix"`)
	v.SetDefault("twitter.max_results", 100)
	v.SetDefault("reddit.user_agent", "pixwatch/1.0")
	v.SetDefault("reddit.query", "sofri golpe pix")
	v.SetDefault("reddit.subreddits", []string{"ConselhosLegais", "golpe"})
	v.SetDefault("reddit.max_results", 100)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate fail-fasts on missing or out-of-bounds settings for the given
// command mode ("analyze", "fetch", "serve" or "run"). All problems are
// reported in one error so operators fix them in one pass.
func (c *Config) Validate(mode string) error {
	var problems []string

	llm := func() {
		if c.LLM.APIKey == "" {
			problems = append(problems, "llm.api_key is required")
		}
		if c.LLM.BaseURL == "" {
			problems = append(problems, "llm.base_url is required")
		}
		if c.LLM.Model == "" {
			problems = append(problems, "llm.model is required")
		}
		if c.LLM.BatchSize <= 0 {
			problems = append(problems, "llm.batch_size must be > 0")
		}
		if c.LLM.MaxConcurrent < 1 || c.LLM.MaxConcurrent > 50 {
			problems = append(problems, "llm.max_concurrent must be between 1 and 50")
		}
		if c.LLM.RequestDelaySecs < 0 {
			problems = append(problems, "llm.request_delay_secs must be >= 0")
		}
		if c.LLM.RequestTimeoutSecs <= 0 {
			problems = append(problems, "llm.request_timeout_secs must be > 0")
		}
		if c.Detector.FraudThreshold < 0 || c.Detector.FraudThreshold > 1 {
			problems = append(problems, "detector.fraud_threshold must be in [0,1]")
		}
	}

	store := func() {
		switch c.Store.Driver {
		case "postgres", "sqlite":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required")
			}
			if c.Store.Table == "" {
				problems = append(problems, "store.table is required")
			}
		case "file":
			if c.Store.ResultsDir == "" {
				problems = append(problems, "store.results_dir is required")
			}
		default:
			problems = append(problems, fmt.Sprintf("store.driver %q is not one of postgres, sqlite, file", c.Store.Driver))
		}
	}

	fetch := func() {
		if c.Twitter.BearerToken == "" && len(c.Reddit.Subreddits) == 0 {
			problems = append(problems, "at least one source is required: set twitter.bearer_token or reddit.subreddits")
		}
		if len(c.Reddit.Subreddits) > 0 && c.Reddit.UserAgent == "" {
			problems = append(problems, "reddit.user_agent is required")
		}
	}

	switch mode {
	case "analyze":
		llm()
		store()
	case "fetch":
		fetch()
	case "run":
		llm()
		store()
		fetch()
	case "serve":
		llm()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
