// Package config loads the pipeline configuration from defaults, an
// optional YAML file and the environment (including a .env file), in that
// order of precedence from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rah-ai/financial-daily-summary/internal/pipeline"
	"github.com/rah-ai/financial-daily-summary/pkg/llm"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderExtractive = "extractive"
)

type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	News     NewsConfig     `yaml:"news"`
	LLM      LLMConfig      `yaml:"llm"`
	Telegram TelegramConfig `yaml:"telegram"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
	API      APIConfig      `yaml:"api"`
}

type PipelineConfig struct {
	MaxRetries          int                   `yaml:"max_retries"`
	BackoffBaseSeconds  float64               `yaml:"backoff_base_seconds"`
	BackoffCapSeconds   float64               `yaml:"backoff_cap_seconds"`
	StageTimeoutSeconds float64               `yaml:"stage_timeout_seconds"`
	ContinueOnFailure   bool                  `yaml:"continue_on_failure"`
	TargetLocales       []string              `yaml:"target_locales"`
	StageRetries        map[string]StageRetry `yaml:"stage_retries"`
}

// StageRetry overrides the pipeline retry settings for one stage. Unset
// fields inherit the pipeline value.
type StageRetry struct {
	MaxRetries          *int     `yaml:"max_retries"`
	BackoffBaseSeconds  *float64 `yaml:"backoff_base_seconds"`
	BackoffCapSeconds   *float64 `yaml:"backoff_cap_seconds"`
	StageTimeoutSeconds *float64 `yaml:"stage_timeout_seconds"`
}

type NewsConfig struct {
	Topic              string `yaml:"topic"`
	Limit              int    `yaml:"limit"`
	FinnhubAPIKey      string `yaml:"finnhub_api_key"`
	AlphaVantageAPIKey string `yaml:"alpha_vantage_api_key"`
	MassiveAPIKey      string `yaml:"massive_api_key"`
	TavilyAPIKey       string `yaml:"tavily_api_key"`
	SerperAPIKey       string `yaml:"serper_api_key"`
}

type LLMConfig struct {
	Provider        string `yaml:"provider"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type StorageConfig struct {
	DatabaseURL  string  `yaml:"database_url"`
	RedisURL     string  `yaml:"redis_url"`
	SeenTTLHours float64 `yaml:"seen_ttl_hours"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type APIConfig struct {
	Addr        string `yaml:"addr"`
	FrontendURL string `yaml:"frontend_url"`
}

func Default() *Config {
	p := pipeline.DefaultRetryPolicy()
	return &Config{
		Pipeline: PipelineConfig{
			MaxRetries:          p.MaxRetries,
			BackoffBaseSeconds:  p.BaseDelay.Seconds(),
			BackoffCapSeconds:   p.MaxDelay.Seconds(),
			StageTimeoutSeconds: p.Timeout.Seconds(),
			TargetLocales:       []string{"hi", "ar", "he"},
		},
		News: NewsConfig{
			Topic: "latest US financial market news",
			Limit: 8,
		},
		LLM:     LLMConfig{Provider: ProviderOpenAI},
		Storage: StorageConfig{SeenTTLHours: 72},
		Log:     LogConfig{Level: "info", Format: "json"},
		API:     APIConfig{Addr: ":8080"},
	}
}

// Load reads .env (if any), then the YAML file at path (if set), then the
// environment.
func Load(path string) (*Config, error) {
	godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error

	envInt(&c.Pipeline.MaxRetries, "MAX_RETRIES", &errs)
	envFloat(&c.Pipeline.BackoffBaseSeconds, "BACKOFF_BASE_SECONDS", &errs)
	envFloat(&c.Pipeline.BackoffCapSeconds, "BACKOFF_CAP_SECONDS", &errs)
	envFloat(&c.Pipeline.StageTimeoutSeconds, "STAGE_TIMEOUT_SECONDS", &errs)
	envBool(&c.Pipeline.ContinueOnFailure, "CONTINUE_ON_FAILURE", &errs)
	envList(&c.Pipeline.TargetLocales, "TARGET_LOCALES")

	envString(&c.News.Topic, "NEWS_TOPIC")
	envInt(&c.News.Limit, "NEWS_LIMIT", &errs)
	envString(&c.News.FinnhubAPIKey, "FINNHUB_API_KEY")
	envString(&c.News.AlphaVantageAPIKey, "ALPHA_VANTAGE_API_KEY")
	envString(&c.News.MassiveAPIKey, "MASSIVE_API_KEY")
	envString(&c.News.TavilyAPIKey, "TAVILY_API_KEY")
	envString(&c.News.SerperAPIKey, "SERPER_API_KEY")

	envString(&c.LLM.Provider, "LLM_PROVIDER")
	envString(&c.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	envString(&c.LLM.AnthropicAPIKey, "ANTHROPIC_API_KEY")

	envString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	envString(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")

	envString(&c.Storage.DatabaseURL, "DATABASE_URL")
	envString(&c.Storage.RedisURL, "REDIS_URL")
	envFloat(&c.Storage.SeenTTLHours, "SEEN_TTL_HOURS", &errs)

	envString(&c.Log.Level, "LOG_LEVEL")
	envString(&c.Log.Format, "LOG_FORMAT")

	envString(&c.API.Addr, "API_ADDR")
	envString(&c.API.FrontendURL, "FRONTEND_URL")

	return errors.Join(errs...)
}

// Validate checks bounds and required credentials. With dryRun the
// Telegram credentials are not needed.
func (c *Config) Validate(dryRun bool) error {
	var errs []error

	p := c.Pipeline
	if p.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must be >= 0, got %d", p.MaxRetries))
	}
	if p.BackoffBaseSeconds < 0 || p.BackoffCapSeconds < p.BackoffBaseSeconds {
		errs = append(errs, fmt.Errorf("backoff must satisfy 0 <= base (%g) <= cap (%g)", p.BackoffBaseSeconds, p.BackoffCapSeconds))
	}
	if p.StageTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("stage_timeout_seconds must be > 0, got %g", p.StageTimeoutSeconds))
	}
	if c.News.Limit <= 0 {
		errs = append(errs, fmt.Errorf("news limit must be > 0, got %d", c.News.Limit))
	}

	seen := make(map[string]bool, len(p.TargetLocales))
	for _, loc := range p.TargetLocales {
		if _, ok := llm.LanguageName(loc); !ok {
			errs = append(errs, fmt.Errorf("unsupported target locale %q", loc))
		}
		if seen[loc] {
			errs = append(errs, fmt.Errorf("target locale %q listed twice", loc))
		}
		seen[loc] = true
	}

	var missing []string

	if !c.HasNewsSource() {
		missing = append(missing, "FINNHUB_API_KEY, ALPHA_VANTAGE_API_KEY, MASSIVE_API_KEY, TAVILY_API_KEY or SERPER_API_KEY")
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case ProviderAnthropic:
		if c.LLM.AnthropicAPIKey == "" {
			missing = append(missing, "ANTHROPIC_API_KEY")
		}
	case ProviderExtractive:
		if len(p.TargetLocales) > 0 && c.LLM.OpenAIAPIKey == "" && c.LLM.AnthropicAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY or ANTHROPIC_API_KEY (for translation)")
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}

	if !dryRun {
		if c.Telegram.BotToken == "" {
			missing = append(missing, "TELEGRAM_BOT_TOKEN")
		}
		if c.Telegram.ChatID == "" {
			missing = append(missing, "TELEGRAM_CHAT_ID")
		}
	}

	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required configuration: %s", strings.Join(missing, "; ")))
	}

	return errors.Join(errs...)
}

func (c *Config) HasNewsSource() bool {
	n := c.News
	return n.FinnhubAPIKey != "" || n.AlphaVantageAPIKey != "" || n.MassiveAPIKey != "" ||
		n.TavilyAPIKey != "" || n.SerperAPIKey != ""
}

func (c *Config) RetryPolicy() pipeline.RetryPolicy {
	p := c.Pipeline
	return pipeline.RetryPolicy{
		MaxRetries: p.MaxRetries,
		BaseDelay:  seconds(p.BackoffBaseSeconds),
		MaxDelay:   seconds(p.BackoffCapSeconds),
		Timeout:    seconds(p.StageTimeoutSeconds),
	}
}

// StagePolicies resolves per-stage overrides on top of RetryPolicy.
func (c *Config) StagePolicies() map[string]pipeline.RetryPolicy {
	if len(c.Pipeline.StageRetries) == 0 {
		return nil
	}

	base := c.RetryPolicy()
	out := make(map[string]pipeline.RetryPolicy, len(c.Pipeline.StageRetries))
	for name, o := range c.Pipeline.StageRetries {
		p := base
		if o.MaxRetries != nil {
			p.MaxRetries = *o.MaxRetries
		}
		if o.BackoffBaseSeconds != nil {
			p.BaseDelay = seconds(*o.BackoffBaseSeconds)
		}
		if o.BackoffCapSeconds != nil {
			p.MaxDelay = seconds(*o.BackoffCapSeconds)
		}
		if o.StageTimeoutSeconds != nil {
			p.Timeout = seconds(*o.StageTimeoutSeconds)
		}
		out[name] = p
	}
	return out
}

func (c *Config) SeenTTL() time.Duration {
	return time.Duration(c.Storage.SeenTTLHours * float64(time.Hour))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envList(dst *[]string, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func envInt(dst *int, key string, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func envFloat(dst *float64, key string, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = f
}

func envBool(dst *bool, key string, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}
