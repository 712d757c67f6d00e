package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/rah-ai/financial-daily-summary/internal/pipeline"
)

// clearEnv blanks every variable Load reads so the host environment does not
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MAX_RETRIES", "BACKOFF_BASE_SECONDS", "BACKOFF_CAP_SECONDS", "STAGE_TIMEOUT_SECONDS",
		"CONTINUE_ON_FAILURE", "NEWS_TOPIC", "NEWS_LIMIT", "FINNHUB_API_KEY",
		"ALPHA_VANTAGE_API_KEY", "MASSIVE_API_KEY", "TAVILY_API_KEY", "SERPER_API_KEY", "LLM_PROVIDER",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"DATABASE_URL", "REDIS_URL", "SEEN_TTL_HOURS", "LOG_LEVEL", "LOG_FORMAT", "API_ADDR",
		"FRONTEND_URL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("TARGET_LOCALES", "hi,ar,he")
}

func TestDefaultRetryPolicy(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	assert.Equal(t, nil, err)

	assert.Equal(t, pipeline.DefaultRetryPolicy(), cfg.RetryPolicy())
	assert.Equal(t, false, cfg.Pipeline.ContinueOnFailure)
	assert.Equal(t, []string{"hi", "ar", "he"}, cfg.Pipeline.TargetLocales)
	assert.Equal(t, 72*time.Hour, cfg.SeenTTL())
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "briefing.yaml")
	yaml := `
pipeline:
  max_retries: 5
  backoff_base_seconds: 0.5
  backoff_cap_seconds: 4
  continue_on_failure: true
  stage_retries:
    deliver:
      max_retries: 1
      stage_timeout_seconds: 10
news:
  topic: "semiconductor earnings"
  limit: 12
llm:
  provider: anthropic
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MAX_RETRIES", "2")
	t.Setenv("TARGET_LOCALES", "es, fr")

	cfg, err := Load(path)
	assert.Equal(t, nil, err)

	assert.Equal(t, 2, cfg.Pipeline.MaxRetries)
	assert.Equal(t, true, cfg.Pipeline.ContinueOnFailure)
	assert.Equal(t, "semiconductor earnings", cfg.News.Topic)
	assert.Equal(t, 12, cfg.News.Limit)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, []string{"es", "fr"}, cfg.Pipeline.TargetLocales)

	policy := cfg.RetryPolicy()
	assert.Equal(t, 500*time.Millisecond, policy.BaseDelay)
	assert.Equal(t, 4*time.Second, policy.MaxDelay)

	want := map[string]pipeline.RetryPolicy{
		"deliver": {MaxRetries: 1, BaseDelay: 500 * time.Millisecond, MaxDelay: 4 * time.Second, Timeout: 10 * time.Second},
	}
	if diff := cmp.Diff(want, cfg.StagePolicies()); diff != "" {
		t.Errorf("stage policies mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_RETRIES", "three")
	t.Setenv("CONTINUE_ON_FAILURE", "maybe")

	_, err := Load("")
	assert.NotEqual(t, nil, err)
	assert.Equal(t, true, strings.Contains(err.Error(), "MAX_RETRIES"))
	assert.Equal(t, true, strings.Contains(err.Error(), "CONTINUE_ON_FAILURE"))
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NotEqual(t, nil, err)
}

func TestValidateListsEveryMissingKey(t *testing.T) {
	cfg := Default()

	err := cfg.Validate(false)
	assert.NotEqual(t, nil, err)

	msg := err.Error()
	assert.Equal(t, true, strings.Contains(msg, "missing required configuration"))
	assert.Equal(t, true, strings.Contains(msg, "OPENAI_API_KEY"))
	assert.Equal(t, true, strings.Contains(msg, "TELEGRAM_BOT_TOKEN"))
	assert.Equal(t, true, strings.Contains(msg, "TELEGRAM_CHAT_ID"))
	assert.Equal(t, true, strings.Contains(msg, "TAVILY_API_KEY"))
}

func TestValidateDryRunSkipsTelegram(t *testing.T) {
	cfg := Default()
	cfg.News.TavilyAPIKey = "tvly"
	cfg.LLM.OpenAIAPIKey = "sk"

	assert.Equal(t, nil, cfg.Validate(true))
	assert.NotEqual(t, nil, cfg.Validate(false))
}

func TestValidateBounds(t *testing.T) {
	cfg := Default()
	cfg.News.TavilyAPIKey = "tvly"
	cfg.LLM.OpenAIAPIKey = "sk"
	cfg.Pipeline.MaxRetries = -1
	cfg.Pipeline.BackoffBaseSeconds = 10
	cfg.Pipeline.BackoffCapSeconds = 1
	cfg.Pipeline.TargetLocales = []string{"hi", "xx", "hi"}

	err := cfg.Validate(true)
	assert.NotEqual(t, nil, err)

	msg := err.Error()
	assert.Equal(t, true, strings.Contains(msg, "max_retries"))
	assert.Equal(t, true, strings.Contains(msg, "backoff"))
	assert.Equal(t, true, strings.Contains(msg, `unsupported target locale "xx"`))
	assert.Equal(t, true, strings.Contains(msg, `"hi" listed twice`))
}

func TestValidateExtractiveNeedsTranslator(t *testing.T) {
	cfg := Default()
	cfg.News.FinnhubAPIKey = "fh"
	cfg.LLM.Provider = ProviderExtractive

	assert.NotEqual(t, nil, cfg.Validate(true))

	cfg.Pipeline.TargetLocales = nil
	assert.Equal(t, nil, cfg.Validate(true))
}
