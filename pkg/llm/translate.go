package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rah-ai/financial-daily-summary/pkg/fault"
)

var languages = map[string]string{
	"hi": "Hindi",
	"ar": "Arabic",
	"he": "Hebrew",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"ja": "Japanese",
	"zh": "Chinese",
	"pt": "Portuguese",
	"ru": "Russian",
}

// LanguageName maps a locale code to the language name used in prompts.
func LanguageName(locale string) (string, bool) {
	name, ok := languages[strings.ToLower(locale)]
	return name, ok
}

func translateSystemPrompt(language string) string {
	return fmt.Sprintf(`You are a professional financial translator. Translate the user's market briefing into %s.

Rules:
- Keep numbers, percentages, tickers and company names unchanged
- Keep the bullet structure
- Do not add commentary

Output as JSON only, no other text:
{
  "translation": "translated text"
}`, language)
}

func resolveLocale(text, locale string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fault.Fatalf("nothing to translate")
	}
	language, ok := LanguageName(locale)
	if !ok {
		return "", fault.Fatalf("unsupported locale %q", locale)
	}
	return language, nil
}

func parseTranslation(content, locale, language, model string) (*Translation, error) {
	content = cleanJSONResponse(content)

	var parsed struct {
		Translation string `json:"translation"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fault.Transient(fmt.Errorf("failed to parse translation: %w, content: %s", err, content))
	}
	if strings.TrimSpace(parsed.Translation) == "" {
		return nil, fault.Transientf("empty %s translation from %s", language, model)
	}

	return &Translation{
		Locale:    locale,
		Language:  language,
		Text:      parsed.Translation,
		ModelUsed: model,
	}, nil
}
