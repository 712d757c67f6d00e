package llm

import (
	"context"
	"strings"
	"time"
)

type SummaryInput struct {
	Title       string
	Snippet     string
	Publisher   string
	PublishedAt time.Time
	Symbols     []string
}

type Summary struct {
	Paragraph string   `json:"paragraph"`
	Bullets   []string `json:"bullets"`
	ModelUsed string   `json:"model_used"`
}

// Text renders the summary as the plain text that gets translated and
// delivered.
func (s *Summary) Text() string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(s.Paragraph))
	for i, b := range s.Bullets {
		if i == 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("\n• ")
		sb.WriteString(strings.TrimSpace(b))
	}
	return sb.String()
}

type Translation struct {
	Locale    string `json:"locale"`
	Language  string `json:"language"`
	Text      string `json:"text"`
	ModelUsed string `json:"model_used"`
}

type Summarizer interface {
	Summarize(ctx context.Context, items []SummaryInput) (*Summary, error)
}

type Translator interface {
	Translate(ctx context.Context, text, locale string) (*Translation, error)
}

func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Some model responses include extra prose around JSON.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}
