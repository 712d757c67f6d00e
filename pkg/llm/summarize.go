package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rah-ai/financial-daily-summary/pkg/fault"
)

const summarySystemPrompt = `You are a financial news editor. Given a list of financial news headlines and snippets, write a daily market briefing.

Rules for the paragraph:
- Single paragraph, concise and neutral, under 200 words
- Summarize the overall market mood

Rules for bullets:
- 3 to 5 bullet points
- Each bullet covers a distinct key event or theme
- Include company names, numbers, and percentages where relevant
- One sentence per bullet

Output as JSON only, no other text:
{
  "paragraph": "executive summary paragraph",
  "bullets": ["key event 1", "key event 2", "key event 3"]
}`

func formatSummaryPrompt(items []SummaryInput) string {
	var sb strings.Builder
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. Headline: %s\nSnippet: %s\n", i+1, item.Title, item.Snippet))
		if item.Publisher != "" {
			sb.WriteString(fmt.Sprintf("Publisher: %s\n", item.Publisher))
		}
		if len(item.Symbols) > 0 {
			sb.WriteString(fmt.Sprintf("Tickers: %s\n", strings.Join(item.Symbols, ", ")))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// parseSummary decodes a model reply. Malformed output is transient since a
// second sample usually parses.
func parseSummary(content, model string) (*Summary, error) {
	content = cleanJSONResponse(content)

	var parsed struct {
		Paragraph string   `json:"paragraph"`
		Bullets   []string `json:"bullets"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fault.Transient(fmt.Errorf("failed to parse summary: %w, content: %s", err, content))
	}
	if strings.TrimSpace(parsed.Paragraph) == "" {
		return nil, fault.Transientf("empty summary paragraph from %s", model)
	}

	return &Summary{
		Paragraph: parsed.Paragraph,
		Bullets:   parsed.Bullets,
		ModelUsed: model,
	}, nil
}

func checkItems(items []SummaryInput) error {
	if len(items) == 0 {
		return fault.Fatalf("no news items to summarize")
	}
	return nil
}
