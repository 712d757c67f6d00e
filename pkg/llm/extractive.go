package llm

import (
	"context"
	"strings"
)

const (
	extractiveMaxWords   = 200
	extractiveMaxBullets = 5
)

// Extractive builds a summary from the headlines without calling a model.
type Extractive struct{}

func (Extractive) Summarize(ctx context.Context, items []SummaryInput) (*Summary, error) {
	if err := checkItems(items); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(items))
	for _, item := range items {
		if t := strings.TrimSpace(item.Title); t != "" {
			titles = append(titles, strings.TrimRight(t, "."))
		}
	}

	bullets := titles
	if len(bullets) > extractiveMaxBullets {
		bullets = bullets[:extractiveMaxBullets]
	}

	return &Summary{
		Paragraph: limitWords(strings.Join(titles, ". ")+".", extractiveMaxWords),
		Bullets:   bullets,
		ModelUsed: "extractive",
	}, nil
}

func limitWords(s string, max int) string {
	words := strings.Fields(s)
	if len(words) <= max {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:max], " ") + "..."
}
