// Package delivery sends the daily briefing to a recipient channel.
package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rah-ai/financial-daily-summary/pkg/chart"
)

type Translation struct {
	Locale   string `json:"locale"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

type Bundle struct {
	Summary      string           `json:"summary"`
	Charts       []chart.ImageRef `json:"charts"`
	Translations []Translation    `json:"translations"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

type Receipt struct {
	Channel     string    `json:"channel"`
	MessageIDs  []int64   `json:"message_ids"`
	ChartsSent  int       `json:"charts_sent"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type Messenger interface {
	Deliver(ctx context.Context, bundle Bundle) (*Receipt, error)
}

// Notifier sends a short out-of-band message, such as a failed-run notice.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

const maxMessageChars = 4000

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"`", "\\`",
)

// EscapeMarkdown escapes the characters legacy Telegram Markdown treats as
// entity delimiters.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Format renders the bundle as a single Markdown message.
func Format(b Bundle) string {
	var sb strings.Builder

	sb.WriteString("📈 *Daily Financial Brief*\n")
	if !b.GeneratedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("_%s_\n", b.GeneratedAt.UTC().Format("Monday, 02 Jan 2006 15:04 MST")))
	}

	sb.WriteString("\n*Overview*\n")
	sb.WriteString(EscapeMarkdown(strings.TrimSpace(b.Summary)))
	sb.WriteString("\n")

	for _, tr := range b.Translations {
		sb.WriteString(fmt.Sprintf("\n🌐 *%s* (%s)\n", tr.Language, tr.Locale))
		sb.WriteString(EscapeMarkdown(strings.TrimSpace(tr.Text)))
		sb.WriteString("\n")
	}

	if len(b.Charts) > 0 {
		sb.WriteString(fmt.Sprintf("\n📊 %d chart(s) attached\n", len(b.Charts)))
	}

	return sb.String()
}

// Split breaks text into messages of at most max runes, preferring line
// breaks, and labels each with "Part i/n" when more than one is needed.
func Split(text string, max int) []string {
	if len([]rune(text)) <= max {
		return []string{text}
	}

	// Leave room for the "Part i/n" header.
	budget := max - 16
	if budget < 1 {
		budget = 1
	}
	var chunks []string
	var cur []rune

	for _, line := range strings.SplitAfter(text, "\n") {
		r := []rune(line)
		for len(r) > budget {
			if len(cur) > 0 {
				chunks = append(chunks, string(cur))
				cur = nil
			}
			cut := hardCut(r, budget)
			chunks = append(chunks, string(r[:cut]))
			r = r[cut:]
		}
		if len(cur)+len(r) > budget {
			chunks = append(chunks, string(cur))
			cur = nil
		}
		cur = append(cur, r...)
	}
	if len(cur) > 0 {
		chunks = append(chunks, string(cur))
	}

	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = fmt.Sprintf("Part %d/%d\n%s", i+1, len(chunks), c)
	}
	return out
}

// hardCut keeps a Markdown escape and the character it escapes in the same
// chunk.
func hardCut(r []rune, budget int) int {
	if budget > 1 && r[budget-1] == '\\' {
		return budget - 1
	}
	return budget
}
