package briefing

import (
	"context"
	"fmt"

	"github.com/rah-ai/financial-daily-summary/internal/model"
	"github.com/rah-ai/financial-daily-summary/internal/pipeline"
	"github.com/rah-ai/financial-daily-summary/pkg/chart"
	"github.com/rah-ai/financial-daily-summary/pkg/delivery"
	"github.com/rah-ai/financial-daily-summary/pkg/fault"
	"github.com/rah-ai/financial-daily-summary/pkg/llm"
	"github.com/rah-ai/financial-daily-summary/pkg/news"
)

type builder struct {
	a Adapters
	o Options
}

// seenHeadroom multiplies the fetch limit when a seen filter is wired, so
// items already sent yesterday do not crowd out the day's fresh ones.
const seenHeadroom = 3

func (b *builder) fetch(ctx context.Context, _ pipeline.Inputs) (any, error) {
	limit := b.o.Limit
	if b.a.Seen != nil && limit > 0 {
		limit *= seenHeadroom
	}

	items, err := b.a.News.FetchLatest(ctx, b.o.Topic, limit)
	if err != nil {
		return nil, err
	}

	items, err = news.Dedupe(ctx, b.a.Seen, items)
	if err != nil {
		return nil, err
	}
	if b.o.Limit > 0 && len(items) > b.o.Limit {
		items = items[:b.o.Limit]
	}

	if len(items) == 0 {
		return nil, fault.Fatalf("no new items for topic %q", b.o.Topic)
	}
	return items, nil
}

func (b *builder) summarize(ctx context.Context, in pipeline.Inputs) (any, error) {
	items, err := pipeline.Input[[]news.Item](in, ArtifactNews)
	if err != nil {
		return nil, err
	}

	inputs := make([]llm.SummaryInput, len(items))
	for i, item := range items {
		inputs[i] = llm.SummaryInput{
			Title:       item.Title,
			Snippet:     item.Snippet,
			Publisher:   item.Publisher,
			PublishedAt: item.PublishedAt,
			Symbols:     item.Symbols,
		}
	}

	return b.a.Summarizer.Summarize(ctx, inputs)
}

// ChartData derives the ticker and publisher series shown with the
// briefing. Empty series are dropped.
func ChartData(items []news.Item) []chart.Data {
	var symbols, publishers []string
	for _, item := range items {
		symbols = append(symbols, item.Symbols...)
		publishers = append(publishers, item.Publisher)
	}

	var out []chart.Data
	for _, d := range []chart.Data{
		chart.TopCounts("Ticker mentions", chart.KindBar, symbols, chartTopN),
		chart.TopCounts("Publisher coverage", chart.KindPie, publishers, chartTopN),
	} {
		if !d.Empty() {
			out = append(out, d)
		}
	}
	return out
}

func (b *builder) renderCharts(ctx context.Context, in pipeline.Inputs) (any, error) {
	items, err := pipeline.Input[[]news.Item](in, ArtifactNews)
	if err != nil {
		return nil, err
	}

	refs := []chart.ImageRef{}
	for _, d := range ChartData(items) {
		ref, err := b.a.Charts.Render(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("render %q: %w", d.Title, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (b *builder) translate(locale string) pipeline.Capability {
	return func(ctx context.Context, in pipeline.Inputs) (any, error) {
		summary, err := pipeline.Input[*llm.Summary](in, ArtifactSummary)
		if err != nil {
			return nil, err
		}
		return b.a.Translator.Translate(ctx, summary.Text(), locale)
	}
}

// bundle collects whatever upstream artifacts exist. Translations follow
// the configured locale order.
func (b *builder) bundle(in pipeline.Inputs, summary *llm.Summary) delivery.Bundle {
	bundle := delivery.Bundle{
		Summary:     summary.Text(),
		GeneratedAt: b.o.Now(),
	}

	if refs, ok := pipeline.Lookup[[]chart.ImageRef](in, ArtifactCharts); ok {
		bundle.Charts = refs
	}

	for _, loc := range b.o.Locales {
		tr, ok := pipeline.Lookup[*llm.Translation](in, TranslationArtifact(loc))
		if !ok {
			continue
		}
		bundle.Translations = append(bundle.Translations, delivery.Translation{
			Locale:   tr.Locale,
			Language: tr.Language,
			Text:     tr.Text,
		})
	}

	return bundle
}

func (b *builder) deliver(ctx context.Context, in pipeline.Inputs) (any, error) {
	summary, err := pipeline.Input[*llm.Summary](in, ArtifactSummary)
	if err != nil {
		return nil, err
	}
	return b.a.Messenger.Deliver(ctx, b.bundle(in, summary))
}

func (b *builder) archive(ctx context.Context, in pipeline.Inputs) (any, error) {
	summary, err := pipeline.Input[*llm.Summary](in, ArtifactSummary)
	if err != nil {
		return nil, err
	}
	receipt, err := pipeline.Input[*delivery.Receipt](in, ArtifactReceipt)
	if err != nil {
		return nil, err
	}

	bundle := b.bundle(in, summary)

	d := &model.Digest{
		RunID:        b.o.RunID,
		Paragraph:    summary.Paragraph,
		Bullets:      summary.Bullets,
		Translations: make(map[string]string, len(bundle.Translations)),
		ModelUsed:    summary.ModelUsed,
		Channel:      receipt.Channel,
	}
	for _, tr := range bundle.Translations {
		d.Translations[tr.Locale] = tr.Text
	}
	for _, ref := range bundle.Charts {
		d.ChartURLs = append(d.ChartURLs, ref.URL)
	}
	if items, ok := pipeline.Lookup[[]news.Item](in, ArtifactNews); ok {
		d.ItemCount = len(items)
	}

	if err := b.a.Archive.SaveDigest(ctx, d); err != nil {
		return nil, fault.Transient(fmt.Errorf("save digest: %w", err))
	}
	return d, nil
}

func (b *builder) markSeen(ctx context.Context, in pipeline.Inputs) (any, error) {
	items, err := pipeline.Input[[]news.Item](in, ArtifactNews)
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = item.Key()
	}

	if err := b.a.Memory.MarkSeen(ctx, keys, b.o.SeenTTL); err != nil {
		return nil, fault.Transient(fmt.Errorf("mark seen: %w", err))
	}
	return len(keys), nil
}
