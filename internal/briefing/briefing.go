// Package briefing assembles the daily financial briefing pipeline from its
// adapters.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rah-ai/financial-daily-summary/internal/model"
	"github.com/rah-ai/financial-daily-summary/internal/pipeline"
	"github.com/rah-ai/financial-daily-summary/pkg/chart"
	"github.com/rah-ai/financial-daily-summary/pkg/delivery"
	"github.com/rah-ai/financial-daily-summary/pkg/llm"
	"github.com/rah-ai/financial-daily-summary/pkg/news"
)

const (
	ArtifactNews    = "news"
	ArtifactSummary = "summary"
	ArtifactCharts  = "charts"
	ArtifactReceipt = "receipt"
	ArtifactDigest  = "digest"
	ArtifactSeen    = "seen"

	StageFetch     = "fetchNews"
	StageSummarize = "summarize"
	StageCharts    = "renderCharts"
	StageDeliver   = "deliver"
	StageArchive   = "archive"
	StageMarkSeen  = "markSeen"

	chartTopN = 8
)

func TranslateStage(locale string) string {
	return "translate_" + locale
}

func TranslationArtifact(locale string) string {
	return "tr_" + locale
}

type DigestArchive interface {
	SaveDigest(ctx context.Context, d *model.Digest) error
}

type SeenMarker interface {
	MarkSeen(ctx context.Context, keys []string, ttl time.Duration) error
}

// Adapters are the external capabilities behind the stages. Seen, Charts,
// Archive and Memory are optional; a nil value leaves the matching stage
// (or dedupe step) out.
type Adapters struct {
	News       news.Source
	Seen       news.SeenFilter
	Summarizer llm.Summarizer
	Translator llm.Translator
	Charts     chart.Renderer
	Messenger  delivery.Messenger
	Archive    DigestArchive
	Memory     SeenMarker
}

type Options struct {
	RunID        string
	Topic        string
	Limit        int
	Locales      []string
	SeenTTL      time.Duration
	StageRetries map[string]pipeline.RetryPolicy
	Now          func() time.Time
}

// Stages returns the daily pipeline in execution order:
// fetchNews, summarize, renderCharts, translate_<locale>..., deliver,
// archive, markSeen.
func Stages(a Adapters, o Options) ([]pipeline.StageSpec, error) {
	if err := check(a, o); err != nil {
		return nil, err
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	b := &builder{a: a, o: o}

	specs := []pipeline.StageSpec{
		{
			Name:     StageFetch,
			Kind:     pipeline.KindFetch,
			Produces: ArtifactNews,
			Execute:  b.fetch,
		},
		{
			Name:     StageSummarize,
			Kind:     pipeline.KindSummarize,
			Requires: []string{ArtifactNews},
			Produces: ArtifactSummary,
			Execute:  b.summarize,
		},
	}

	// Everything delivery may carry besides the summary.
	var extras []string

	if a.Charts != nil {
		specs = append(specs, pipeline.StageSpec{
			Name:     StageCharts,
			Kind:     pipeline.KindChart,
			Requires: []string{ArtifactNews},
			Produces: ArtifactCharts,
			Execute:  b.renderCharts,
		})
		extras = append(extras, ArtifactCharts)
	}

	for _, loc := range o.Locales {
		specs = append(specs, pipeline.StageSpec{
			Name:     TranslateStage(loc),
			Kind:     pipeline.KindTranslate,
			Requires: []string{ArtifactSummary},
			Produces: TranslationArtifact(loc),
			Execute:  b.translate(loc),
		})
		extras = append(extras, TranslationArtifact(loc))
	}

	specs = append(specs, pipeline.StageSpec{
		Name:     StageDeliver,
		Kind:     pipeline.KindDeliver,
		Requires: []string{ArtifactSummary},
		Optional: extras,
		Produces: ArtifactReceipt,
		Execute:  b.deliver,
	})

	if a.Archive != nil {
		specs = append(specs, pipeline.StageSpec{
			Name:     StageArchive,
			Kind:     pipeline.KindArchive,
			Requires: []string{ArtifactSummary, ArtifactReceipt},
			Optional: append([]string{ArtifactNews}, extras...),
			Produces: ArtifactDigest,
			Execute:  b.archive,
		})
	}

	if a.Memory != nil {
		specs = append(specs, pipeline.StageSpec{
			Name:     StageMarkSeen,
			Kind:     pipeline.KindRemember,
			Requires: []string{ArtifactNews, ArtifactReceipt},
			Produces: ArtifactSeen,
			Execute:  b.markSeen,
		})
	}

	for i := range specs {
		if p, ok := o.StageRetries[specs[i].Name]; ok {
			specs[i].Retry = &p
		}
	}

	return specs, nil
}

func check(a Adapters, o Options) error {
	var errs []error
	if a.News == nil {
		errs = append(errs, errors.New("no news source"))
	}
	if a.Summarizer == nil {
		errs = append(errs, errors.New("no summarizer"))
	}
	if a.Messenger == nil {
		errs = append(errs, errors.New("no messenger"))
	}
	if len(o.Locales) > 0 && a.Translator == nil {
		errs = append(errs, errors.New("target locales set but no translator"))
	}
	for name := range o.StageRetries {
		if !knownStage(name, o.Locales) {
			errs = append(errs, fmt.Errorf("retry override for unknown stage %q", name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrInvalidDefinition, err)
	}
	return nil
}

func knownStage(name string, locales []string) bool {
	switch name {
	case StageFetch, StageSummarize, StageCharts, StageDeliver, StageArchive, StageMarkSeen:
		return true
	}
	loc, ok := strings.CutPrefix(name, "translate_")
	if !ok {
		return false
	}
	for _, l := range locales {
		if l == loc {
			return true
		}
	}
	return false
}
