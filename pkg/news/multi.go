package news

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rah-ai/financial-daily-summary/pkg/fault"
	"golang.org/x/sync/errgroup"
)

// Multi queries every source concurrently and merges the results.
type Multi struct {
	sources []Source
}

func NewMulti(sources ...Source) *Multi {
	return &Multi{sources: sources}
}

func (m *Multi) Name() string {
	names := make([]string, len(m.sources))
	for i, s := range m.sources {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

// FetchLatest returns the newest limit items across all sources, one per
// URL. It fails only when every source fails; the error is transient if
// any of the source errors was.
func (m *Multi) FetchLatest(ctx context.Context, topic string, limit int) ([]Item, error) {
	if len(m.sources) == 0 {
		return nil, fault.Fatalf("no news sources configured")
	}

	results := make([][]Item, len(m.sources))
	errs := make([]error, len(m.sources))

	var g errgroup.Group
	for i, src := range m.sources {
		i, src := i, src
		g.Go(func() error {
			items, err := src.FetchLatest(ctx, topic, limit)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", src.Name(), err)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	g.Wait()

	failed := 0
	transient := false
	for _, err := range errs {
		if err != nil {
			failed++
			transient = transient || fault.IsTransient(err)
		}
	}

	if failed == len(m.sources) {
		err := fmt.Errorf("all news sources failed: %w", errors.Join(errs...))
		if transient {
			return nil, fault.Transient(err)
		}
		return nil, fault.Fatal(err)
	}

	return merge(results, limit), nil
}

func merge(results [][]Item, limit int) []Item {
	seen := make(map[string]bool)
	var merged []Item

	for _, items := range results {
		for _, item := range items {
			key := item.Key()
			if item.URL == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, item)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
