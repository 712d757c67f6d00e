package news

import (
	"context"
	"fmt"

	"github.com/rah-ai/financial-daily-summary/pkg/fault"
)

// SeenFilter reports which of keys have not been delivered before.
type SeenFilter interface {
	FilterUnseen(ctx context.Context, keys []string) ([]string, error)
}

// Dedupe drops items already delivered in an earlier run. A nil filter
// returns items unchanged.
func Dedupe(ctx context.Context, filter SeenFilter, items []Item) ([]Item, error) {
	if filter == nil || len(items) == 0 {
		return items, nil
	}

	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = item.Key()
	}

	unseen, err := filter.FilterUnseen(ctx, keys)
	if err != nil {
		return nil, fault.Transient(fmt.Errorf("seen filter: %w", err))
	}

	keep := make(map[string]bool, len(unseen))
	for _, k := range unseen {
		keep[k] = true
	}

	out := make([]Item, 0, len(unseen))
	for _, item := range items {
		if keep[item.Key()] {
			out = append(out, item)
		}
	}
	return out, nil
}
