// Package chart turns small label/value series into hosted chart images.
package chart

import (
	"context"
	"sort"
	"strings"
)

const (
	KindBar = "bar"
	KindPie = "pie"
)

type ImageRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Data struct {
	Title  string    `json:"title"`
	Kind   string    `json:"kind"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type Renderer interface {
	Render(ctx context.Context, data Data) (ImageRef, error)
}

// TopCounts counts occurrences of each non-empty key and keeps the top n,
// highest count first and ties broken alphabetically.
func TopCounts(title, kind string, keys []string, n int) Data {
	counts := make(map[string]int)
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			counts[k]++
		}
	}

	labels := make([]string, 0, len(counts))
	for k := range counts {
		labels = append(labels, k)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})
	if n > 0 && len(labels) > n {
		labels = labels[:n]
	}

	values := make([]float64, len(labels))
	for i, l := range labels {
		values[i] = float64(counts[l])
	}

	return Data{Title: title, Kind: kind, Labels: labels, Values: values}
}

func (d Data) Empty() bool {
	return len(d.Labels) == 0
}
