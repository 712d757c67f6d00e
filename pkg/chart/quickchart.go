package chart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/rah-ai/financial-daily-summary/pkg/fault"
)

const quickChartBase = "https://quickchart.io/chart"

// QuickChart renders by encoding a Chart.js config into a quickchart.io
// URL. No request is made; the messenger fetches the image.
type QuickChart struct {
	BaseURL string
	Width   int
	Height  int
}

func NewQuickChart() *QuickChart {
	return &QuickChart{BaseURL: quickChartBase, Width: 600, Height: 400}
}

func (q *QuickChart) Render(ctx context.Context, data Data) (ImageRef, error) {
	if err := ctx.Err(); err != nil {
		return ImageRef{}, err
	}
	if data.Empty() {
		return ImageRef{}, fault.Fatalf("chart %q has no data", data.Title)
	}
	if len(data.Labels) != len(data.Values) {
		return ImageRef{}, fault.Fatalf("chart %q has %d labels but %d values", data.Title, len(data.Labels), len(data.Values))
	}

	kind := data.Kind
	if kind == "" {
		kind = KindBar
	}

	cfg := chartConfig{
		Type: kind,
		Data: chartData{
			Labels:   data.Labels,
			Datasets: []chartDataset{{Label: data.Title, Data: data.Values}},
		},
		Options: chartOptions{
			Plugins: chartPlugins{
				Title:  chartTitle{Display: true, Text: data.Title},
				Legend: chartLegend{Display: kind == KindPie},
			},
		},
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return ImageRef{}, fault.Fatal(fmt.Errorf("encode chart %q: %w", data.Title, err))
	}

	v := url.Values{}
	v.Set("c", string(raw))
	v.Set("w", fmt.Sprint(q.Width))
	v.Set("h", fmt.Sprint(q.Height))
	v.Set("bkg", "white")

	return ImageRef{Title: data.Title, URL: q.BaseURL + "?" + v.Encode()}, nil
}

type chartConfig struct {
	Type    string       `json:"type"`
	Data    chartData    `json:"data"`
	Options chartOptions `json:"options"`
}

type chartData struct {
	Labels   []string       `json:"labels"`
	Datasets []chartDataset `json:"datasets"`
}

type chartDataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

type chartOptions struct {
	Plugins chartPlugins `json:"plugins"`
}

type chartPlugins struct {
	Title  chartTitle  `json:"title"`
	Legend chartLegend `json:"legend"`
}

type chartTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

type chartLegend struct {
	Display bool `json:"display"`
}
