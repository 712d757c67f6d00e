package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rah-ai/financial-daily-summary/pkg/fault"
)

type AlphaVantageClient struct {
	apiKey     string
	httpClient *http.Client
}

func NewAlphaVantageClient(apiKey string) *AlphaVantageClient {
	return &AlphaVantageClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *AlphaVantageClient) Name() string {
	return "AlphaVantage"
}

// FetchLatest uses the NEWS_SENTIMENT feed; topic is ignored because the
// endpoint only filters by fixed topic slugs and tickers.
func (c *AlphaVantageClient) FetchLatest(ctx context.Context, topic string, limit int) ([]Item, error) {
	endpoint := fmt.Sprintf(
		"https://www.alphavantage.co/query?function=NEWS_SENTIMENT&limit=%d&sort=LATEST&apikey=%s",
		limit, url.QueryEscape(c.apiKey),
	)

	req, err := newJSONRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var raw avResponse
	if err := doJSON(c.httpClient, req, "alphavantage", &raw); err != nil {
		return nil, err
	}

	// Rate limiting and bad keys come back as 200 with a message body.
	if raw.Information != "" {
		return nil, fault.Transientf("alphavantage fetch: %s", raw.Information)
	}
	if raw.ErrorMessage != "" {
		return nil, fault.Fatalf("alphavantage fetch: %s", raw.ErrorMessage)
	}

	items := make([]Item, 0, len(raw.Feed))
	for _, entry := range raw.Feed {
		publishedAt, err := time.Parse("20060102T150405", entry.TimePublished)
		if err != nil {
			publishedAt = time.Time{}
		}

		symbols := make([]string, 0, len(entry.TickerSentiment))
		for _, ts := range entry.TickerSentiment {
			if ts.Ticker != "" {
				symbols = append(symbols, ts.Ticker)
			}
		}

		items = append(items, Item{
			ExternalID:  generateExternalID(entry.URL),
			Title:       entry.Title,
			Snippet:     truncate(entry.Summary, maxSnippetChars),
			URL:         entry.URL,
			Publisher:   entry.Source,
			PublishedAt: publishedAt,
			Symbols:     symbols,
			Source:      c.Name(),
		})
	}

	return items, nil
}

type avResponse struct {
	Feed         []avFeedItem `json:"feed"`
	Information  string       `json:"Information"`
	ErrorMessage string       `json:"Error Message"`
}

type avFeedItem struct {
	Title           string              `json:"title"`
	Summary         string              `json:"summary"`
	URL             string              `json:"url"`
	Source          string              `json:"source"`
	TimePublished   string              `json:"time_published"`
	TickerSentiment []avTickerSentiment `json:"ticker_sentiment"`
}

type avTickerSentiment struct {
	Ticker string `json:"ticker"`
}
