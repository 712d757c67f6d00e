package news

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
	"github.com/rah-ai/financial-daily-summary/pkg/fault"
)

type FinnHubClient struct {
	client *finnhub.DefaultApiService
}

func NewFinnHubClient(apiKey string) *FinnHubClient {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	client := finnhub.NewAPIClient(cfg).DefaultApi
	return &FinnHubClient{client: client}
}

// FetchLatest returns general market news. Finnhub has no free-text search,
// so topic is ignored.
func (c *FinnHubClient) FetchLatest(ctx context.Context, topic string, limit int) ([]Item, error) {
	res, httpResp, err := c.client.MarketNews(ctx).Category("general").Execute()
	if err != nil {
		err = fmt.Errorf("finnhub fetch: %w", err)
		if httpResp != nil {
			return nil, fault.FromStatus(httpResp.StatusCode, err)
		}
		return nil, fault.Transient(err)
	}

	items := c.convert(res)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (c *FinnHubClient) convert(res []finnhub.MarketNews) []Item {
	items := make([]Item, 0, len(res))

	for _, news := range res {
		item := Item{
			Source: c.Name(),
		}

		if news.Id != nil {
			item.ExternalID = strconv.FormatInt(*news.Id, 10)
		}

		if news.Headline != nil {
			item.Title = *news.Headline
		}

		if news.Summary != nil {
			item.Snippet = truncate(*news.Summary, maxSnippetChars)
		}

		if news.Url != nil {
			item.URL = *news.Url
		}

		if news.Datetime != nil {
			item.PublishedAt = time.Unix(*news.Datetime, 0).UTC()
		}

		if news.Source != nil {
			item.Publisher = *news.Source
		}

		if news.Related != nil && *news.Related != "" {
			item.Symbols = strings.Split(*news.Related, ",")
		} else {
			item.Symbols = []string{}
		}

		items = append(items, item)
	}

	return items
}

func (c *FinnHubClient) Name() string {
	return "FinnHub"
}
