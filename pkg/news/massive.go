package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type MassiveClient struct {
	apiKey     string
	httpClient *http.Client
}

func NewMassiveClient(apiKey string) *MassiveClient {
	return &MassiveClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *MassiveClient) Name() string {
	return "Massive"
}

func (c *MassiveClient) FetchLatest(ctx context.Context, topic string, limit int) ([]Item, error) {
	endpoint := fmt.Sprintf(
		"https://api.massive.com/v2/reference/news?limit=%d&order=desc&sort=published_utc&apiKey=%s",
		limit, url.QueryEscape(c.apiKey),
	)

	req, err := newJSONRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var raw massiveResponse
	if err := doJSON(c.httpClient, req, "massive", &raw); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(raw.Results))
	for _, result := range raw.Results {
		publishedAt, err := time.Parse(time.RFC3339, result.PublishedUTC)
		if err != nil {
			publishedAt = time.Time{}
		}

		items = append(items, Item{
			ExternalID:  result.ID,
			Title:       result.Title,
			Snippet:     truncate(result.Description, maxSnippetChars),
			URL:         result.ArticleURL,
			Publisher:   result.Publisher.Name,
			PublishedAt: publishedAt,
			Symbols:     result.Tickers,
			Source:      c.Name(),
		})
	}

	return items, nil
}

type massiveResponse struct {
	Results []massiveResult `json:"results"`
}

type massiveResult struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	ArticleURL   string           `json:"article_url"`
	PublishedUTC string           `json:"published_utc"`
	Tickers      []string         `json:"tickers"`
	Publisher    massivePublisher `json:"publisher"`
}

type massivePublisher struct {
	Name string `json:"name"`
}
