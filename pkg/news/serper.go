package news

import (
	"context"
	"net/http"
	"time"
)

const serperEndpoint = "https://google.serper.dev/search"

type SerperClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewSerperClient(apiKey string) *SerperClient {
	return &SerperClient{
		apiKey:     apiKey,
		endpoint:   serperEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *SerperClient) Name() string {
	return "Serper"
}

func (c *SerperClient) FetchLatest(ctx context.Context, topic string, limit int) ([]Item, error) {
	body := serperRequest{
		Q:   topic + " finance stock market",
		Num: limit,
	}

	req, err := newJSONRequest(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)

	var raw serperResponse
	if err := doJSON(c.httpClient, req, "serper", &raw); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(raw.Organic))
	for _, r := range raw.Organic {
		items = append(items, Item{
			ExternalID: generateExternalID(r.Link),
			Title:      r.Title,
			Snippet:    truncate(r.Snippet, maxSnippetChars),
			URL:        r.Link,
			Publisher:  hostOf(r.Link),
			Symbols:    []string{},
			Source:     c.Name(),
		})
	}

	return items, nil
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []serperResult `json:"organic"`
}

type serperResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}
