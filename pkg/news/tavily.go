package news

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const tavilyEndpoint = "https://api.tavily.com/search"

var tavilyDomains = []string{"finance.yahoo.com", "marketwatch.com", "cnbc.com"}

type TavilyClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewTavilyClient(apiKey string) *TavilyClient {
	return &TavilyClient{
		apiKey:     apiKey,
		endpoint:   tavilyEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *TavilyClient) Name() string {
	return "Tavily"
}

func (c *TavilyClient) FetchLatest(ctx context.Context, topic string, limit int) ([]Item, error) {
	body := tavilyRequest{
		APIKey:         c.apiKey,
		Query:          topic,
		SearchDepth:    "basic",
		MaxResults:     limit,
		IncludeDomains: tavilyDomains,
	}

	req, err := newJSONRequest(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, err
	}

	var raw tavilyResponse
	if err := doJSON(c.httpClient, req, "tavily", &raw); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(raw.Results))
	for _, r := range raw.Results {
		publishedAt, err := time.Parse(time.RFC3339, r.PublishedDate)
		if err != nil {
			publishedAt = time.Time{}
		}

		items = append(items, Item{
			ExternalID:  generateExternalID(r.URL),
			Title:       r.Title,
			Snippet:     truncate(r.Content, maxSnippetChars),
			URL:         r.URL,
			Publisher:   hostOf(r.URL),
			PublishedAt: publishedAt,
			Symbols:     []string{},
			Source:      c.Name(),
		})
	}

	return items, nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	PublishedDate string `json:"published_date"`
}
