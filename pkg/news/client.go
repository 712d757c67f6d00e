package news

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rah-ai/financial-daily-summary/pkg/fault"
)

type Item struct {
	ExternalID  string    `json:"external_id"`
	Title       string    `json:"title"`
	Snippet     string    `json:"snippet"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Publisher   string    `json:"publisher"`
	PublishedAt time.Time `json:"published_at"`
	Symbols     []string  `json:"symbols"`
}

// Key identifies an item across sources by its URL.
func (i Item) Key() string {
	return generateExternalID(i.URL)
}

type Source interface {
	FetchLatest(ctx context.Context, topic string, limit int) ([]Item, error)
	Name() string
}

const maxSnippetChars = 150

func generateExternalID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x", sum)[:16]
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// doJSON sends req and decodes a JSON body into out. Transport errors and
// retryable statuses come back transient; other bad statuses are fatal.
func doJSON(httpClient *http.Client, req *http.Request, source string, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return fault.Transient(fmt.Errorf("%s fetch: %w", source, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fault.FromStatus(resp.StatusCode, fmt.Errorf("%s fetch: status %d: %s", source, resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fault.Transient(fmt.Errorf("%s decode: %w", source, err))
	}
	return nil
}

func newJSONRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fault.Fatal(err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, fault.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
