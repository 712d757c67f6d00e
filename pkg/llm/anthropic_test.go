package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/go-playground/assert/v2"
	"github.com/rah-ai/financial-daily-summary/pkg/fault"
)

func anthropicServer(t *testing.T, status int, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-haiku-4-5",
			"stop_reason": "end_turn",
			"content":     []map[string]any{{"type": "text", "text": text}},
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnthropicSummarize(t *testing.T) {
	srv := anthropicServer(t, http.StatusOK, `Sure. {"paragraph":"Stocks edged higher.","bullets":["Nvidia up 3%"]}`)

	c := NewAnthropicClient("sk-ant", option.WithBaseURL(srv.URL))
	s, err := c.Summarize(context.Background(), []SummaryInput{{Title: "Nvidia rallies"}})

	assert.Equal(t, nil, err)
	assert.Equal(t, "Stocks edged higher.", s.Paragraph)
	assert.Equal(t, []string{"Nvidia up 3%"}, s.Bullets)
	assert.Equal(t, "claude-4.5-haiku", s.ModelUsed)
}

func TestAnthropicTranslate(t *testing.T) {
	srv := anthropicServer(t, http.StatusOK, `{"translation":"המניות עלו."}`)

	c := NewAnthropicClient("sk-ant", option.WithBaseURL(srv.URL))
	tr, err := c.Translate(context.Background(), "Stocks rose.", "he")

	assert.Equal(t, nil, err)
	assert.Equal(t, "Hebrew", tr.Language)
	assert.Equal(t, "המניות עלו.", tr.Text)
}

func TestAnthropicErrors(t *testing.T) {
	srv := anthropicServer(t, http.StatusServiceUnavailable, "")
	c := NewAnthropicClient("sk-ant", option.WithBaseURL(srv.URL))
	_, err := c.Translate(context.Background(), "Stocks rose.", "he")
	assert.Equal(t, true, fault.IsTransient(err))

	srv = anthropicServer(t, http.StatusForbidden, "")
	c = NewAnthropicClient("sk-ant", option.WithBaseURL(srv.URL))
	_, err = c.Translate(context.Background(), "Stocks rose.", "he")
	assert.Equal(t, true, fault.IsFatal(err))

	srv = anthropicServer(t, http.StatusOK, "no json here")
	c = NewAnthropicClient("sk-ant", option.WithBaseURL(srv.URL))
	_, err = c.Translate(context.Background(), "Stocks rose.", "he")
	assert.Equal(t, true, fault.IsTransient(err))
}
