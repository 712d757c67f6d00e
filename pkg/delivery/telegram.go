package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rah-ai/financial-daily-summary/pkg/fault"
)

const (
	telegramBaseURL = "https://api.telegram.org"
	maxPhotos       = 5
)

type Telegram struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

type TelegramOption func(*Telegram)

func WithBaseURL(u string) TelegramOption {
	return func(t *Telegram) { t.baseURL = u }
}

func WithHTTPClient(c *http.Client) TelegramOption {
	return func(t *Telegram) { t.httpClient = c }
}

func WithLogger(l *slog.Logger) TelegramOption {
	return func(t *Telegram) { t.logger = l }
}

func NewTelegram(token, chatID string, opts ...TelegramOption) *Telegram {
	t := &Telegram{
		token:      token,
		chatID:     chatID,
		baseURL:    telegramBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Deliver sends the formatted briefing, then up to five chart photos. Photo
// failures are logged and do not fail the delivery.
func (t *Telegram) Deliver(ctx context.Context, bundle Bundle) (*Receipt, error) {
	receipt := &Receipt{Channel: "telegram:" + t.chatID}

	for _, part := range Split(Format(bundle), maxMessageChars) {
		id, err := t.call(ctx, "sendMessage", sendMessageRequest{
			ChatID:                t.chatID,
			Text:                  part,
			ParseMode:             "Markdown",
			DisableWebPagePreview: true,
		})
		if err != nil {
			return nil, err
		}
		receipt.MessageIDs = append(receipt.MessageIDs, id)
	}

	for _, ref := range bundle.Charts {
		if receipt.ChartsSent == maxPhotos {
			break
		}
		if !validPhotoURL(ref.URL) {
			t.logger.Warn("skipping chart with invalid url", "title", ref.Title)
			continue
		}

		id, err := t.call(ctx, "sendPhoto", sendPhotoRequest{
			ChatID:  t.chatID,
			Photo:   ref.URL,
			Caption: ref.Title,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			t.logger.Warn("chart send failed", "title", ref.Title, "error", err)
			continue
		}
		receipt.MessageIDs = append(receipt.MessageIDs, id)
		receipt.ChartsSent++
	}

	receipt.DeliveredAt = t.now()
	return receipt, nil
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	_, err := t.call(ctx, "sendMessage", sendMessageRequest{
		ChatID: t.chatID,
		Text:   text,
	})
	return err
}

func (t *Telegram) call(ctx context.Context, method string, body any) (int64, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fault.Fatal(err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return 0, fault.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		// The token is part of the URL; keep it out of the error.
		return 0, fault.Transientf("telegram %s: request failed", method)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var parsed telegramResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !parsed.OK {
		desc := parsed.Description
		if desc == "" {
			desc = http.StatusText(resp.StatusCode)
		}
		return 0, fault.FromStatus(resp.StatusCode, fmt.Errorf("telegram %s: status %d: %s", method, resp.StatusCode, desc))
	}

	return parsed.Result.MessageID, nil
}

func validPhotoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

type sendPhotoRequest struct {
	ChatID  string `json:"chat_id"`
	Photo   string `json:"photo"`
	Caption string `json:"caption,omitempty"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}
