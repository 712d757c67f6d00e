package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rah-ai/financial-daily-summary/pkg/fault"
)

type AnthropicClient struct {
	client    *anthropic.Client
	model     anthropic.Model
	modelName string
}

func NewAnthropicClient(apiKey string, opts ...option.RequestOption) *AnthropicClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{
		client:    &client,
		model:     anthropic.Model("claude-haiku-4-5"),
		modelName: "claude-4.5-haiku",
	}
}

func (c *AnthropicClient) Summarize(ctx context.Context, items []SummaryInput) (*Summary, error) {
	if err := checkItems(items); err != nil {
		return nil, err
	}

	content, err := c.complete(ctx, summarySystemPrompt, formatSummaryPrompt(items))
	if err != nil {
		return nil, err
	}
	return parseSummary(content, c.modelName)
}

func (c *AnthropicClient) Translate(ctx context.Context, text, locale string) (*Translation, error) {
	language, err := resolveLocale(text, locale)
	if err != nil {
		return nil, err
	}

	content, err := c.complete(ctx, translateSystemPrompt(language), text)
	if err != nil {
		return nil, err
	}
	return parseTranslation(content, locale, language, c.modelName)
}

func (c *AnthropicClient) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", classifyAnthropic(ctx, err)
	}

	if len(resp.Content) == 0 {
		return "", fault.Transientf("no response from anthropic")
	}
	return resp.Content[0].Text, nil
}

func classifyAnthropic(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return fault.FromStatus(apiErr.StatusCode, fmt.Errorf("anthropic API error: %w", err))
	}
	return fault.Transient(fmt.Errorf("anthropic request: %w", err))
}
