package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rah-ai/financial-daily-summary/pkg/fault"
)

type OpenAIClient struct {
	client    *openai.Client
	model     openai.ChatModel
	modelName string
}

// NewOpenAIClient disables the SDK's own retries; the pipeline stage owns
// the retry budget.
func NewOpenAIClient(apiKey string, opts ...option.RequestOption) *OpenAIClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIClient{
		client:    &client,
		model:     openai.ChatModelGPT4oMini,
		modelName: "gpt-4o-mini",
	}
}

func (c *OpenAIClient) Summarize(ctx context.Context, items []SummaryInput) (*Summary, error) {
	if err := checkItems(items); err != nil {
		return nil, err
	}

	content, err := c.complete(ctx, summarySystemPrompt, formatSummaryPrompt(items))
	if err != nil {
		return nil, err
	}
	return parseSummary(content, c.modelName)
}

func (c *OpenAIClient) Translate(ctx context.Context, text, locale string) (*Translation, error) {
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

func (c *OpenAIClient) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", classifyOpenAI(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return "", fault.Transientf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAI(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fault.FromStatus(apiErr.StatusCode, fmt.Errorf("openai API error: %w", err))
	}
	return fault.Transient(fmt.Errorf("openai request: %w", err))
}
