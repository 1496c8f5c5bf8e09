// AngelaMos | 2026
// openai.go

package transform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/carterperez-dev/promptcraft/internal/config"
	"github.com/carterperez-dev/promptcraft/internal/core"
	"github.com/carterperez-dev/promptcraft/internal/usage"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
	defaultTimeout     = 60 * time.Second
)

var (
	ErrNotConfigured   = errors.New("text completion provider not configured")
	ErrEmptyCompletion = errors.New("text completion returned no choices")
)

// Per-token prices in USD. Models missing here are recorded with zero cost.
var tokenPrices = map[string]struct{ input, output float64 }{
	openai.GPT4oMini: {input: 0.15 / 1e6, output: 0.60 / 1e6},
	openai.GPT4o:     {input: 2.50 / 1e6, output: 10.00 / 1e6},
}

type Completion struct {
	System string
	Input  string
}

type CompletionResult struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Cost estimates the USD cost of the completion from its token usage.
func (r CompletionResult) Cost() float64 {
	price, ok := tokenPrices[r.Model]
	if !ok {
		return 0
	}
	return float64(r.InputTokens)*price.input + float64(r.OutputTokens)*price.output
}

type Completer interface {
	Complete(ctx context.Context, c Completion) (*CompletionResult, error)
	Model() string
}

type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	configured  bool
}

func NewOpenAIClient(cfg config.OpenAIConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = usage.DefaultModel
	}

	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		configured:  cfg.APIKey != "",
	}
}

func (c *OpenAIClient) Model() string {
	return c.model
}

func (c *OpenAIClient) Complete(
	ctx context.Context,
	in Completion,
) (*CompletionResult, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: in.System},
			{Role: openai.ChatMessageRoleUser, Content: in.Input},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", classify(err))
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf(
			"chat completion: %w: %w",
			core.ErrProviderUnavailable,
			ErrEmptyCompletion,
		)
	}

	return &CompletionResult{
		Text:         resp.Choices[0].Message.Content,
		Model:        c.model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// classify keeps the provider error in the chain and marks it as an
// upstream failure. Cancellation is passed through untouched.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %w", core.ErrProviderUnavailable, apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: status %d: %w", core.ErrProviderUnavailable, reqErr.HTTPStatusCode, err)
	}

	return fmt.Errorf("%w: %w", core.ErrProviderUnavailable, err)
}

var _ Completer = (*OpenAIClient)(nil)
