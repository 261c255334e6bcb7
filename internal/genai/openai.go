package genai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiGenerator calls one model on an OpenAI-compatible provider
// (Groq, Cerebras) through its base URL.
type openaiGenerator struct {
	client      openai.Client
	provider    Provider
	model       string
	temperature float64
	maxTokens   int64
}

func newOpenAIGenerator(provider Provider, apiKey, model string, temperature float64, maxTokens int, opts ...option.RequestOption) (*openaiGenerator, error) {
	baseURL, ok := ProviderEndpoint[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
	}

	// Retries are handled by the assistant.
	reqOpts := append([]option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &openaiGenerator{
		client:      openai.NewClient(reqOpts...),
		provider:    provider,
		model:       model,
		temperature: temperature,
		maxTokens:   int64(maxTokens),
	}, nil
}

func (g *openaiGenerator) Generate(ctx context.Context, prompt string) (Answer, error) {
	params := openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(g.temperature),
		MaxTokens:   openai.Int(g.maxTokens),
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Answer{}, WrapError(err, g.provider, g.model)
	}

	ans := Answer{
		Provider:     g.provider,
		Model:        g.model,
		Duration:     time.Since(start),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) > 0 {
		ans.Text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if ans.Text == "" {
		return ans, WrapError(ErrEmptyAnswer, g.provider, g.model)
	}
	return ans, nil
}

func (g *openaiGenerator) Provider() Provider { return g.provider }

func (g *openaiGenerator) Model() string { return g.model }
