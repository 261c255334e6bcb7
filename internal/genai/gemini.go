package genai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// geminiGenerator calls one Gemini model.
type geminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

func newGeminiGenerator(ctx context.Context, apiKey, model string, temperature float64, maxTokens int) (*geminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &geminiGenerator{
		client:      client,
		model:       model,
		temperature: float32(temperature),
		maxTokens:   int32(maxTokens), //nolint:gosec // bounded by config validation
	}, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (Answer, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxTokens,
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return Answer{}, WrapError(err, ProviderGemini, g.model)
	}

	ans := Answer{Provider: ProviderGemini, Model: g.model, Duration: time.Since(start)}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ans, WrapError(ErrEmptyAnswer, ProviderGemini, g.model)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	ans.Text = strings.TrimSpace(text.String())
	if resp.UsageMetadata != nil {
		ans.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		ans.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	if ans.Text == "" {
		return ans, WrapError(ErrEmptyAnswer, ProviderGemini, g.model)
	}
	return ans, nil
}

func (g *geminiGenerator) Provider() Provider { return ProviderGemini }

func (g *geminiGenerator) Model() string { return g.model }
