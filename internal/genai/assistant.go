package genai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// MinAttemptBudget is the least time left on the request context for the
// assistant to start another model.
const MinAttemptBudget = 2 * time.Second

// MetricsRecorder receives assistant outcomes. *metrics.Metrics satisfies it.
type MetricsRecorder interface {
	RecordAssistant(provider, status string, d time.Duration)
	RecordAssistantFallback(from, to string)
	RecordAssistantTokens(provider string, in, out int64)
}

// Assistant answers free-text campus questions using a chain of models.
type Assistant struct {
	chain   []Generator
	retry   RetryConfig
	metrics MetricsRecorder
}

// NewAssistantWithGenerators builds an assistant over an explicit chain.
// metrics may be nil.
func NewAssistantWithGenerators(chain []Generator, retry RetryConfig, metrics MetricsRecorder) *Assistant {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	return &Assistant{chain: chain, retry: retry, metrics: metrics}
}

// NewAssistant creates one generator per configured (provider, model)
// pair. It returns ErrNoProviders when no API key is set.
func NewAssistant(ctx context.Context, cfg Config, metrics MetricsRecorder) (*Assistant, error) {
	providers := cfg.ConfiguredProviders()
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}

	var chain []Generator
	for _, p := range providers {
		pc := cfg.ProviderConfig(p)
		models := pc.Models
		if len(models) == 0 {
			models = defaultModels(p)
		}
		for _, model := range models {
			model = strings.TrimSpace(model)
			if model == "" {
				continue
			}
			var (
				g   Generator
				err error
			)
			if p.IsOpenAICompatible() {
				g, err = newOpenAIGenerator(p, pc.APIKey, model, temperature, maxTokens)
			} else {
				g, err = newGeminiGenerator(ctx, pc.APIKey, model, temperature, maxTokens)
			}
			if err != nil {
				return nil, fmt.Errorf("genai: %s/%s: %w", p, model, err)
			}
			chain = append(chain, g)
		}
	}

	slog.InfoContext(ctx, "Assistant initialized",
		"providers", providers,
		"models", len(chain))
	return NewAssistantWithGenerators(chain, cfg.Retry, metrics), nil
}

// Chain returns "provider/model" for each generator, in call order.
func (a *Assistant) Chain() []string {
	out := make([]string, len(a.chain))
	for i, g := range a.chain {
		out[i] = string(g.Provider()) + "/" + g.Model()
	}
	return out
}

// Ask answers question. Transient failures are retried on the same
// model; quota errors and exhausted retries move to the next model; a
// permanent error or a cancelled context ends the chain.
func (a *Assistant) Ask(ctx context.Context, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, ErrEmptyQuestion
	}
	if len(a.chain) == 0 {
		return Answer{}, ErrNoProviders
	}

	prompt := BuildPrompt(question)
	start := time.Now()

	var lastErr error
	for i, g := range a.chain {
		if i > 0 {
			if !HasSufficientBudget(ctx, MinAttemptBudget) {
				slog.WarnContext(ctx, "Assistant out of time budget",
					"remaining", RemainingBudget(ctx),
					"next", g.Model())
				break
			}
			prev := a.chain[i-1]
			a.recordFallback(prev.Provider(), g.Provider())
			slog.InfoContext(ctx, "Assistant falling back",
				"from", string(prev.Provider())+"/"+prev.Model(),
				"to", string(g.Provider())+"/"+g.Model(),
				"error", lastErr)
		}

		var ans Answer
		attemptStart := time.Now()
		err := WithRetry(ctx, a.retry,
			func(attempt int, err error) {
				slog.DebugContext(ctx, "Retrying model",
					"provider", g.Provider(),
					"model", g.Model(),
					"attempt", attempt,
					"error", err)
			},
			func(ctx context.Context) error {
				var genErr error
				ans, genErr = g.Generate(ctx, prompt)
				return genErr
			})

		if err == nil {
			a.record(g.Provider(), "success", time.Since(attemptStart))
			a.recordTokens(g.Provider(), ans.InputTokens, ans.OutputTokens)
			ans.Duration = time.Since(start)
			slog.InfoContext(ctx, "Assistant answered",
				"provider", ans.Provider,
				"model", ans.Model,
				"input_tokens", ans.InputTokens,
				"output_tokens", ans.OutputTokens,
				"duration_ms", ans.Duration.Milliseconds())
			return ans, nil
		}

		lastErr = err
		action := ClassifyError(err)
		a.record(g.Provider(), action.String(), time.Since(attemptStart))
		if action == ActionFail || ctx.Err() != nil {
			break
		}
	}

	slog.WarnContext(ctx, "Assistant failed",
		"duration_ms", time.Since(start).Milliseconds(),
		"error", lastErr)
	return Answer{}, fmt.Errorf("genai: ask: %w", lastErr)
}

func (a *Assistant) record(p Provider, status string, d time.Duration) {
	if a.metrics != nil {
		a.metrics.RecordAssistant(string(p), status, d)
	}
}

func (a *Assistant) recordFallback(from, to Provider) {
	if a.metrics != nil {
		a.metrics.RecordAssistantFallback(string(from), string(to))
	}
}

func (a *Assistant) recordTokens(p Provider, in, out int64) {
	if a.metrics != nil && (in > 0 || out > 0) {
		a.metrics.RecordAssistantTokens(string(p), in, out)
	}
}
