// Package genai answers campus questions with hosted LLMs.
//
// Gemini is called through google.golang.org/genai; Groq and Cerebras
// through their OpenAI-compatible endpoints with openai-go. The Assistant
// tries each configured (provider, model) pair in order:
//
//  1. transient errors are retried on the same model with full-jitter backoff
//  2. quota and exhausted retries fall back to the next model or provider
//  3. permanent errors (bad key, bad request) stop immediately
package genai

import (
	"context"
	"time"
)

// Provider names an LLM vendor.
type Provider string

const (
	ProviderGemini   Provider = "gemini"
	ProviderGroq     Provider = "groq"
	ProviderCerebras Provider = "cerebras"
)

// ProviderEndpoint is the base URL of each OpenAI-compatible provider.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq:     "https://api.groq.com/openai/v1/",
	ProviderCerebras: "https://api.cerebras.ai/v1/",
}

// IsOpenAICompatible reports whether p is served through openai-go.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok
}

func (p Provider) String() string {
	return string(p)
}

// ParseProvider converts a config value into a Provider.
func ParseProvider(s string) (Provider, bool) {
	switch p := Provider(s); p {
	case ProviderGemini, ProviderGroq, ProviderCerebras:
		return p, true
	default:
		return "", false
	}
}

// Answer is one assistant reply.
type Answer struct {
	Text         string
	Provider     Provider
	Model        string
	InputTokens  int64
	OutputTokens int64
	Duration     time.Duration
}

// Generator produces a completion for a single prompt on one model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Answer, error)
	Provider() Provider
	Model() string
}

// RetryConfig controls per-model retries.
type RetryConfig struct {
	MaxAttempts  int // including the first; 1 disables retries
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// ProviderConfig holds one provider's key and model chain.
type ProviderConfig struct {
	APIKey string
	Models []string // first is primary, the rest are fallbacks
}

// Config selects and orders providers.
type Config struct {
	Providers       []Provider
	Gemini          ProviderConfig
	Groq            ProviderConfig
	Cerebras        ProviderConfig
	Retry           RetryConfig
	MaxOutputTokens int
	Temperature     float64
}

// Defaults.
var (
	DefaultGeminiModels   = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}
	DefaultGroqModels     = []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"}
	DefaultCerebrasModels = []string{"llama-3.3-70b", "llama-3.1-8b"}
	DefaultProviders      = []Provider{ProviderGemini, ProviderGroq, ProviderCerebras}
)

const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second
	DefaultMaxOutputTokens   = 512
	DefaultTemperature       = 0.4
)

// DefaultRetryConfig returns the default retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}

// ProviderConfig returns the settings of p, or nil for an unknown provider.
func (c *Config) ProviderConfig(p Provider) *ProviderConfig {
	switch p {
	case ProviderGemini:
		return &c.Gemini
	case ProviderGroq:
		return &c.Groq
	case ProviderCerebras:
		return &c.Cerebras
	default:
		return nil
	}
}

// HasProvider reports whether p has an API key.
func (c *Config) HasProvider(p Provider) bool {
	pc := c.ProviderConfig(p)
	return pc != nil && pc.APIKey != ""
}

// HasAnyProvider reports whether any provider has an API key.
func (c *Config) HasAnyProvider() bool {
	return c.Gemini.APIKey != "" || c.Groq.APIKey != "" || c.Cerebras.APIKey != ""
}

// ConfiguredProviders returns the providers with keys, in c.Providers
// order (DefaultProviders when unset).
func (c *Config) ConfiguredProviders() []Provider {
	order := c.Providers
	if len(order) == 0 {
		order = DefaultProviders
	}
	out := make([]Provider, 0, len(order))
	for _, p := range order {
		if c.HasProvider(p) {
			out = append(out, p)
		}
	}
	return out
}

func defaultModels(p Provider) []string {
	switch p {
	case ProviderGemini:
		return DefaultGeminiModels
	case ProviderGroq:
		return DefaultGroqModels
	case ProviderCerebras:
		return DefaultCerebrasModels
	default:
		return nil
	}
}
