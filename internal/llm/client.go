package llm

import (
	"context"
	"time"
)

// Client generates a reply for a system prompt and a user message.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userContent string) (string, error)
}

// Config configures an LLM client.
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	RateLimit   int
	// Temperature is a pointer so that an explicit 0 is kept; nil means
	// DefaultTemperature.
	Temperature *float64
	MaxTokens   int
}

// Float returns a pointer to v, for Config.Temperature.
func Float(v float64) *float64 { return &v }

func (c Config) temperature() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// Defaults applied when a Config field is unset.
const (
	DefaultOpenAIBaseURL  = "https://openrouter.ai/api/v1"
	DefaultOpenAIModel    = "openai/gpt-3.5-turbo"
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 500
	DefaultTimeout        = 30 * time.Second
)
