package llm

import (
	"context"
	"fmt"
	"strings"
)

// NewClient creates a rate-limited LLM client based on the provided configuration.
func NewClient(cfg Config) (Client, error) {
	var (
		client Client
		err    error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		client, err = newOpenAIClient(cfg)
	case "anthropic":
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return &limitedClient{
		next:    client,
		limiter: newRateLimiter(cfg.RateLimit),
	}, nil
}

// limitedClient waits for a rate limiter token before each call.
type limitedClient struct {
	next    Client
	limiter *rateLimiter
}

func (c *limitedClient) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return "", err
	}
	return c.next.Complete(ctx, systemPrompt, userContent)
}

