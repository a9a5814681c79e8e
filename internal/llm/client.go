// Package llm talks to an OpenAI-compatible chat-completion endpoint and
// exposes the two narrow AI services the application needs: group label
// suggestion for reconciliation and structured query extraction.
package llm

import (
	"context"
	"time"
)

// Client defines the interface for chat-completion providers.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config holds configuration for the AI matcher.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// Configured reports whether the service has enough settings to make
// network calls. An unconfigured service is a valid state: dependent
// features degrade instead of failing.
func (c Config) Configured() bool {
	return c.APIKey != "" || c.BaseURL != ""
}
