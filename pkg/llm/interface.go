// Package llm abstracts the external language-model capability behind a tiny
// interface. The pipeline stays correct when no model is configured: the
// extractor falls back to rule-based parsing and the composer to templated
// explanations, so the model is only ever an assist.
package llm

import (
	"context"
	"time"

	"github.com/levenlabs/go-lflag"
)

// Client is the text-completion capability. Implementations must honor the
// context deadline; the pipeline never waits on a model beyond its timeout.
type Client interface {
	// Complete sends a bounded prompt and returns the model's text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds the settings shared by network-backed clients.
type Config struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// Configured registers the model flags and returns a Client once flags are
// parsed. The returned client is nil when no endpoint is configured, which
// callers treat as "capability unavailable".
func Configured() *Holder {
	h := &Holder{}

	endpoint := lflag.String("llm-endpoint", "", "Base URL of an OpenAI-compatible completion API (empty disables the model)")
	model := lflag.String("llm-model", "gpt-oss-20b", "Model name sent to the completion API")
	apiKey := lflag.String("llm-api-key", "", "Bearer token for the completion API")
	timeout := lflag.Duration("llm-timeout", 10*time.Second, "Timeout for a single model call")

	lflag.Do(func() {
		if *endpoint == "" {
			return
		}
		h.client = NewOpenAI(Config{
			Endpoint: *endpoint,
			Model:    *model,
			APIKey:   *apiKey,
			Timeout:  *timeout,
		})
	})

	return h
}

// Holder defers client construction until flags are parsed.
type Holder struct {
	client Client
}

// Client returns the configured client, or nil when the capability is
// disabled.
func (h *Holder) Client() Client {
	if h == nil {
		return nil
	}
	return h.client
}

// SetClient overrides the held client. Primarily for tests.
func (h *Holder) SetClient(c Client) {
	h.client = c
}
