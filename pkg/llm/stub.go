package llm

import (
	"context"
	"sync"
)

// Stub is a deterministic in-memory Client for tests. Responses are returned
// in order; the last one repeats once the queue is exhausted.
type Stub struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	// Prompts records every prompt received, for assertions.
	Prompts []string

	next int
}

// Complete implements Client.
func (s *Stub) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.Prompts = append(s.Prompts, prompt)
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Responses) == 0 {
		return "", nil
	}
	i := s.next
	if i >= len(s.Responses) {
		i = len(s.Responses) - 1
	}
	s.next++
	return s.Responses[i], nil
}

// LastPrompt returns the most recent prompt, or "" when none was sent.
func (s *Stub) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Prompts) == 0 {
		return ""
	}
	return s.Prompts[len(s.Prompts)-1]
}
