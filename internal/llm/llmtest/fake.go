// Package llmtest provides a scripted Provider for service and handler tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/idem-lexis/lexis-api/internal/llm"
)

// Reply is one scripted provider answer.
type Reply struct {
	Text string
	Err  error
}

// Provider answers requests from a queue of replies, then repeats Fallback.
type Provider struct {
	mu       sync.Mutex
	replies  []Reply
	Fallback Reply
	// Respond, when set, answers every request instead of the queue.
	Respond  func(llm.Request) (string, error)
	Requests []llm.Request
}

// New returns a provider that answers with texts in order.
func New(texts ...string) *Provider {
	p := &Provider{}
	for _, t := range texts {
		p.replies = append(p.replies, Reply{Text: t})
	}
	return p
}

// Push appends a reply to the queue.
func (p *Provider) Push(r Reply) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies = append(p.replies, r)
	return p
}

func (p *Provider) Name() string { return "fake" }

func (p *Provider) Generate(_ context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Requests = append(p.Requests, req)
	if p.Respond != nil {
		return p.Respond(req)
	}
	if len(p.replies) == 0 {
		if p.Fallback.Text == "" && p.Fallback.Err == nil {
			return "", errors.New("llmtest: no scripted reply")
		}
		return p.Fallback.Text, p.Fallback.Err
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	return r.Text, r.Err
}

// Calls returns how many requests were received.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}

// Client wraps p in an llm.Client without retry delays.
func Client(p *Provider) *llm.Client {
	return llm.NewClient(p, llm.WithRetry(llm.RetryConfig{MaxAttempts: 2}))
}
