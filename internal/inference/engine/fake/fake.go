// Package fake provides a scripted Engine for tests.
package fake

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yungbote/xai-decision-backend/internal/inference/engine"
)

// Reply is one scripted answer. Err wins over Text.
type Reply struct {
	Text string
	Err  error
}

// Engine returns scripted replies in order, repeating the last one once the
// script is exhausted.
type Engine struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string
	PingErr error
	// Delay holds each call open to expose concurrency.
	Delay time.Duration

	calls    atomic.Int64
	inFlight atomic.Int64
	maxSeen  atomic.Int64
}

func New(replies ...Reply) *Engine {
	return &Engine{replies: replies}
}

// Text is shorthand for an engine that always answers text.
func Text(text string) *Engine { return New(Reply{Text: text}) }

// Down is an engine that always fails as unavailable.
func Down() *Engine {
	return New(Reply{Err: engine.Unavailable("fake", context.DeadlineExceeded)})
}

func (e *Engine) Name() string  { return "fake" }
func (e *Engine) Model() string { return "fake-model" }

func (e *Engine) Complete(ctx context.Context, prompt string) (string, error) {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		seen := e.maxSeen.Load()
		if n <= seen || e.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	idx := int(e.calls.Add(1)) - 1

	e.mu.Lock()
	e.prompts = append(e.prompts, prompt)
	var r Reply
	if len(e.replies) > 0 {
		if idx >= len(e.replies) {
			idx = len(e.replies) - 1
		}
		r = e.replies[idx]
	}
	e.mu.Unlock()

	if e.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", engine.Unavailable("fake", ctx.Err())
		case <-time.After(e.Delay):
		}
	}
	if r.Err != nil {
		return "", r.Err
	}
	return r.Text, nil
}

func (e *Engine) Ping(context.Context) error { return e.PingErr }

func (e *Engine) Calls() int { return int(e.calls.Load()) }

// MaxInFlight is the highest number of concurrent Complete calls observed.
func (e *Engine) MaxInFlight() int { return int(e.maxSeen.Load()) }

func (e *Engine) Prompts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.prompts...)
}
