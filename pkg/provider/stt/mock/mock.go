// Package mock provides a test double for stt.Transcriber.
package mock

import (
	"context"
	"sync"

	"github.com/okian/parrot/pkg/provider/stt"
)

// Transcriber records every request and answers with Text and Err. When
// TextFunc is set it takes precedence over Text.
type Transcriber struct {
	mu sync.Mutex

	Text     string
	TextFunc func(req stt.Request) string
	Err      error

	// Block, when non-nil, is received from before answering, so tests can
	// hold a call in flight. Context cancellation releases it.
	Block chan struct{}

	Calls []stt.Request
}

var _ stt.Transcriber = (*Transcriber)(nil)

// Transcribe records req and returns the scripted result.
func (m *Transcriber) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if m.TextFunc != nil {
		return m.TextFunc(req), nil
	}
	return m.Text, nil
}

// CallCount returns the number of recorded calls.
func (m *Transcriber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or the zero Request.
func (m *Transcriber) LastCall() stt.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return stt.Request{}
	}
	return m.Calls[len(m.Calls)-1]
}
