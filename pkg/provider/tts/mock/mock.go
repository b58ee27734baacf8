// Package mock provides a test double for tts.Synthesizer.
package mock

import (
	"context"
	"sync"

	"github.com/okian/parrot/pkg/provider/tts"
)

// SynthesizeCall records one Synthesize invocation.
type SynthesizeCall struct {
	Text string
	Lang string
}

// Synthesizer answers every call with Audio and Err.
type Synthesizer struct {
	mu sync.Mutex

	Audio tts.Audio
	Err   error

	Calls []SynthesizeCall
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// Synthesize records the call and returns the scripted result. A zero Audio
// becomes a tiny WAV-typed payload so callers always have bytes to store.
func (m *Synthesizer) Synthesize(_ context.Context, text, lang string) (tts.Audio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, SynthesizeCall{Text: text, Lang: lang})
	if m.Err != nil {
		return tts.Audio{}, m.Err
	}
	if m.Audio.Data == nil {
		return tts.Audio{Data: []byte("RIFF"), ContentType: "audio/wav"}, nil
	}
	return m.Audio, nil
}

// CallCount returns the number of recorded calls.
func (m *Synthesizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
