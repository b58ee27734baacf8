// Package tts defines the Synthesizer interface for text-to-speech backends.
package tts

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when there is nothing to speak.
var ErrEmptyText = errors.New("tts: empty text")

// Audio is a synthesized utterance, a complete encoded file.
type Audio struct {
	Data        []byte
	ContentType string
}

// Extension returns a file extension matching ContentType, with the dot.
func (a Audio) Extension() string {
	switch a.ContentType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".wav"
	}
}

// Synthesizer renders text as speech in a language. Implementations must be
// safe for concurrent use.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) (Audio, error)
}
