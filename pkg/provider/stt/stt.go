// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A Transcriber takes one complete recording and returns its transcript. The
// recording is always a mono 16-bit WAV; callers convert uploads with
// pkg/audio before handing them over.
package stt

import (
	"context"
	"errors"
)

// ErrEmptyAudio is returned when a Request carries no audio.
var ErrEmptyAudio = errors.New("stt: empty audio")

// Request is a single transcription request.
type Request struct {
	// Audio is a WAV file.
	Audio []byte
	// Language is the ISO 639-1 code the speaker is expected to use.
	Language string
	// Hint is text the speaker was asked to say. Backends that support an
	// initial prompt use it to bias decoding.
	Hint string
	// Temperature is the sampling temperature. Zero means backend default.
	Temperature float64
}

// Transcriber converts speech into text. Implementations must be safe for
// concurrent use.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (string, error)
}
