package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull   = errors.New("transcription queue is full")
	ErrClosed = errors.New("transcription queue is closed")
)
