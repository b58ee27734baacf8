// Package model contains domain models passed between layers.
package model

import "time"

// Object is an audio file held by the storage layer.
type Object struct {
	ID          string    // file name; also the public retrieval identifier
	Path        string    // absolute path on disk
	Size        int64     // bytes
	ContentType string    // e.g. "audio/wav"
	CreatedAt   time.Time // modification time on disk
}

// Expired reports whether the object is older than retention at now.
func (o Object) Expired(now time.Time, retention time.Duration) bool {
	return now.Sub(o.CreatedAt) > retention
}

// TranscriptionResult is what a worker sends back for a job.
type TranscriptionResult struct {
	Text     string
	Err      error
	Duration time.Duration
}

// TranscriptionJob is one speech-to-text request waiting in the queue.
type TranscriptionJob struct {
	ID          string
	Language    string
	Hint        string  // target text, used as a decoding prompt
	Temperature float64 // decoding temperature
	Audio       []byte  // 16 kHz mono 16-bit WAV
	EnqueuedAt  time.Time

	// Done, when set, is closed once the requester stops waiting; workers
	// skip or abort the job. Typically the request context's Done channel.
	Done <-chan struct{}

	// Reply must be buffered (capacity >= 1) so a worker never blocks on a
	// caller that has already given up.
	Reply chan TranscriptionResult
}

// NewTranscriptionJob builds a job with a buffered reply channel.
func NewTranscriptionJob(id, language, hint string, temperature float64, audio []byte) TranscriptionJob {
	return TranscriptionJob{
		ID:          id,
		Language:    language,
		Hint:        hint,
		Temperature: temperature,
		Audio:       audio,
		EnqueuedAt:  time.Now(),
		Reply:       make(chan TranscriptionResult, 1),
	}
}

// Abandoned reports whether the requester has stopped waiting.
func (j TranscriptionJob) Abandoned() bool {
	if j.Done == nil {
		return false
	}
	select {
	case <-j.Done:
		return true
	default:
		return false
	}
}

// Respond delivers res without blocking. It returns false if a result was
// already delivered.
func (j TranscriptionJob) Respond(res TranscriptionResult) bool {
	select {
	case j.Reply <- res:
		return true
	default:
		return false
	}
}
