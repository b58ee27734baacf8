package service

import "errors"

// Sentinel errors returned by Assess and OpenAudio. Callers map them to
// transport status codes with errors.Is.
var (
	ErrMissingText         = errors.New("no text provided")
	ErrMissingAudio        = errors.New("no file uploaded")
	ErrMissingFilename     = errors.New("no file selected")
	ErrUnsupportedLanguage = errors.New("invalid language")
	ErrInvalidAudio        = errors.New("invalid audio")
	ErrBackpressure        = errors.New("transcription backlog is full")
	ErrTranscription       = errors.New("transcription failed")
	ErrSynthesis           = errors.New("speech synthesis failed")
	ErrStorage             = errors.New("storage failure")
	ErrNotFound            = errors.New("file not found")
	ErrNotStarted          = errors.New("service not started")
)

// failureReason is the metrics label for an Assess error.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingText), errors.Is(err, ErrMissingAudio), errors.Is(err, ErrMissingFilename):
		return "invalid_request"
	case errors.Is(err, ErrUnsupportedLanguage):
		return "unsupported_language"
	case errors.Is(err, ErrInvalidAudio):
		return "invalid_audio"
	case errors.Is(err, ErrBackpressure):
		return "backpressure"
	case errors.Is(err, ErrTranscription):
		return "transcription"
	case errors.Is(err, ErrSynthesis):
		return "synthesis"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrNotStarted):
		return "not_started"
	default:
		return "other"
	}
}
