package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound     = errors.New("file not found")
	ErrInvalidName  = errors.New("invalid file name")
	ErrInvalidRoot  = errors.New("invalid storage directory")
	ErrEmptyPayload = errors.New("empty payload")
)
