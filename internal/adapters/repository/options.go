package repository

import (
	"os"
	"time"
)

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithFileMode sets the permission bits of stored files.
func WithFileMode(mode os.FileMode) Option {
	return func(s *FileStore) {
		if mode != 0 {
			s.fileMode = mode
		}
	}
}

// WithClock replaces the time source used by Purge.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the random part of generated IDs.
func WithIDGenerator(gen func() string) Option {
	return func(s *FileStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}
