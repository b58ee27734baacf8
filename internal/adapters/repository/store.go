// Package repository stores uploaded recordings, cleaned recordings and
// synthesized reference audio on disk.
package repository

import (
	"context"
	"io"
	"time"

	"github.com/okian/parrot/internal/domain/model"
)

// Store provides write-once access to audio objects.
type Store interface {
	// Save writes data under a new unique ID built from prefix and the
	// sanitized name. The returned Object describes the stored file.
	Save(ctx context.Context, prefix, name string, data []byte) (model.Object, error)

	// Open returns a reader for the object with the given ID.
	// Returns ErrNotFound if no such object exists.
	Open(ctx context.Context, id string) (io.ReadSeekCloser, model.Object, error)

	// Purge deletes objects last modified more than olderThan ago and
	// reports how many were removed.
	Purge(ctx context.Context, olderThan time.Duration) (int, error)

	// Count returns the number of stored objects.
	Count(ctx context.Context) int
}
