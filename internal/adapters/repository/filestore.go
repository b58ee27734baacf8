package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/parrot/internal/domain/model"
	"github.com/okian/parrot/pkg/metrics"
)

const (
	defaultFileMode = 0o644
	tempPattern     = ".partial-*"
)

var contentTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
}

// FileStore is a Store backed by a flat directory.
type FileStore struct {
	dir      string
	fileMode os.FileMode
	now      func() time.Time
	newID    func() string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrInvalidRoot
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	s := &FileStore{
		dir:      abs,
		fileMode: defaultFileMode,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateStorageObjects(s.Count(context.Background()))
	return s, nil
}

// Dir returns the absolute storage directory.
func (s *FileStore) Dir() string { return s.dir }

// Save writes data atomically. The ID is "<prefix>_<uuid>" followed by
// "_<name>" when the sanitized name is not empty.
func (s *FileStore) Save(ctx context.Context, prefix, name string, data []byte) (model.Object, error) {
	if err := ctx.Err(); err != nil {
		return model.Object{}, err
	}
	if len(data) == 0 {
		return model.Object{}, ErrEmptyPayload
	}
	prefix = SecureFilename(prefix)
	if prefix == "" {
		return model.Object{}, ErrInvalidName
	}

	id := prefix + "_" + s.newID()
	if safe := SecureFilename(name); safe != "" {
		id += "_" + safe
	}
	path := filepath.Join(s.dir, id)

	tmp, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return model.Object{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return model.Object{}, fmt.Errorf("write %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return model.Object{}, fmt.Errorf("close %s: %w", id, err)
	}
	if err := os.Chmod(tmpName, s.fileMode); err != nil {
		cleanup()
		return model.Object{}, fmt.Errorf("chmod %s: %w", id, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return model.Object{}, fmt.Errorf("rename %s: %w", id, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return model.Object{}, fmt.Errorf("stat %s: %w", id, err)
	}

	metrics.RecordStorageWrite(prefix, len(data))
	metrics.UpdateStorageObjects(s.Count(ctx))
	return s.object(id, info), nil
}

// Open returns the object with the given ID. IDs that do not survive
// SecureFilename unchanged are treated as unknown.
func (s *FileStore) Open(ctx context.Context, id string) (io.ReadSeekCloser, model.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.Object{}, err
	}
	if id == "" || SecureFilename(id) != id {
		metrics.RecordErrorByComponent("repository", "invalid_name")
		return nil, model.Object{}, ErrNotFound
	}

	f, err := os.Open(filepath.Join(s.dir, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			metrics.RecordErrorByComponent("repository", "not_found")
			return nil, model.Object{}, ErrNotFound
		}
		return nil, model.Object{}, fmt.Errorf("open %s: %w", id, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, model.Object{}, fmt.Errorf("stat %s: %w", id, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, model.Object{}, ErrNotFound
	}
	return f, s.object(id, info), nil
}

// Purge removes regular files whose modification time is older than
// olderThan, including abandoned partial writes.
func (s *FileStore) Purge(ctx context.Context, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read storage directory: %w", err)
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	var errs []error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed concurrently
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", e.Name(), err))
			continue
		}
		removed++
	}

	if removed > 0 {
		metrics.RecordStoragePurged(removed)
	}
	metrics.UpdateStorageObjects(s.Count(ctx))
	return removed, errors.Join(errs...)
}

// Count returns the number of stored objects, ignoring partial writes.
func (s *FileStore) Count(_ context.Context) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			n++
		}
	}
	return n
}

func (s *FileStore) object(id string, info fs.FileInfo) model.Object {
	return model.Object{
		ID:          id,
		Path:        filepath.Join(s.dir, id),
		Size:        info.Size(),
		ContentType: contentTypeFor(id),
		CreatedAt:   info.ModTime(),
	}
}

func contentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
