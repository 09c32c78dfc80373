// Package docstore persists a single JSON document on local disk with an optional remote backup.
// The local file is always authoritative; the backup is best effort and never fails a write.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"poolfi/backend/internal/logging"
)

// Backup receives every saved snapshot and can restore the last one uploaded.
type Backup interface {
	// Enqueue schedules data for upload under the document path. It must not block on the network.
	Enqueue(path string, data []byte)
	// Restore returns the last uploaded snapshot for path, or (nil, nil) when none is recorded.
	Restore(ctx context.Context, path string) ([]byte, error)
}

// Options configure a Store.
type Options struct {
	// Backup is optional; nil disables remote backup and restore.
	Backup Backup
	Logger logrus.FieldLogger
}

// Store holds one JSON document of type T at a fixed path. All access is serialized by an in-process mutex.
type Store[T any] struct {
	path   string
	seed   func() T
	backup Backup
	log    logrus.FieldLogger

	mu sync.Mutex
}

// New returns a Store for the document at path. seed builds the document written on first run.
func New[T any](path string, seed func() T, opts Options) *Store[T] {
	return &Store[T]{
		path:   path,
		seed:   seed,
		backup: opts.Backup,
		log:    logging.OrDiscard(opts.Logger).WithField("document", filepath.Base(path)),
	}
}

// Path returns the local document path.
func (s *Store[T]) Path() string {
	return s.path
}

// Load returns the persisted document. When the local file is missing it first tries the remote
// backup, then falls back to the seed; either result is written locally before returning.
func (s *Store[T]) Load(ctx context.Context) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Update runs fn on the current document under the store lock and saves the result.
// When fn returns an error nothing is written and the error is returned unchanged.
func (s *Store[T]) Update(ctx context.Context, fn func(doc *T) error) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadLocked(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := fn(&doc); err != nil {
		var zero T
		return zero, err
	}
	if err := s.saveLocked(doc); err != nil {
		var zero T
		return zero, err
	}
	return doc, nil
}

// Save replaces the document.
func (s *Store[T]) Save(ctx context.Context, doc T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(doc)
}

func (s *Store[T]) loadLocked(ctx context.Context) (T, error) {
	var doc T
	raw, err := os.ReadFile(s.path)
	if err == nil {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return doc, fmt.Errorf("docstore: decode %s: %w", s.path, err)
		}
		return doc, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return doc, fmt.Errorf("docstore: read %s: %w", s.path, err)
	}

	if restored, ok := s.restore(ctx); ok {
		if err := s.writeFile(restored); err != nil {
			return doc, err
		}
		if err := json.Unmarshal(restored, &doc); err != nil {
			return doc, fmt.Errorf("docstore: decode restored %s: %w", s.path, err)
		}
		s.log.Info("restored document from remote backup")
		return doc, nil
	}

	if s.seed != nil {
		doc = s.seed()
	}
	if err := s.saveLocked(doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// restore returns the backed-up bytes when they decode as a T. Failures are logged and treated as absent.
func (s *Store[T]) restore(ctx context.Context) ([]byte, bool) {
	if s.backup == nil {
		return nil, false
	}
	data, err := s.backup.Restore(ctx, s.path)
	if err != nil {
		s.log.WithError(err).Warn("remote restore failed; seeding")
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}
	var probe T
	if err := json.Unmarshal(data, &probe); err != nil {
		s.log.WithError(err).Warn("remote snapshot is not a valid document; seeding")
		return nil, false
	}
	return data, true
}

func (s *Store[T]) saveLocked(doc T) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("docstore: encode %s: %w", s.path, err)
	}
	if err := s.writeFile(data); err != nil {
		return err
	}
	if s.backup != nil {
		s.backup.Enqueue(s.path, data)
	}
	return nil
}

// writeFile replaces the document atomically via a temp file and rename in the same directory.
func (s *Store[T]) writeFile(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("docstore: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("docstore: temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("docstore: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("docstore: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("docstore: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("docstore: rename %s: %w", s.path, err)
	}
	return nil
}
