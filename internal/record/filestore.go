package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// FileStore persists runtime records as a single JSON document on disk,
// suitable for single-host deployments without a database. Thread-safe.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore writing to the given path. The file is
// created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes or replaces the record for the presentation id.
func (s *FileStore) Save(_ context.Context, presentationID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return err
	}
	all[presentationID] = rec
	return s.writeAll(all)
}

// Load returns the stored record, or [ErrNotFound].
func (s *FileStore) Load(_ context.Context, presentationID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return Record{}, err
	}
	rec, ok := all[presentationID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Delete removes the record if present.
func (s *FileStore) Delete(_ context.Context, presentationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return err
	}
	if _, ok := all[presentationID]; !ok {
		return nil
	}
	delete(all, presentationID)
	return s.writeAll(all)
}

// readAll loads the full record map, treating a missing file as empty.
// Callers must hold s.mu.
func (s *FileStore) readAll() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record: read %q: %w", s.path, err)
	}

	all := map[string]Record{}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("record: parse %q: %w", s.path, err)
	}
	return all, nil
}

// writeAll replaces the file contents atomically via a temp-file rename.
// Callers must hold s.mu.
func (s *FileStore) writeAll(all map[string]Record) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("record: marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("record: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("record: rename %q: %w", s.path, err)
	}
	return nil
}
