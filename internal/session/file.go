package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Record is what FileStore persists: the identity plus a random session id
// that front ends can hand out as a session indicator.
type Record struct {
	ID        string    `json:"id"`
	Identity  Identity  `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
}

// FileStore keeps the signed-in identity in a JSON file with mode 0600.
type FileStore struct {
	path string
}

var _ Source = (*FileStore)(nil)

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// HasIndicator reports whether the session file exists. It does not read it.
func (s *FileStore) HasIndicator() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Resolve reads and validates the stored identity.
func (s *FileStore) Resolve(ctx context.Context) (Identity, error) {
	rec, err := s.Load()
	if err != nil {
		return Identity{}, err
	}
	return rec.Identity, nil
}

// Load returns the full stored record.
func (s *FileStore) Load() (Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, ErrNoSession
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read session: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("invalid session file: %w", err)
	}
	if !rec.Identity.Valid() {
		return Record{}, fmt.Errorf("invalid session file: missing user id")
	}
	return rec, nil
}

// Save stores id under a new session id and returns the record.
func (s *FileStore) Save(id Identity) (Record, error) {
	if !id.Valid() {
		return Record{}, errors.New("identity has no user id")
	}
	rec := Record{
		ID:        uuid.NewString(),
		Identity:  id,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return Record{}, err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return Record{}, err
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Remove deletes the session file. Removing a missing session is not an error.
func (s *FileStore) Remove() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
