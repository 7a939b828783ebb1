// Package store persists the arena's best score across runs.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNegativeScore is returned when a negative score is stored
var ErrNegativeScore = errors.New("score must not be negative")

// record is the on-disk format
type record struct {
	HighScore int       `json:"highScore"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FileStore keeps the high score in a small JSON file. Writes go to a
// temporary file first and are renamed into place.
type FileStore struct {
	mu    sync.RWMutex
	path  string
	cache record
}

// OpenFile loads path, creating nothing until the first write.
// A missing file starts at zero; a corrupt file is reported and ignored.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read high score: %w", err)
	}

	if err := json.Unmarshal(data, &s.cache); err != nil {
		log.Printf("⚠️ Ignoring unreadable high score file %s: %v", path, err)
		s.cache = record{}
	}
	if s.cache.HighScore < 0 {
		s.cache.HighScore = 0
	}
	return s, nil
}

// HighScore returns the stored best score
func (s *FileStore) HighScore() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.HighScore
}

// UpdatedAt returns when the score was last written
func (s *FileStore) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.UpdatedAt
}

// SetHighScore writes score to disk
func (s *FileStore) SetHighScore(score int) error {
	if score < 0 {
		return ErrNegativeScore
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := record{HighScore: score, UpdatedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".highscore-*.json")
	if err != nil {
		return fmt.Errorf("write high score: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write high score: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write high score: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write high score: %w", err)
	}

	s.cache = next
	return nil
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

// MemoryStore keeps the high score for the life of the process
type MemoryStore struct {
	mu    sync.RWMutex
	score int
}

// NewMemoryStore creates a store seeded with initial
func NewMemoryStore(initial int) *MemoryStore {
	return &MemoryStore{score: initial}
}

// HighScore returns the best score
func (m *MemoryStore) HighScore() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.score
}

// SetHighScore records score
func (m *MemoryStore) SetHighScore(score int) error {
	if score < 0 {
		return ErrNegativeScore
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.score = score
	return nil
}
