package agent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrEmptyStateFile = errors.New("agent: node id state file is empty")

// Store persists the node identifier so it survives restarts. The first
// load on a fresh host generates the identifier and writes it down.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: strings.TrimSpace(path)}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted identifier. os.ErrNotExist surfaces unwrapped
// so LoadOrCreate can tell "fresh host" from real failures.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", ErrEmptyStateFile
	}
	return id, nil
}

// LoadOrCreate returns the persisted identifier, generating and persisting
// a fresh one when the state file does not exist yet.
func (s *Store) LoadOrCreate() (string, error) {
	id, err := s.Load()
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, os.ErrNotExist):
		return s.generate()
	default:
		return "", fmt.Errorf("agent: load node id: %w", err)
	}
}

// Rotate discards the current identifier and persists a fresh one.
func (s *Store) Rotate() (string, error) {
	return s.generate()
}

func (s *Store) generate() (string, error) {
	id := uuid.NewString()
	if err := s.persist(id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) persist(id string) error {
	if s.path == "" {
		return errors.New("agent: state path required")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("agent: prepare state dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("agent: persist node id: %w", err)
	}
	return nil
}
