package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"invoice-agent/internal/core"
)

// FileStore keeps the state in a single JSON file. Writes go through a
// temp file and rename so a crash mid-write never corrupts the state.
type FileStore struct {
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load reads the state file. A missing file means a fresh installation; a
// file that no longer parses is treated the same way rather than bricking
// startup, since every field has a usable default.
func (f *FileStore) Load(_ context.Context) (State, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return DefaultState(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to read state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		log.Printf("WARN: state file %s is unreadable, starting fresh: %v", f.path, err)
		return DefaultState(), nil
	}
	if state.Issuer == (core.Issuer{}) {
		state.Issuer = DefaultState().Issuer
	}
	return state, nil
}

func (f *FileStore) Save(_ context.Context, state State) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
