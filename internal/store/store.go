package store

import (
	"context"
	"errors"
	"time"

	"invoice-agent/internal/core"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a saved invoice lookup misses.
var ErrNotFound = errors.New("invoice not found")

// SavedInvoice is one finalized draft in the history, with its save metadata.
type SavedInvoice struct {
	ID      uuid.UUID    `json:"id"`
	SavedAt time.Time    `json:"saved_at"`
	Invoice core.Invoice `json:"invoice"`
}

// State is the whole persisted application state: issuer configuration,
// saved invoice history (newest first) and the last issued document number.
// It is read and written as a single document, so a save can never leave
// the history and the number sequence disagreeing.
type State struct {
	Issuer     core.Issuer    `json:"issuer"`
	History    []SavedInvoice `json:"history"`
	LastNumber string         `json:"last_number"`
}

// DefaultState seeds a brand-new installation.
func DefaultState() State {
	return State{Issuer: core.DefaultIssuer()}
}

// FindInvoice looks a saved invoice up by ID.
func (s State) FindInvoice(id uuid.UUID) (SavedInvoice, error) {
	for _, saved := range s.History {
		if saved.ID == id {
			return saved, nil
		}
	}
	return SavedInvoice{}, ErrNotFound
}

// Store persists the application state. Load on a fresh backend returns
// DefaultState rather than an error.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}
