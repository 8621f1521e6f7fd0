package app

import (
	"context"
	"errors"

	"invoice-agent/internal/core"
	"invoice-agent/internal/store"

	"github.com/google/uuid"
)

// ErrTurnInFlight is returned when a message arrives while a previous turn
// is still waiting on the model.
var ErrTurnInFlight = errors.New("a turn is already in progress")

// ErrNotReady is returned when a save is requested before the draft has all
// required fields.
var ErrNotReady = errors.New("invoice draft is missing required fields")

// ErrTurnSuperseded is returned when a turn finishes after its conversation
// was reset; its result has been discarded.
var ErrTurnSuperseded = errors.New("conversation was reset while the turn was in flight")

// ErrReadOnly is returned when a save is attempted while a historical
// invoice is loaded for viewing.
var ErrReadOnly = errors.New("a historical invoice is loaded read-only")

// Role of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. IsError marks assistant entries that
// stand in for a failed turn.
type Message struct {
	ID      uuid.UUID `json:"id"`
	Role    Role      `json:"role"`
	Text    string    `json:"text"`
	IsError bool      `json:"is_error,omitempty"`
}

// ApplicationService is the surface the UI adapters (web and terminal)
// program against.
type ApplicationService interface {
	SendMessage(ctx context.Context, text string) (Message, error)
	CurrentInvoice() core.Invoice
	SaveInvoice(ctx context.Context) (store.SavedInvoice, error)
	Reset(ctx context.Context) error
	History() []store.SavedInvoice
	FindInvoice(id uuid.UUID) (store.SavedInvoice, error)
	LoadFromHistory(id uuid.UUID) (store.SavedInvoice, error)
	Transcript() []Message
	Issuer() core.Issuer
	UpdateIssuer(ctx context.Context, issuer core.Issuer) error
}
