package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"invoice-agent/internal/ai"
	"invoice-agent/internal/core"
	"invoice-agent/internal/store"

	"github.com/google/uuid"
)

// Greeting opens every fresh conversation.
const Greeting = "Hello! I'm your invoicing assistant. Tell me who the invoice is for and what to bill, and I'll put the draft together."

// TurnRunner is the slice of the AI agent the session needs. Satisfied by
// *ai.Agent; tests substitute a scripted fake.
type TurnRunner interface {
	SendTurn(ctx context.Context, sess ai.Session, userText string, current core.Invoice) (ai.TurnResult, ai.Session, error)
}

// SessionService drives one conversation and one invoice draft at a time,
// backed by a Store for issuer config, history and numbering. All methods
// are safe for concurrent use; at most one model turn runs at once.
type SessionService struct {
	runner TurnRunner
	st     store.Store

	mu         sync.Mutex
	state      store.State
	draft      core.Invoice
	session    ai.Session
	transcript []Message
	inFlight   bool
	generation int
	viewing    bool
}

var _ ApplicationService = (*SessionService)(nil)

// NewSessionService loads persisted state and opens a fresh conversation
// with a draft numbered after the last saved invoice.
func NewSessionService(ctx context.Context, st store.Store, runner TurnRunner) (*SessionService, error) {
	state, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	s := &SessionService{runner: runner, st: st, state: state}
	s.startConversationLocked()
	return s, nil
}

// startConversationLocked discards the draft and transcript and opens a new
// model session. Bumping the generation invalidates any turn still in
// flight against the old conversation. Caller holds s.mu (or is init).
func (s *SessionService) startConversationLocked() {
	s.draft = core.NewDraft(s.state.Issuer, core.NextNumber(s.state.LastNumber))
	s.session = ai.NewSession(s.state.Issuer)
	s.transcript = []Message{{ID: uuid.New(), Role: RoleAssistant, Text: Greeting}}
	s.generation++
	s.viewing = false
}

// SendMessage runs one conversational turn. The model exchange happens with
// the lock released; a concurrent second message is rejected with
// ErrTurnInFlight instead of queueing. A turn that outlives its conversation
// (reset or issuer change happened meanwhile) is discarded.
func (s *SessionService) SendMessage(ctx context.Context, text string) (Message, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return Message{}, ErrTurnInFlight
	}
	if s.session.NeedsReset(s.state.Issuer) {
		s.startConversationLocked()
	}
	s.inFlight = true
	gen := s.generation
	sess := s.session
	current := s.draft
	s.transcript = append(s.transcript, Message{ID: uuid.New(), Role: RoleUser, Text: text})
	s.mu.Unlock()

	result, updated, err := s.runner.SendTurn(ctx, sess, text, current)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if gen != s.generation {
		// The conversation this turn belonged to is gone.
		log.Printf("WARN: discarding turn result from a superseded conversation")
		return Message{}, ErrTurnSuperseded
	}

	if err != nil {
		log.Printf("ERROR: turn failed: %v", err)
		reply := Message{ID: uuid.New(), Role: RoleAssistant, Text: ai.ReplyApology, IsError: true}
		s.transcript = append(s.transcript, reply)
		return reply, nil
	}

	s.session = updated
	if result.Extraction != nil {
		s.draft = core.Apply(s.draft, result.Extraction)
	}
	reply := Message{ID: uuid.New(), Role: RoleAssistant, Text: result.Text}
	s.transcript = append(s.transcript, reply)
	return reply, nil
}

// CurrentInvoice returns a snapshot of the working draft.
func (s *SessionService) CurrentInvoice() core.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SaveInvoice finalizes the draft: it is stamped with today's date, pushed
// to the front of the history, persisted, and a new conversation starts
// with the next number. Fails with ErrNotReady while required fields are
// missing.
func (s *SessionService) SaveInvoice(ctx context.Context) (store.SavedInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.viewing {
		return store.SavedInvoice{}, ErrReadOnly
	}
	if missing := core.MissingFields(s.draft); len(missing) > 0 {
		return store.SavedInvoice{}, fmt.Errorf("%w: %v", ErrNotReady, missing)
	}

	now := time.Now()
	inv := s.draft
	inv.IssueDate = now.Format("2006-01-02")
	saved := store.SavedInvoice{ID: uuid.New(), SavedAt: now, Invoice: inv}

	next := s.state
	next.History = append([]store.SavedInvoice{saved}, next.History...)
	next.LastNumber = inv.Number
	if err := s.st.Save(ctx, next); err != nil {
		return store.SavedInvoice{}, fmt.Errorf("failed to persist invoice: %w", err)
	}

	s.state = next
	s.startConversationLocked()
	return saved, nil
}

// Reset abandons the current draft and conversation without saving.
func (s *SessionService) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startConversationLocked()
	return nil
}

// History returns the saved invoices, newest first.
func (s *SessionService) History() []store.SavedInvoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.SavedInvoice, len(s.state.History))
	copy(out, s.state.History)
	return out
}

// FindInvoice returns a saved invoice for viewing. It does not replace the
// working draft.
func (s *SessionService) FindInvoice(id uuid.UUID) (store.SavedInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FindInvoice(id)
}

// LoadFromHistory replaces the working document with a historical one, in
// read-only mode: saving is rejected until a reset or an actual save path
// starts a fresh draft, so history is never extended by a reload. Any turn
// in flight against the abandoned draft is invalidated.
func (s *SessionService) LoadFromHistory(id uuid.UUID) (store.SavedInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, err := s.state.FindInvoice(id)
	if err != nil {
		return store.SavedInvoice{}, err
	}

	s.draft = saved.Invoice
	s.session = ai.NewSession(s.state.Issuer)
	s.generation++
	s.viewing = true
	s.transcript = append(s.transcript, Message{
		ID:   uuid.New(),
		Role: RoleAssistant,
		Text: fmt.Sprintf("Showing saved invoice %s (read-only).", saved.Invoice.Reference()),
	})
	return saved, nil
}

// Transcript returns a copy of the conversation so far.
func (s *SessionService) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Issuer returns the active issuer configuration.
func (s *SessionService) Issuer() core.Issuer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Issuer
}

// UpdateIssuer persists a new issuer configuration. When it differs from
// the one the conversation was opened with, the conversation and draft are
// restarted so the model's instructions match.
func (s *SessionService) UpdateIssuer(ctx context.Context, issuer core.Issuer) error {
	if issuer.Name == "" || issuer.TaxID == "" {
		return fmt.Errorf("issuer name and tax ID are required")
	}
	if issuer.Currency == "" {
		issuer.Currency = core.DefaultIssuer().Currency
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	next.Issuer = issuer
	if err := s.st.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to persist issuer: %w", err)
	}
	s.state = next

	if s.session.NeedsReset(issuer) {
		s.startConversationLocked()
	}
	return nil
}
