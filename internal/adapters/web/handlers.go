package web

import (
	"errors"
	"fmt"
	"net/http"

	"invoice-agent/internal/app"
	"invoice-agent/internal/core"
	"invoice-agent/internal/render"
	"invoice-agent/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// Handler exposes the application service over HTTP.
type Handler struct {
	svc app.ApplicationService
}

// NewRouter wires the API routes with the standard middleware chain.
func NewRouter(svc app.ApplicationService, allowedOrigins []string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(maxBodyBytes))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.chat)
		r.Get("/transcript", h.transcript)

		r.Get("/invoice", h.currentInvoice)
		r.Post("/invoice/save", h.saveInvoice)
		r.Post("/invoice/reset", h.resetInvoice)
		r.Get("/invoice/pdf", h.currentInvoicePDF)

		r.Get("/history", h.history)
		r.Get("/history/{id}", h.historyEntry)
		r.Get("/history/{id}/pdf", h.historyEntryPDF)
		r.Post("/history/{id}/load", h.loadFromHistory)

		r.Get("/settings", h.settings)
		r.Put("/settings", h.updateSettings)
	})

	return r
}

type chatRequest struct {
	Text string `json:"text"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeError(w, r, "text is required", http.StatusBadRequest)
		return
	}

	reply, err := h.svc.SendMessage(r.Context(), req.Text)
	switch {
	case errors.Is(err, app.ErrTurnInFlight):
		writeError(w, r, "a previous message is still being processed", http.StatusConflict)
		return
	case errors.Is(err, app.ErrTurnSuperseded):
		writeError(w, r, "the conversation was reset while processing", http.StatusConflict)
		return
	case err != nil:
		writeError(w, r, "failed to process message", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reply":   reply,
		"invoice": invoiceView(h.svc.CurrentInvoice()),
	})
}

func (h *Handler) transcript(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"messages": h.svc.Transcript()})
}

func (h *Handler) currentInvoice(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, invoiceView(h.svc.CurrentInvoice()))
}

func (h *Handler) saveInvoice(w http.ResponseWriter, r *http.Request) {
	saved, err := h.svc.SaveInvoice(r.Context())
	if errors.Is(err, app.ErrNotReady) || errors.Is(err, app.ErrReadOnly) {
		writeError(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		writeError(w, r, "failed to save invoice", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, savedView(saved))
}

func (h *Handler) resetInvoice(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context()); err != nil {
		writeError(w, r, "failed to reset", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) currentInvoicePDF(w http.ResponseWriter, r *http.Request) {
	h.servePDF(w, r, h.svc.CurrentInvoice())
}

func (h *Handler) history(w http.ResponseWriter, _ *http.Request) {
	entries := h.svc.History()
	views := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		views = append(views, map[string]any{
			"id":        e.ID,
			"saved_at":  e.SavedAt,
			"reference": e.Invoice.Reference(),
			"client":    e.Invoice.Client.Name,
			"total":     e.Invoice.Total().StringFixed(2),
			"currency":  e.Invoice.Issuer.Currency,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": views})
}

func (h *Handler) historyEntry(w http.ResponseWriter, r *http.Request) {
	saved, ok := h.findSaved(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, savedView(saved))
}

func (h *Handler) loadFromHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "invalid invoice id", http.StatusBadRequest)
		return
	}
	saved, err := h.svc.LoadFromHistory(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, "invoice not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, r, "failed to load invoice", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, savedView(saved))
}

func (h *Handler) historyEntryPDF(w http.ResponseWriter, r *http.Request) {
	saved, ok := h.findSaved(w, r)
	if !ok {
		return
	}
	h.servePDF(w, r, saved.Invoice)
}

func (h *Handler) settings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Issuer())
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var issuer core.Issuer
	if !decodeBody(w, r, &issuer) {
		return
	}
	if err := h.svc.UpdateIssuer(r.Context(), issuer); err != nil {
		writeError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Issuer())
}

func (h *Handler) findSaved(w http.ResponseWriter, r *http.Request) (store.SavedInvoice, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "invalid invoice id", http.StatusBadRequest)
		return store.SavedInvoice{}, false
	}
	saved, err := h.svc.FindInvoice(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, "invoice not found", http.StatusNotFound)
		return store.SavedInvoice{}, false
	}
	if err != nil {
		writeError(w, r, "failed to look up invoice", http.StatusInternalServerError)
		return store.SavedInvoice{}, false
	}
	return saved, true
}

func (h *Handler) servePDF(w http.ResponseWriter, r *http.Request, inv core.Invoice) {
	raw, err := render.PDF(inv)
	if err != nil {
		writeError(w, r, "failed to render PDF", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", inv.Reference()+".pdf"))
	_, _ = w.Write(raw)
}

type itemJSON struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Total       string `json:"total"`
}

// invoiceView flattens an invoice for the API: decimal amounts as fixed
// strings, plus the readiness verdict the UI shows next to the draft.
func invoiceView(inv core.Invoice) map[string]any {
	items := make([]itemJSON, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, itemJSON{
			Description: it.Description,
			Quantity:    render.FormatQuantity(it.Quantity),
			UnitPrice:   it.UnitPrice.StringFixed(2),
			Total:       it.Total().StringFixed(2),
		})
	}

	view := map[string]any{
		"issuer":    inv.Issuer,
		"client":    inv.Client,
		"items":     items,
		"series":    inv.Series,
		"number":    inv.Number,
		"reference": inv.Reference(),
		"subtotal":  inv.Subtotal().StringFixed(2),
		"tax":       inv.Tax().StringFixed(2),
		"total":     inv.Total().StringFixed(2),
		"missing":   core.MissingFields(inv),
		"ready":     core.Ready(inv),
	}
	if inv.IssueDate != "" {
		view["issue_date"] = inv.IssueDate
	}
	return view
}

func savedView(saved store.SavedInvoice) map[string]any {
	return map[string]any{
		"id":       saved.ID,
		"saved_at": saved.SavedAt,
		"invoice":  invoiceView(saved.Invoice),
	}
}
