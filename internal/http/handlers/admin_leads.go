package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atelierlumen/leadgate/internal/http/middleware"
	"github.com/atelierlumen/leadgate/internal/leads"
	"github.com/atelierlumen/leadgate/internal/notify"
	"github.com/atelierlumen/leadgate/pkg/logging"
)

// AdminLeadsHandler exposes the CRM operations on stored leads.
type AdminLeadsHandler struct {
	repo     leads.Repository
	notifier *notify.Service
	logger   *logging.Logger
}

// NewAdminLeadsHandler creates the admin leads handler. notifier may be nil,
// in which case quote sending is unavailable.
func NewAdminLeadsHandler(repo leads.Repository, notifier *notify.Service, logger *logging.Logger) *AdminLeadsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminLeadsHandler{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// LeadsListResponse is the scored listing envelope.
type LeadsListResponse struct {
	Leads []leads.ScoredLead `json:"leads"`
	Count int                `json:"count"`
}

// List handles GET /admin/leads. Leads are scored on the fly and returned
// hottest first.
func (h *AdminLeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := leads.ListFilter{}
	if status := r.URL.Query().Get("status"); status != "" {
		if !leads.ValidStatus(leads.Status(status)) {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		filter.Status = leads.Status(status)
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	list, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	scored := leads.Annotate(list)
	writeJSON(w, http.StatusOK, LeadsListResponse{Leads: scored, Count: len(scored)})
}

// Get handles GET /admin/leads/{id}.
func (h *AdminLeadsHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.loadLead(w, r)
	if !ok {
		return
	}
	score := leads.Score(lead)
	writeJSON(w, http.StatusOK, leads.ScoredLead{Lead: lead, Score: score, Bucket: leads.Bucket(score)})
}

// UpdateStatus handles PATCH /admin/leads/{id}/status.
func (h *AdminLeadsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Status leads.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !leads.ValidStatus(body.Status) {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if err := h.repo.UpdateStatus(r.Context(), id, body.Status); err != nil {
		h.repoError(w, err, "failed to update lead status")
		return
	}
	h.logger.Info("lead status updated", "lead_id", id, "status", body.Status)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": body.Status})
}

// Delete handles DELETE /admin/leads/{id}. Notes go with the lead.
func (h *AdminLeadsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.repoError(w, err, "failed to delete lead")
		return
	}
	h.logger.Info("lead deleted", "lead_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// AddNote handles POST /admin/leads/{id}/notes.
func (h *AdminLeadsHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Type    leads.NoteType `json:"type"`
		Content string         `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !leads.ValidNoteType(body.Type) {
		writeError(w, http.StatusBadRequest, "unknown note type")
		return
	}
	if body.Content == "" {
		writeError(w, http.StatusBadRequest, "note content is required")
		return
	}

	note, err := h.repo.AddNote(r.Context(), id, leads.NoteInput{
		Type:    body.Type,
		Content: body.Content,
		Author:  middleware.AdminNameFromContext(r.Context()),
	})
	if err != nil {
		h.repoError(w, err, "failed to add note")
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /admin/leads/{id}/notes/{noteID}.
func (h *AdminLeadsHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	noteID := chi.URLParam(r, "noteID")

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Content == "" {
		writeError(w, http.StatusBadRequest, "note content is required")
		return
	}

	note, err := h.repo.UpdateNote(r.Context(), id, noteID, body.Content)
	if err != nil {
		h.repoError(w, err, "failed to update note")
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /admin/leads/{id}/notes/{noteID}.
func (h *AdminLeadsHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	noteID := chi.URLParam(r, "noteID")

	if err := h.repo.DeleteNote(r.Context(), id, noteID); err != nil {
		h.repoError(w, err, "failed to delete note")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendQuote handles POST /admin/leads/{id}/quote: emails the quote to the
// lead, appends an automatic contact note, and moves a new or contacted
// lead to quoted.
func (h *AdminLeadsHandler) SendQuote(w http.ResponseWriter, r *http.Request) {
	if h.notifier == nil {
		writeError(w, http.StatusServiceUnavailable, "email delivery is not configured")
		return
	}

	lead, ok := h.loadLead(w, r)
	if !ok {
		return
	}

	var quote notify.Quote
	if err := json.NewDecoder(r.Body).Decode(&quote); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if quote.Reference == "" {
		writeError(w, http.StatusBadRequest, "quote reference is required")
		return
	}
	if len(quote.Items) == 0 {
		writeError(w, http.StatusBadRequest, "quote has no line items")
		return
	}

	sender := middleware.AdminNameFromContext(r.Context())
	if err := h.notifier.SendQuote(r.Context(), lead, quote, sender); err != nil {
		h.logger.Error("failed to send quote", "lead_id", lead.ID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to send quote")
		return
	}

	// The email left, so CRM bookkeeping failures are logged but the
	// request still succeeds.
	if _, err := h.repo.AddNote(r.Context(), lead.ID, leads.NoteInput{
		Type:    leads.NoteEmail,
		Content: "Devis " + quote.Reference + " envoyé",
		Author:  sender,
	}); err != nil {
		h.logger.Error("failed to record quote note", "lead_id", lead.ID, "error", err)
	}

	status := lead.Status
	if lead.Status == leads.StatusNew || lead.Status == leads.StatusContacted {
		if err := h.repo.UpdateStatus(r.Context(), lead.ID, leads.StatusQuoted); err != nil {
			h.logger.Error("failed to mark lead quoted", "lead_id", lead.ID, "error", err)
		} else {
			status = leads.StatusQuoted
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":        lead.ID,
		"status":    status,
		"reference": quote.Reference,
	})
}

func (h *AdminLeadsHandler) loadLead(w http.ResponseWriter, r *http.Request) (*leads.Lead, bool) {
	id := chi.URLParam(r, "id")
	lead, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.repoError(w, err, "failed to load lead")
		return nil, false
	}
	return lead, true
}

func (h *AdminLeadsHandler) repoError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, leads.ErrLeadNotFound):
		writeError(w, http.StatusNotFound, "lead not found")
	case errors.Is(err, leads.ErrNoteNotFound):
		writeError(w, http.StatusNotFound, "note not found")
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
