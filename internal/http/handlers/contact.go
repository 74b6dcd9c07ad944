package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/atelierlumen/leadgate/internal/leads"
	"github.com/atelierlumen/leadgate/internal/notify"
	"github.com/atelierlumen/leadgate/internal/security"
	"github.com/atelierlumen/leadgate/pkg/logging"
)

// ContactHandler receives public contact-form submissions, runs them
// through the inbound gate, and persists the ones that pass.
type ContactHandler struct {
	gate     *security.Gate
	repo     leads.Repository
	notifier *notify.Service
	logger   *logging.Logger
}

// NewContactHandler creates the public contact endpoint handler. notifier
// may be nil (no owner notification).
func NewContactHandler(gate *security.Gate, repo leads.Repository, notifier *notify.Service, logger *logging.Logger) *ContactHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ContactHandler{
		gate:     gate,
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// contactResponse is the public response envelope. Rejections never leak
// which heuristic fired.
type contactResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	ID      string             `json:"id,omitempty"`
	Errors  []leads.FieldError `json:"errors,omitempty"`
}

// rejectMessages are deliberately generic: the stage is distinguishable but
// the internals are not.
var rejectMessages = map[security.RejectKind]string{
	security.RejectHoneypot: "Votre message n'a pas pu être envoyé.",
	security.RejectCaptcha:  "La vérification anti-robot a échoué, veuillez réessayer.",
	security.RejectRisk:     "Votre message n'a pas pu être accepté.",
	security.RejectSchema:   "Certains champs sont invalides ou manquants.",
}

// Submit handles POST /api/contact.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub leads.ContactSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, contactResponse{
			Success: false,
			Message: "Requête illisible.",
		})
		return
	}

	meta := requestMeta(r)
	decision := h.gate.Inspect(r.Context(), sub, meta)
	if !decision.Accepted {
		writeJSON(w, http.StatusBadRequest, contactResponse{
			Success: false,
			Message: rejectMessages[decision.Kind],
			Errors:  decision.FieldErrors,
		})
		return
	}

	lead, err := h.repo.Create(r.Context(), &decision.Submission)
	if err != nil {
		h.logger.Error("failed to store lead", "error", err)
		writeJSON(w, http.StatusInternalServerError, contactResponse{
			Success: false,
			Message: "Une erreur interne est survenue, veuillez réessayer plus tard.",
		})
		return
	}

	// Owner notification is best-effort: the lead is already stored.
	if h.notifier != nil {
		if err := h.notifier.NotifyNewLead(r.Context(), lead); err != nil {
			h.logger.Error("failed to notify new lead", "lead_id", lead.ID, "error", err)
		}
	}

	h.logger.Info("lead accepted", "lead_id", lead.ID, "service", lead.Service)
	writeJSON(w, http.StatusOK, contactResponse{
		Success: true,
		Message: "Merci, votre message a bien été envoyé. Nous revenons vers vous rapidement.",
		ID:      lead.ID,
	})
}

// requestMeta extracts the request context the risk checks consume. The IP
// comes from chi's RealIP middleware, country and threat score from edge
// headers when the site sits behind a CDN.
func requestMeta(r *http.Request) security.RequestMeta {
	meta := security.RequestMeta{
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
		CountryCode: r.Header.Get("CF-IPCountry"),
		ThreatScore: -1,
	}
	if raw := r.Header.Get("X-Threat-Score"); raw != "" {
		if score, err := strconv.Atoi(raw); err == nil {
			meta.ThreatScore = score
		}
	}
	return meta
}

func clientIP(r *http.Request) string {
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
