package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/atelierlumen/leadgate/internal/audit"
	"github.com/atelierlumen/leadgate/pkg/logging"
)

// EventLister reads back recorded security events.
type EventLister interface {
	List(ctx context.Context, filter audit.ListFilter) ([]audit.Event, error)
}

// AdminSecurityHandler exposes the security event log to the dashboard.
type AdminSecurityHandler struct {
	events EventLister
	logger *logging.Logger
}

// NewAdminSecurityHandler creates the security events handler.
func NewAdminSecurityHandler(events EventLister, logger *logging.Logger) *AdminSecurityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminSecurityHandler{events: events, logger: logger}
}

var knownEventTypes = map[audit.EventType]bool{
	audit.EventRateLimit:       true,
	audit.EventSpamDetected:    true,
	audit.EventSuspiciousEmail: true,
	audit.EventFormBlocked:     true,
}

// ListEvents handles GET /admin/security/events.
func (h *AdminSecurityHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter := audit.ListFilter{}
	if typ := r.URL.Query().Get("type"); typ != "" {
		if !knownEventTypes[audit.EventType(typ)] {
			writeError(w, http.StatusBadRequest, "unknown event type")
			return
		}
		filter.Type = audit.EventType(typ)
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	events, err := h.events.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list security events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list security events")
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}
