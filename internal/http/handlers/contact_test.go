package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierlumen/leadgate/internal/audit"
	"github.com/atelierlumen/leadgate/internal/leads"
	"github.com/atelierlumen/leadgate/internal/notify"
	"github.com/atelierlumen/leadgate/internal/security"
)

func newContactHandler(t *testing.T) (*ContactHandler, *leads.InMemoryRepository, *audit.MemoryRecorder) {
	t.Helper()
	rec := audit.NewMemoryRecorder()
	gate := security.NewGate(security.NewBlocklistStore(nil), security.StaticVerifier{}, rec, nil, nil)
	repo := leads.NewInMemoryRepository()
	return NewContactHandler(gate, repo, nil, nil), repo, rec
}

func contactPayload() map[string]any {
	return map[string]any{
		"name":         "Claire Fontaine",
		"email":        "claire.fontaine@maisonduval.fr",
		"phone":        "+33612345678",
		"company":      "Maison Duval",
		"service":      "web",
		"budget":       "10k-25k",
		"timeline":     "1-3-months",
		"message":      "Nous souhaitons refondre le site vitrine de notre maison et améliorer la prise de rendez-vous en ligne.",
		"consent":      true,
		"captchaToken": "token-ok",
	}
}

func postContact(t *testing.T, h *ContactHandler, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewReader(body))
	req.Header.Set("X-Real-Ip", "81.250.1.1")
	rec := httptest.NewRecorder()
	h.Submit(rec, req)
	return rec
}

func decodeContact(t *testing.T, rec *httptest.ResponseRecorder) contactResponse {
	t.Helper()
	var resp contactResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestContactSubmitStoresLead(t *testing.T) {
	h, repo, events := newContactHandler(t)

	rec := postContact(t, h, contactPayload())
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeContact(t, rec)
	assert.True(t, resp.Success)
	require.NotEmpty(t, resp.ID)

	lead, err := repo.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Claire Fontaine", lead.Name)
	assert.Equal(t, leads.StatusNew, lead.Status)
	assert.Empty(t, events.Events())
}

func TestContactSubmitRejectsHoneypot(t *testing.T) {
	h, repo, events := newContactHandler(t)

	payload := contactPayload()
	payload["website"] = "http://spam.example"
	rec := postContact(t, h, payload)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeContact(t, rec)
	assert.False(t, resp.Success)
	assert.Empty(t, resp.ID)

	stored, err := repo.List(context.Background(), leads.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored, "blocked submissions must never be stored")

	recorded := events.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, audit.EventFormBlocked, recorded[0].Type)
	assert.Equal(t, "81.250.1.1", recorded[0].SourceIP)
}

func TestContactSubmitRejectsHighRisk(t *testing.T) {
	h, repo, events := newContactHandler(t)

	payload := contactPayload()
	payload["email"] = "claire@yopmail.com"
	rec := postContact(t, h, payload)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeContact(t, rec)
	assert.False(t, resp.Success)
	assert.NotContains(t, resp.Message, "yopmail", "rejection message must stay generic")

	stored, err := repo.List(context.Background(), leads.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)

	recorded := events.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, audit.EventSpamDetected, recorded[0].Type)
}

func TestContactSubmitSchemaErrors(t *testing.T) {
	h, _, _ := newContactHandler(t)

	payload := contactPayload()
	payload["email"] = ""
	rec := postContact(t, h, payload)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeContact(t, rec)
	assert.False(t, resp.Success)
	require.NotEmpty(t, resp.Errors)
	assert.Equal(t, "email", resp.Errors[0].Field)
}

func TestContactSubmitSanitizesBeforeStoring(t *testing.T) {
	h, repo, _ := newContactHandler(t)

	payload := contactPayload()
	payload["message"] = "Bonjour, nous avons un projet de refonte <script>alert(1)</script> à discuter rapidement."
	rec := postContact(t, h, payload)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeContact(t, rec)
	require.True(t, resp.Success)

	lead, err := repo.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.NotContains(t, lead.Message, "<script>")
	assert.NotContains(t, lead.Message, "alert(1)")
}

func TestContactSubmitInvalidJSON(t *testing.T) {
	h, _, _ := newContactHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeContact(t, rec)
	assert.False(t, resp.Success)
}

func TestRequestMetaReadsEdgeHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req.Header.Set("X-Real-Ip", "203.0.113.9")
	req.Header.Set("CF-IPCountry", "FR")
	req.Header.Set("X-Threat-Score", "12")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	meta := requestMeta(req)
	assert.Equal(t, "203.0.113.9", meta.IP)
	assert.Equal(t, "FR", meta.CountryCode)
	assert.Equal(t, 12, meta.ThreatScore)
	assert.Equal(t, "Mozilla/5.0", meta.UserAgent)
}

func TestRequestMetaDefaultsThreatScore(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	meta := requestMeta(req)
	assert.Equal(t, -1, meta.ThreatScore, "absent threat score must not look like zero risk")
}

// withURLParams attaches chi route params, for handlers that read {id}
// and {noteID}.
func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestContactSubmitSucceedsWhenNotifyFails(t *testing.T) {
	rec := audit.NewMemoryRecorder()
	gate := security.NewGate(security.NewBlocklistStore(nil), security.StaticVerifier{}, rec, nil, nil)
	repo := leads.NewInMemoryRepository()
	sender := &captureSender{err: context.DeadlineExceeded}
	notifier := notify.NewService(sender, "contact@atelierlumen.fr", "Atelier Lumen", "", nil)
	h := NewContactHandler(gate, repo, notifier, nil)

	rr := postContact(t, h, contactPayload())
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeContact(t, rr)
	require.True(t, resp.Success, "notification failure must not fail the submission")
	require.NotEmpty(t, resp.ID)

	lead, err := repo.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Claire Fontaine", lead.Name)
}
