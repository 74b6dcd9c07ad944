package security

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierlumen/leadgate/internal/audit"
	"github.com/atelierlumen/leadgate/internal/leads"
	"github.com/atelierlumen/leadgate/pkg/logging"
)

func newTestGate(t *testing.T, verifier CaptchaVerifier) (*Gate, *audit.MemoryRecorder) {
	t.Helper()
	rec := audit.NewMemoryRecorder()
	gate := NewGate(NewBlocklistStore(nil), verifier, rec, nil, logging.Default())
	return gate, rec
}

func gateSubmission() leads.ContactSubmission {
	sub := legitSubmission()
	sub.CaptchaToken = "token-ok"
	return sub
}

func TestGateAcceptsLegitimateSubmission(t *testing.T) {
	gate, rec := newTestGate(t, StaticVerifier{})
	decision := gate.Inspect(context.Background(), gateSubmission(), RequestMeta{IP: "81.250.1.1", ThreatScore: -1})

	assert.True(t, decision.Accepted)
	assert.Equal(t, RejectNone, decision.Kind)
	assert.True(t, decision.Result.Valid)
	assert.Empty(t, decision.Submission.CaptchaToken, "transport fields must not survive the gate")
	assert.Empty(t, decision.Submission.Website)
	assert.Empty(t, rec.Events())
}

func TestGateHoneypotRejectsBeforeEverything(t *testing.T) {
	// The verifier would reject this token, but the honeypot fires first.
	gate, rec := newTestGate(t, StaticVerifier{Err: ErrCaptchaFailed})

	sub := gateSubmission()
	sub.Website = "http://spam.ru"
	decision := gate.Inspect(context.Background(), sub, RequestMeta{IP: "203.0.113.7", UserAgent: "curl/8.0"})

	assert.False(t, decision.Accepted)
	assert.Equal(t, RejectHoneypot, decision.Kind)

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventFormBlocked, events[0].Type)
	assert.Equal(t, "203.0.113.7", events[0].SourceIP)
	assert.Equal(t, "curl/8.0", events[0].UserAgent)

	var details audit.Details
	require.NoError(t, json.Unmarshal(events[0].Details, &details))
	assert.Contains(t, details.Reasons, "honeypot_filled")
}

func TestGateCaptchaFailureRejects(t *testing.T) {
	gate, rec := newTestGate(t, StaticVerifier{Err: ErrCaptchaFailed})

	decision := gate.Inspect(context.Background(), gateSubmission(), RequestMeta{IP: "203.0.113.7"})
	assert.False(t, decision.Accepted)
	assert.Equal(t, RejectCaptcha, decision.Kind)

	events := rec.Events()
	require.Len(t, events, 1)
	var details audit.Details
	require.NoError(t, json.Unmarshal(events[0].Details, &details))
	assert.Contains(t, details.Reasons, "captcha_failed")
}

func TestGateDisposableDomainRejects(t *testing.T) {
	gate, rec := newTestGate(t, StaticVerifier{})

	sub := gateSubmission()
	sub.Email = "someone@10minutemail.com"
	decision := gate.Inspect(context.Background(), sub, RequestMeta{IP: "81.250.1.1", ThreatScore: -1})

	assert.False(t, decision.Accepted)
	assert.Equal(t, RejectRisk, decision.Kind)
	assert.Equal(t, RiskHigh, decision.Result.Risk)

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventSpamDetected, events[0].Type)

	// The full sanitized payload rides along for operator review.
	var details audit.Details
	require.NoError(t, json.Unmarshal(events[0].Details, &details))
	assert.Equal(t, "high", details.Risk)
	assert.NotNil(t, details.Payload)
}

func TestGateSpamKeywordsReject(t *testing.T) {
	gate, _ := newTestGate(t, StaticVerifier{})

	sub := gateSubmission()
	sub.Message = "Try our casino and a bitcoin investment with guaranteed returns"
	decision := gate.Inspect(context.Background(), sub, RequestMeta{IP: "81.250.1.1", ThreatScore: -1})

	assert.False(t, decision.Accepted)
	assert.Equal(t, RejectRisk, decision.Kind)
}

func TestGateGenericNameRejects(t *testing.T) {
	gate, _ := newTestGate(t, StaticVerifier{})

	sub := gateSubmission()
	sub.Name = "test"
	sub.Email = "test@gmail.com"
	decision := gate.Inspect(context.Background(), sub, RequestMeta{IP: "81.250.1.1", ThreatScore: -1})

	assert.False(t, decision.Accepted)
	assert.Equal(t, RejectRisk, decision.Kind)
}

func TestGateLinkCountBoundary(t *testing.T) {
	gate, rec := newTestGate(t, StaticVerifier{})

	three := gateSubmission()
	three.Message = "voir https://a.example.com https://b.example.com https://c.example.com"
	decision := gate.Inspect(context.Background(), three, RequestMeta{IP: "81.250.1.1", ThreatScore: -1})
	assert.False(t, decision.Accepted)
	assert.Equal(t, RejectRisk, decision.Kind)

	one := gateSubmission()
	one.Message = "notre site actuel https://ancien-site.example est lent, merci de nous aider"
	decision = gate.Inspect(context.Background(), one, RequestMeta{IP: "81.250.1.1", ThreatScore: -1})
	assert.True(t, decision.Accepted, "a single link is an advisory, not a rejection")
	assert.Equal(t, RiskMedium, decision.Result.Risk)

	// The advisory still left a trace for the operator.
	events := rec.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, audit.EventSpamDetected, events[len(events)-1].Type)
}

func TestGateMediumEmailAdvisoryRecordedAsSuspiciousEmail(t *testing.T) {
	gate, rec := newTestGate(t, StaticVerifier{})

	sub := gateSubmission()
	sub.Email = "jean+crm@entreprise.fr"
	decision := gate.Inspect(context.Background(), sub, RequestMeta{IP: "81.250.1.1", ThreatScore: -1})

	assert.True(t, decision.Accepted)
	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventSuspiciousEmail, events[0].Type)
}

func TestGateSchemaRejection(t *testing.T) {
	gate, _ := newTestGate(t, StaticVerifier{})

	sub := gateSubmission()
	sub.Consent = false
	sub.Service = "seo"
	decision := gate.Inspect(context.Background(), sub, RequestMeta{IP: "81.250.1.1", ThreatScore: -1})

	assert.False(t, decision.Accepted)
	assert.Equal(t, RejectSchema, decision.Kind)
	require.NotEmpty(t, decision.FieldErrors)
	fields := make([]string, 0, len(decision.FieldErrors))
	for _, fe := range decision.FieldErrors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "consent")
	assert.Contains(t, fields, "service")
}

func TestGateSanitizesBeforeValidating(t *testing.T) {
	gate, _ := newTestGate(t, StaticVerifier{})

	sub := gateSubmission()
	sub.Name = "  Jean Dupont<script>x()</script>  "
	decision := gate.Inspect(context.Background(), sub, RequestMeta{IP: "81.250.1.1", ThreatScore: -1})

	assert.True(t, decision.Accepted)
	assert.Equal(t, "Jean Dupont", decision.Submission.Name)
}
