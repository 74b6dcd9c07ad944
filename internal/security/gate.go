package security

import (
	"context"
	"errors"
	"strings"

	"github.com/atelierlumen/leadgate/internal/audit"
	"github.com/atelierlumen/leadgate/internal/leads"
	"github.com/atelierlumen/leadgate/internal/observability/metrics"
	"github.com/atelierlumen/leadgate/pkg/logging"
)

// RejectKind identifies which gate stage rejected a submission.
type RejectKind string

const (
	RejectNone     RejectKind = ""
	RejectHoneypot RejectKind = "honeypot"
	RejectCaptcha  RejectKind = "captcha"
	RejectRisk     RejectKind = "risk"
	RejectSchema   RejectKind = "schema"
)

// Decision is the outcome of running one submission through the gate.
type Decision struct {
	Accepted    bool
	Kind        RejectKind
	Submission  leads.ContactSubmission // sanitized; only meaningful past the captcha stage
	Result      Validation              // merged composite verdict
	FieldErrors []leads.FieldError      // set when Kind == RejectSchema
}

// Gate runs the inbound pipeline: honeypot, challenge-response,
// sanitization, composite risk validation, schema validation. It decides;
// persist-and-notify belongs to the caller.
type Gate struct {
	lists   *BlocklistStore
	captcha CaptchaVerifier
	events  audit.Recorder
	metrics *metrics.GateMetrics
	logger  *logging.Logger
}

// NewGate wires the gate. events and gateMetrics may be nil (no-op).
func NewGate(lists *BlocklistStore, captcha CaptchaVerifier, events audit.Recorder, gateMetrics *metrics.GateMetrics, logger *logging.Logger) *Gate {
	if lists == nil {
		lists = NewBlocklistStore(nil)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Gate{
		lists:   lists,
		captcha: captcha,
		events:  events,
		metrics: gateMetrics,
		logger:  logger,
	}
}

// Inspect runs the pipeline, short-circuiting on hard rejection. The
// returned decision carries the sanitized submission; it is the only thing
// that may be persisted.
func (g *Gate) Inspect(ctx context.Context, raw leads.ContactSubmission, meta RequestMeta) Decision {
	// 1. Honeypot: cheapest check, catches naive bots, runs before
	// everything else regardless of the rest of the payload.
	if strings.TrimSpace(raw.Website) != "" {
		g.record(ctx, audit.EventFormBlocked, meta, audit.Details{
			Reasons: []string{"honeypot_filled"},
			Risk:    string(RiskHigh),
		})
		g.metrics.ObserveDecision("rejected", string(RejectHoneypot))
		g.logger.Info("submission blocked", "stage", "honeypot", "ip", meta.IP)
		return Decision{Kind: RejectHoneypot}
	}

	// 2. Challenge-response verification.
	if err := g.captcha.Verify(ctx, raw.CaptchaToken, meta.IP); err != nil {
		if !errors.Is(err, ErrCaptchaFailed) {
			// Verifier infrastructure error: still terminal for the
			// request, the caller must resubmit.
			g.logger.Error("captcha verification errored", "error", err, "ip", meta.IP)
		}
		g.record(ctx, audit.EventFormBlocked, meta, audit.Details{
			Reasons: []string{"captcha_failed"},
			Risk:    string(RiskHigh),
		})
		g.metrics.ObserveDecision("rejected", string(RejectCaptcha))
		g.logger.Info("submission blocked", "stage", "captcha", "ip", meta.IP)
		return Decision{Kind: RejectCaptcha}
	}

	// 3. Sanitization, unconditional: validation and persistence only ever
	// see cleaned values.
	sub := SanitizeSubmission(raw)
	sub.CaptchaToken = ""
	sub.Website = ""

	// 4. Composite risk validation.
	result := Validate(&sub, &meta, g.lists.Ruleset())
	g.metrics.ObserveRisk(string(result.Risk))
	if !result.Valid {
		g.record(ctx, audit.EventSpamDetected, meta, audit.Details{
			Reasons: result.BlockedReasons,
			Risk:    string(result.Risk),
			Payload: sub,
		})
		g.metrics.ObserveDecision("rejected", string(RejectRisk))
		g.logger.Info("submission blocked", "stage", "risk", "ip", meta.IP, "reasons", result.BlockedReasons)
		return Decision{Kind: RejectRisk, Submission: sub, Result: result}
	}
	if len(result.BlockedReasons) > 0 {
		// Medium-risk advisories on accepted submissions are still
		// recorded for operator review.
		g.record(ctx, advisoryEventType(result.BlockedReasons), meta, audit.Details{
			Reasons: result.BlockedReasons,
			Risk:    string(result.Risk),
			Payload: sub,
		})
	}

	// 5. Schema validation of the sanitized payload.
	if fieldErrs := sub.ValidateSchema(); len(fieldErrs) > 0 {
		reasons := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			reasons = append(reasons, "schema:"+fe.Field)
		}
		g.record(ctx, audit.EventFormBlocked, meta, audit.Details{
			Reasons: reasons,
			Risk:    string(RiskLow),
		})
		g.metrics.ObserveDecision("rejected", string(RejectSchema))
		g.logger.Info("submission blocked", "stage", "schema", "ip", meta.IP, "fields", reasons)
		return Decision{Kind: RejectSchema, Submission: sub, Result: result, FieldErrors: fieldErrs}
	}

	g.metrics.ObserveDecision("accepted", "")
	return Decision{Accepted: true, Submission: sub, Result: result}
}

// advisoryEventType picks the event type for medium-risk flags: email
// signals get their own type, everything else files under spam_detected.
func advisoryEventType(reasons []string) audit.EventType {
	for _, r := range reasons {
		if strings.HasPrefix(r, "email_") || strings.HasPrefix(r, "disposable_email") {
			return audit.EventSuspiciousEmail
		}
	}
	return audit.EventSpamDetected
}

// record appends a security event, best-effort.
func (g *Gate) record(ctx context.Context, typ audit.EventType, meta RequestMeta, details audit.Details) {
	if g.events == nil {
		return
	}
	event := audit.Event{
		Type:      typ,
		SourceIP:  meta.IP,
		UserAgent: meta.UserAgent,
		Details:   details.Marshal(),
	}
	if err := g.events.Record(ctx, event); err != nil {
		g.logger.Error("failed to record security event", "type", typ, "error", err)
	}
}
