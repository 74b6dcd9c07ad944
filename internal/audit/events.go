// Package audit records security events from the inbound gate into an
// append-only trail reviewed on the admin dashboard. The gate only ever
// writes; nothing in the decision path reads the trail back.
package audit

import (
	"context"
	"encoding/json"
	"time"
)

// EventType classifies a security event.
type EventType string

const (
	// EventRateLimit is logged when a client exceeds the submission rate limit.
	EventRateLimit EventType = "rate_limit"
	// EventSpamDetected is logged when the composite risk check blocks or flags a submission.
	EventSpamDetected EventType = "spam_detected"
	// EventSuspiciousEmail is logged for medium-risk email signals on accepted submissions.
	EventSuspiciousEmail EventType = "suspicious_email"
	// EventFormBlocked is logged for honeypot, captcha, and schema rejections.
	EventFormBlocked EventType = "form_blocked"
)

// Event is an immutable security audit record.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"event_type"`
	SourceIP  string          `json:"source_ip"`
	UserAgent string          `json:"user_agent"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Details is the free-form payload attached to an event.
type Details struct {
	Reasons []string `json:"reasons,omitempty"`
	Risk    string   `json:"risk,omitempty"`
	Payload any      `json:"payload,omitempty"`
}

// Marshal renders the details for storage. Marshalling a Details value
// cannot fail, so errors are ignored.
func (d Details) Marshal() json.RawMessage {
	raw, _ := json.Marshal(d)
	return raw
}

// Recorder appends security events. Recording is best-effort from the
// gate's point of view: a failure is logged, never surfaced to the client.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}
