package leads

import (
	"net/mail"
	"strings"
)

// ContactSubmission is the raw contact-form payload. It is ephemeral:
// it only becomes a Lead after passing the inbound security gate.
type ContactSubmission struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Company    string `json:"company,omitempty"`
	Service    string `json:"service"`
	Budget     string `json:"budget"`
	Timeline   string `json:"timeline"`
	Message    string `json:"message"`
	Newsletter bool   `json:"newsletter"`
	Consent    bool   `json:"consent"`

	// CaptchaToken is the challenge-response token presented by the client.
	CaptchaToken string `json:"captchaToken"`
	// Website is the honeypot field: hidden from humans, must stay empty.
	Website string `json:"website"`
}

// FieldError describes a single schema validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var (
	validServices  = map[string]bool{"web": true, "ia": true, "transformation": true, "audit": true, "other": true}
	validBudgets   = map[string]bool{"less-5k": true, "5k-10k": true, "10k-25k": true, "25k-50k": true, "more-50k": true, "not-defined": true}
	validTimelines = map[string]bool{"asap": true, "1-month": true, "1-3-months": true, "3-6-months": true, "flexible": true}
)

// ValidateSchema checks the (already sanitized) submission against the strict
// field contract: required fields present, enums constrained, email
// well-formed, consent strictly true. It returns every failure, not just the
// first one.
func (s *ContactSubmission) ValidateSchema() []FieldError {
	var errs []FieldError

	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	}
	if strings.TrimSpace(s.Email) == "" {
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	} else if _, err := mail.ParseAddress(s.Email); err != nil {
		errs = append(errs, FieldError{Field: "email", Message: "email is not well-formed"})
	}
	if !validServices[s.Service] {
		errs = append(errs, FieldError{Field: "service", Message: "unknown service"})
	}
	if !validBudgets[s.Budget] {
		errs = append(errs, FieldError{Field: "budget", Message: "unknown budget bracket"})
	}
	if !validTimelines[s.Timeline] {
		errs = append(errs, FieldError{Field: "timeline", Message: "unknown timeline"})
	}
	if strings.TrimSpace(s.Message) == "" {
		errs = append(errs, FieldError{Field: "message", Message: "message is required"})
	}
	if !s.Consent {
		errs = append(errs, FieldError{Field: "consent", Message: "consent must be given"})
	}

	return errs
}
