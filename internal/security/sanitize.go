package security

import (
	"regexp"
	"strings"

	"github.com/atelierlumen/leadgate/internal/leads"
)

const maxFieldLength = 1000

var (
	scriptBlockRe  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	jsProtocolRe   = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerRe = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	angleBracketRe = regexp.MustCompile(`[<>]`)
)

// stripPass runs every pattern once, in order.
func stripPass(s string) string {
	s = scriptBlockRe.ReplaceAllString(s, "")
	s = jsProtocolRe.ReplaceAllString(s, "")
	s = eventHandlerRe.ReplaceAllString(s, "")
	s = angleBracketRe.ReplaceAllString(s, "")
	return s
}

// SanitizeText cleans one free-text form field: trim, strip script blocks,
// javascript: prefixes, inline event handlers and angle brackets, then
// truncate. The whole strip pipeline loops to a fixed point: a single pass
// is not enough, because removing one match can splice surrounding text
// into a new match for the same or a later pattern ("jjavascript:avascript:"
// collapses to "javascript:", "java<>script:" to "javascript:").
// Idempotent: sanitizing already-sanitized text is a no-op.
func SanitizeText(s string) string {
	s = strings.TrimSpace(s)
	for {
		next := stripPass(s)
		if next == s {
			break
		}
		s = next
	}
	if runes := []rune(s); len(runes) > maxFieldLength {
		s = string(runes[:maxFieldLength])
	}
	return strings.TrimSpace(s)
}

// SanitizeSubmission returns a copy of the submission with every free-text
// field cleaned. Runs before any validation logic sees the data; the
// sanitized values are what get validated and persisted.
func SanitizeSubmission(sub leads.ContactSubmission) leads.ContactSubmission {
	sub.Name = SanitizeText(sub.Name)
	sub.Email = SanitizeText(sub.Email)
	sub.Company = SanitizeText(sub.Company)
	sub.Message = SanitizeText(sub.Message)
	return sub
}
