package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/atelierlumen/leadgate/internal/leads"
)

// RequestMeta carries the per-request network context the checks need.
// CountryCode and ThreatScore come from an upstream edge proxy when one is
// in front of the service; both are optional.
type RequestMeta struct {
	IP          string
	UserAgent   string
	CountryCode string
	ThreatScore int // -1 when the edge did not supply one
}

// check is a single heuristic: pure function of the sanitized submission,
// the request context, and the active ruleset.
type check func(sub *leads.ContactSubmission, meta *RequestMeta, rs *Ruleset) Validation

var allChecks = []check{
	checkIPGeo,
	checkEmailDomain,
	checkNamePattern,
	checkFieldLinks,
	checkMessageLinks,
	checkSpamKeywords,
	checkMessageLength,
}

// Validate runs every heuristic against the sanitized submission and merges
// the verdicts: risk-max, reason-concat. The submission is rejected exactly
// when the merged risk is high.
func Validate(sub *leads.ContactSubmission, meta *RequestMeta, rs *Ruleset) Validation {
	verdicts := make([]Validation, 0, len(allChecks))
	for _, c := range allChecks {
		verdicts = append(verdicts, c(sub, meta, rs))
	}
	return Merge(verdicts...)
}

// checkIPGeo blocks on edge-supplied country or threat score; without edge
// data it falls back to a first-octet prefix heuristic. The fallback is
// coarse and acknowledged approximate, so it never rates above medium.
func checkIPGeo(sub *leads.ContactSubmission, meta *RequestMeta, rs *Ruleset) Validation {
	if meta.CountryCode != "" && rs.blockedCountries[strings.ToUpper(meta.CountryCode)] {
		return flag(RiskHigh, "blocked_country:"+strings.ToUpper(meta.CountryCode))
	}
	if meta.ThreatScore > rs.threatScoreLimit {
		return flag(RiskHigh, fmt.Sprintf("threat_score:%d", meta.ThreatScore))
	}
	if meta.CountryCode == "" && meta.ThreatScore < 0 {
		if octet := firstOctet(meta.IP); octet != "" {
			if region, ok := rs.suspectPrefixes[octet]; ok {
				return flag(RiskMedium, "suspect_ip_range:"+region)
			}
		}
	}
	return ok()
}

func firstOctet(ip string) string {
	dot := strings.IndexByte(ip, '.')
	if dot <= 0 {
		return ""
	}
	return ip[:dot]
}

// checkEmailDomain rejects disposable-mail providers and flags
// sub-addressing in the local part.
func checkEmailDomain(sub *leads.ContactSubmission, meta *RequestMeta, rs *Ruleset) Validation {
	local, domain, found := splitEmail(sub.Email)
	if !found {
		return ok() // schema validation reports the malformed address
	}
	if rs.disposableDomains[domain] {
		return flag(RiskHigh, "disposable_email_domain:"+domain)
	}
	if strings.Contains(local, "+") {
		return flag(RiskMedium, "email_subaddressing")
	}
	return ok()
}

func splitEmail(email string) (local, domain string, found bool) {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "", "", false
	}
	return strings.ToLower(email[:at]), strings.ToLower(email[at+1:]), true
}

var trailingDigitsRe = regexp.MustCompile(`\d{3,}$`)

// checkNamePattern flags generic throwaway names outright. When the email
// already looks suspect, it also flags a name whose first letters mirror
// the email local part, a signature of form-filling bots. The precondition
// avoids false positives on legitimate matching name/email pairs.
func checkNamePattern(sub *leads.ContactSubmission, meta *RequestMeta, rs *Ruleset) Validation {
	name := normalizeIdent(sub.Name)
	if rs.genericNames[name] {
		return flag(RiskHigh, "generic_name:"+name)
	}

	local, domain, found := splitEmail(sub.Email)
	if !found {
		return ok()
	}

	suspectEmail := rs.disposableDomains[domain] ||
		strings.Contains(local, "temp") ||
		strings.Contains(local, "test") ||
		trailingDigitsRe.MatchString(local)
	if !suspectEmail {
		return ok()
	}

	normalizedLocal := normalizeIdent(local)
	if len(name) >= 4 && len(normalizedLocal) >= 4 &&
		name[:4] == normalizedLocal[:4] && name != normalizedLocal {
		return flag(RiskHigh, "automated_pattern")
	}
	return ok()
}

// normalizeIdent lowercases and keeps alphanumerics only, so "Jean Dupont"
// and "jean.dupont42" compare on their letters and digits.
var nonIdentRe = regexp.MustCompile(`[^a-z0-9]`)

func normalizeIdent(s string) string {
	return nonIdentRe.ReplaceAllString(strings.ToLower(s), "")
}

var urlRe = regexp.MustCompile(`(?i)(https?://\S+|www\.[^\s]+|\b[a-z0-9][a-z0-9-]*\.(?:com|net|org|io|fr|ru|cn|info|biz|xyz|online|site)\b)`)

// checkFieldLinks rejects URLs in fields that should never contain them.
func checkFieldLinks(sub *leads.ContactSubmission, meta *RequestMeta, rs *Ruleset) Validation {
	var verdicts []Validation
	if urlRe.MatchString(sub.Name) {
		verdicts = append(verdicts, flag(RiskHigh, "link_in_name"))
	}
	if urlRe.MatchString(sub.Company) {
		verdicts = append(verdicts, flag(RiskHigh, "link_in_company"))
	}
	if len(verdicts) == 0 {
		return ok()
	}
	return Merge(verdicts...)
}

// checkMessageLinks counts URL-like tokens in the message: more than two is
// blocking, one or two is an advisory.
func checkMessageLinks(sub *leads.ContactSubmission, meta *RequestMeta, rs *Ruleset) Validation {
	count := len(urlRe.FindAllString(sub.Message, -1))
	switch {
	case count > 2:
		return flag(RiskHigh, fmt.Sprintf("too_many_links:%d", count))
	case count > 0:
		return flag(RiskMedium, fmt.Sprintf("contains_links:%d", count))
	}
	return ok()
}

// checkSpamKeywords matches the message against the multilingual keyword
// list, case-insensitively.
func checkSpamKeywords(sub *leads.ContactSubmission, meta *RequestMeta, rs *Ruleset) Validation {
	message := strings.ToLower(sub.Message)
	for _, kw := range rs.spamKeywords {
		if strings.Contains(message, kw) {
			return flag(RiskHigh, "spam_keyword:"+kw)
		}
	}
	return ok()
}

const (
	minMessageLength = 10
	maxMessageLength = 2000
)

// checkMessageLength flags suspiciously short or long messages.
func checkMessageLength(sub *leads.ContactSubmission, meta *RequestMeta, rs *Ruleset) Validation {
	n := len([]rune(sub.Message))
	if n < minMessageLength {
		return flag(RiskMedium, "message_too_short")
	}
	if n > maxMessageLength {
		return flag(RiskMedium, "message_too_long")
	}
	return ok()
}
