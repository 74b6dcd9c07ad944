// Package security implements the inbound gate for contact-form
// submissions: honeypot and challenge-response checks, input
// sanitization, and a pipeline of heuristic risk validators whose
// verdicts are merged into a single accept/reject decision.
package security

// Risk is the severity of a validation finding.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

func (r Risk) level() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

func maxRisk(a, b Risk) Risk {
	if b.level() > a.level() {
		return b
	}
	return a
}

// Validation is the verdict of a single check or of the merged composite.
// Invariant: Valid == (Risk != high). BlockedReasons is non-empty whenever
// Valid is false and may be non-empty when Valid is true (medium advisories).
type Validation struct {
	Valid          bool     `json:"isValid"`
	Risk           Risk     `json:"risk"`
	BlockedReasons []string `json:"blockedReasons"`
}

// ok is the clean verdict.
func ok() Validation {
	return Validation{Valid: true, Risk: RiskLow}
}

// flag builds a verdict at the given risk with one reason. The Valid field
// is derived from the risk, never set independently.
func flag(risk Risk, reason string) Validation {
	return Validation{
		Valid:          risk != RiskHigh,
		Risk:           risk,
		BlockedReasons: []string{reason},
	}
}

// Merge folds verdicts together: risk takes the maximum, reasons concatenate,
// validity is re-derived from the merged risk.
func Merge(vs ...Validation) Validation {
	merged := ok()
	for _, v := range vs {
		merged.Risk = maxRisk(merged.Risk, v.Risk)
		merged.BlockedReasons = append(merged.BlockedReasons, v.BlockedReasons...)
	}
	merged.Valid = merged.Risk != RiskHigh
	return merged
}
