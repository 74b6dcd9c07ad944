package leads

import "sort"

// Score buckets used by the dashboard for prioritization.
const (
	HotThreshold  = 70
	WarmThreshold = 40
)

// Signal weights. Unweighted sum, maximum attainable is 85
// (30 + 20 + 10 + 15 + 10), so the clamp below never fires today.
const (
	pointsBudgetMore50k  = 30
	pointsBudget25kTo50k = 25
	pointsBudget10kTo25k = 15
	pointsTimelineASAP   = 20
	pointsTimelineMonth  = 15
	pointsCompany        = 10
	pointsLongMessage    = 15
	pointsPhone          = 10

	longMessageChars = 100
)

// Score computes the 0-100 lead quality score. Pure function of the lead's
// fields: no side effects, no persistence, recomputed on every listing.
func Score(l *Lead) int {
	score := 0

	switch l.Budget {
	case BudgetMore50k:
		score += pointsBudgetMore50k
	case Budget25kTo50k:
		score += pointsBudget25kTo50k
	case Budget10kTo25k:
		score += pointsBudget10kTo25k
	}

	switch l.Timeline {
	case TimelineASAP:
		score += pointsTimelineASAP
	case TimelineOneMonth:
		score += pointsTimelineMonth
	}

	if l.Company != "" {
		score += pointsCompany
	}
	if len([]rune(l.Message)) > longMessageChars {
		score += pointsLongMessage
	}
	if l.Phone != "" {
		score += pointsPhone
	}

	if score > 100 {
		score = 100
	}
	return score
}

// Bucket maps a score to its dashboard temperature bucket.
func Bucket(score int) string {
	switch {
	case score >= HotThreshold:
		return "hot"
	case score >= WarmThreshold:
		return "warm"
	default:
		return "cold"
	}
}

// ScoredLead is a lead annotated with its computed score for listing.
type ScoredLead struct {
	*Lead
	Score  int    `json:"score"`
	Bucket string `json:"bucket"`
}

// Annotate scores every lead and returns them sorted by score descending.
// Ties keep the newer lead first.
func Annotate(list []*Lead) []ScoredLead {
	out := make([]ScoredLead, 0, len(list))
	for _, l := range list {
		s := Score(l)
		out = append(out, ScoredLead{Lead: l, Score: s, Bucket: Bucket(s)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
