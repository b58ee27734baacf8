package scoring

// Tier is an accuracy bucket.
type Tier string

// Feedback tiers, plus the degenerate unintelligible case.
const (
	TierUnintelligible   Tier = "unintelligible"
	TierExcellent        Tier = "excellent"
	TierGood             Tier = "good"
	TierNeedsImprovement Tier = "needs_improvement"
)

// Tier boundaries. Both comparisons are strict: exactly 95 is "good" and
// exactly 90 is "needs improvement".
const (
	excellentAbove = 95.0
	goodAbove      = 90.0
)

// Messages is one row of the feedback table.
type Messages struct {
	Unintelligible   string
	Excellent        string
	Good             string
	NeedsImprovement string
}

// For returns the message for tier t.
func (m Messages) For(t Tier) string {
	switch t {
	case TierExcellent:
		return m.Excellent
	case TierGood:
		return m.Good
	case TierNeedsImprovement:
		return m.NeedsImprovement
	default:
		return m.Unintelligible
	}
}

// complete reports whether every tier has a message.
func (m Messages) complete() bool {
	return m.Unintelligible != "" && m.Excellent != "" && m.Good != "" && m.NeedsImprovement != ""
}

var englishMessages = Messages{ //nolint:gochecknoglobals // immutable lookup table
	Unintelligible:   "Could not understand. Please try again.",
	Excellent:        "🌟 Excellent pronunciation! Perfectly said!",
	Good:             "Good, but needs slight improvement:",
	NeedsImprovement: "Needs improvement:",
}

var arabicMessages = Messages{ //nolint:gochecknoglobals // immutable lookup table
	Unintelligible:   "لم أتمكن من الفهم. حاول مرة أخرى",
	Excellent:        "🌟 ممتاز! النطق واضح وصحيح تمامًا",
	Good:             "جيد، ولكن يحتاج تحسينًا بسيطًا:",
	NeedsImprovement: "يحتاج تحسينًا:",
}

// Classify picks the tier for an accuracy score. Empty target or actual text
// is always unintelligible regardless of accuracy.
func Classify(target, actual string, accuracy float64) Tier {
	switch {
	case target == "" || actual == "":
		return TierUnintelligible
	case accuracy > excellentAbove:
		return TierExcellent
	case accuracy > goodAbove:
		return TierGood
	default:
		return TierNeedsImprovement
	}
}

// Feedback returns the message for the tier the inputs fall into. The two
// lower tiers yield only their prefix; no character-level diff is appended.
func (e *Engine) Feedback(target, actual string, accuracy float64, lang Language) string {
	return e.messages(lang).For(Classify(target, actual, accuracy))
}
