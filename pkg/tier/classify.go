package tier

import "strings"

// Bucket is one of the weekly-summary sections a daily file can be
// classified into.
type Bucket string

const (
	// BucketDecision collects texts recording decisions.
	BucketDecision Bucket = "decision"

	// BucketPreference collects texts stating preferences.
	BucketPreference Bucket = "preference"

	// BucketAction collects texts carrying action items.
	BucketAction Bucket = "action"
)

// Classifier assigns consolidation buckets to a text. Implementations
// return buckets in priority order; consolidation uses the first. The
// interface exists so the keyword heuristic can be swapped without
// touching lifecycle logic.
type Classifier interface {
	Classify(text string) []Bucket
}

// KeywordClassifier classifies by fixed substring sets, first match wins:
// decision ("[decision]", "decided"), preference ("prefer", "like"),
// action ("[action]", "make sure").
type KeywordClassifier struct {
	decision   []string
	preference []string
	action     []string
}

// NewKeywordClassifier returns the default keyword classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		decision:   []string{"[decision]", "decided"},
		preference: []string{"prefer", "like"},
		action:     []string{"[action]", "make sure"},
	}
}

// Classify returns at most one bucket: the first whose keyword set
// matches the lowercased text, checked decision, preference, action.
func (c *KeywordClassifier) Classify(text string) []Bucket {
	lower := strings.ToLower(text)
	if containsAny(lower, c.decision) {
		return []Bucket{BucketDecision}
	}
	if containsAny(lower, c.preference) {
		return []Bucket{BucketPreference}
	}
	if containsAny(lower, c.action) {
		return []Bucket{BucketAction}
	}
	return nil
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
