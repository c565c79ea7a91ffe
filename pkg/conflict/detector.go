// Package conflict scans retrieval results for pairs of memories that
// look contradictory and formats a clarifying question instead of
// guessing which one is current.
package conflict

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/openclaw/memorybrain/pkg/retrieval"
	"github.com/openclaw/memorybrain/pkg/vector"
)

// ResolutionAskUser marks a conflict the system refuses to resolve on
// its own. Contradictory memories are surfaced, never auto-merged.
const ResolutionAskUser = "ASK_USER"

// indicatorGroups are the lexical signals of a stated choice or
// reversal. Two differing memories matching the SAME group are treated
// as a potential contradiction.
var indicatorGroups = [][]string{
	{"use", "prefer", "instead"},
	{"instead of", "not", "rather than"},
	{"actually", "really"},
	{"change", "update", "switch"},
}

// Conflict is one detected pair of potentially contradictory memories.
type Conflict struct {
	Memory1     string  `json:"memory_1"`
	Memory2     string  `json:"memory_2"`
	Collection1 string  `json:"collection_1"`
	Collection2 string  `json:"collection_2"`
	Score1      float64 `json:"score_1"`
	Score2      float64 `json:"score_2"`

	// ConflictType is always "contradiction" for the lexical detector.
	ConflictType string `json:"conflict_type"`

	// Resolution is always ResolutionAskUser.
	Resolution string `json:"resolution"`
}

// Detector finds contradictions among the memories a query retrieves.
type Detector struct {
	router *retrieval.Router
	logger *zap.Logger
}

// NewDetector creates a Detector over the given retrieval router.
func NewDetector(router *retrieval.Router, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{router: router, logger: logger}
}

// Detect retrieves up to limit memories for query and scans every pair
// for contradiction: both texts match the same indicator group and the
// texts differ. Identical texts never conflict with themselves.
func (d *Detector) Detect(ctx context.Context, query string, limit int) ([]Conflict, error) {
	res, err := d.router.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	conflicts := Scan(res.Vectors)
	if len(conflicts) > 0 {
		d.logger.Info("potential memory conflicts detected",
			zap.String("query", query), zap.Int("count", len(conflicts)))
	}
	return conflicts, nil
}

// Scan runs the pairwise contradiction check over already-retrieved
// memories.
func Scan(hits []vector.Scored) []Conflict {
	var out []Conflict
	for i := 0; i < len(hits); i++ {
		for j := i + 1; j < len(hits); j++ {
			a, b := hits[i], hits[j]
			if a.Payload.Content == b.Payload.Content {
				continue
			}
			if !sameGroupMatch(a.Payload.Content, b.Payload.Content) {
				continue
			}
			out = append(out, Conflict{
				Memory1:      a.Payload.Content,
				Memory2:      b.Payload.Content,
				Collection1:  a.Collection,
				Collection2:  b.Collection,
				Score1:       a.Score,
				Score2:       b.Score,
				ConflictType: "contradiction",
				Resolution:   ResolutionAskUser,
			})
		}
	}
	return out
}

// sameGroupMatch reports whether both texts contain an indicator from
// the same group.
func sameGroupMatch(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	for _, group := range indicatorGroups {
		if containsAny(la, group) && containsAny(lb, group) {
			return true
		}
	}
	return false
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// Question formats the clarifying question for the first conflict, with
// each memory previewed at up to 100 characters. Returns "" when there
// are no conflicts.
func Question(conflicts []Conflict) string {
	if len(conflicts) == 0 {
		return ""
	}
	c := conflicts[0]
	return fmt.Sprintf(
		"I have two memories that might conflict:\n1. %q\n2. %q\nWhich one is current? Or are both true?",
		preview(c.Memory1, 100), preview(c.Memory2, 100))
}

func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
