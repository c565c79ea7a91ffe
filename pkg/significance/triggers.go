package significance

import (
	"regexp"
	"strings"
)

// Trigger is an explicit memory request detected in free text, such as
// "remember this: the demo is on Friday".
type Trigger struct {
	// Content is the text captured after the trigger phrase.
	Content string

	// Importance is the importance level implied by the trigger phrase
	// (normal, high, action, decision, long-term).
	Importance string

	// Category is the memory category implied by the trigger phrase
	// (decision, action, important, general).
	Category string
}

type triggerPattern struct {
	re         *regexp.Regexp
	importance string
}

// Trigger phrases and the importance each one implies.
var triggerPatterns = []triggerPattern{
	{regexp.MustCompile(`(?i)remember this[:\s]+(.+)`), "normal"},
	{regexp.MustCompile(`(?i)don't forget[:\s]+(.+)`), "high"},
	{regexp.MustCompile(`(?i)make sure to[:\s]+(.+)`), "action"},
	{regexp.MustCompile(`(?i)we decided[:\s]+(.+)`), "decision"},
	{regexp.MustCompile(`(?i)this is important[:\s]+(.+)`), "high"},
	{regexp.MustCompile(`(?i)for future reference[:\s]+(.+)`), "long-term"},
}

// DetectTrigger scans text for an explicit memory trigger phrase.
//
// Returns nil if no trigger phrase is present. The first matching
// pattern wins; patterns are tried in a fixed order.
func DetectTrigger(text string) *Trigger {
	for _, p := range triggerPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		return &Trigger{
			Content:    strings.TrimSpace(m[1]),
			Importance: p.importance,
			Category:   categoryForImportance(p.importance),
		}
	}
	return nil
}

// categoryForImportance maps a trigger importance level onto the memory
// category used by the tiered store.
func categoryForImportance(importance string) string {
	switch importance {
	case "decision":
		return "decision"
	case "action":
		return "action"
	case "high":
		return "important"
	default:
		return "general"
	}
}
