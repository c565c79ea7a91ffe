// Package significance decides whether conversational turns are memory-worthy.
//
// The filter is a pure predicate: it never transforms content, it only
// answers keep/discard for a role-tagged text turn.
package significance

import (
	"strings"
	"time"
)

// Role identifies the speaker of a conversational turn.
type Role string

const (
	// RoleUser marks a turn authored by the human operator.
	RoleUser Role = "user"

	// RoleAssistant marks a turn authored by the assistant.
	RoleAssistant Role = "assistant"
)

// Turn is one timestamped, role-tagged unit of conversation, as handed
// over by the transcript source. This package never parses raw
// transcript formats.
type Turn struct {
	// Role is the speaker role (user or assistant).
	Role Role `json:"role"`

	// Text is the raw turn content.
	Text string `json:"text"`

	// Timestamp is the time-zone aware instant of the turn.
	Timestamp time.Time `json:"timestamp"`
}

// MinContentLength is the minimum number of characters a turn must have
// to stand alone as a memory.
const MinContentLength = 50

// defaultNoiseMarkers flag machinery rather than conversation: heartbeat
// pings, system boilerplate, and raw JSON payloads.
var defaultNoiseMarkers = []string{
	"HEARTBEAT_OK",
	"Read HEARTBEAT.md",
	"system:",
	"{",
}

// Filter decides whether a conversational turn should be retained.
//
// Rules are applied in order:
//  1. discard if the role is neither user nor assistant
//  2. discard if the content contains any noise marker
//  3. discard if the content is shorter than the minimum length
//
// A zero-value Filter is not usable; construct one with NewFilter.
type Filter struct {
	noiseMarkers []string
	minLength    int
}

// NewFilter creates a Filter with the default noise markers and minimum
// content length.
func NewFilter() *Filter {
	return &Filter{
		noiseMarkers: defaultNoiseMarkers,
		minLength:    MinContentLength,
	}
}

// Keep reports whether the turn is memory-worthy.
func (f *Filter) Keep(turn Turn) bool {
	if turn.Role != RoleUser && turn.Role != RoleAssistant {
		return false
	}
	for _, marker := range f.noiseMarkers {
		if strings.Contains(turn.Text, marker) {
			return false
		}
	}
	if len(turn.Text) < f.minLength {
		return false
	}
	return true
}
