// Package quarantine manages candidate entities: discovery from free
// text, a holding area pending validation, and promotion into durable
// entity records.
//
// The state machine per entity name is absent → pending → validated,
// with pending → absent on explicit rejection. A name is present in at
// most one of {quarantine, validated} at a time.
package quarantine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/memorybrain/pkg/ledger"
)

// ErrNotFound is returned when validating or rejecting a name that has
// no pending quarantine record.
var ErrNotFound = errors.New("entity not in quarantine")

// entityPattern matches two to four consecutive capitalized tokens.
var entityPattern = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,3})\b`)

// stopWords excludes phrases opening with common sentence starters.
var stopWords = map[string]struct{}{
	"I": {}, "We": {}, "You": {}, "He": {}, "She": {}, "It": {}, "They": {},
	"The": {}, "A": {}, "An": {}, "This": {}, "That": {}, "These": {}, "Those": {},
	"When": {}, "Where": {}, "How": {}, "Why": {},
}

// Manager owns the quarantine and durable entity areas on disk and the
// quarantine/validated lists in the tracking ledger.
//
// Manager mutates the ledger in memory only; the caller persists the
// ledger once at the end of the operation (single atomic write).
type Manager struct {
	quarantineDir     string
	entitiesDir       string
	led               *ledger.Ledger
	defaultCollection string
	logger            *zap.Logger
}

// NewManager creates a Manager storing quarantined records under
// entitiesDir/_quarantine and validated records under entitiesDir.
func NewManager(entitiesDir, defaultCollection string, led *ledger.Ledger, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		quarantineDir:     filepath.Join(entitiesDir, "_quarantine"),
		entitiesDir:       entitiesDir,
		led:               led,
		defaultCollection: defaultCollection,
		logger:            logger,
	}
	for _, d := range []string{m.entitiesDir, m.quarantineDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Discover extracts candidate entity names from text: capitalized
// phrases of two to four tokens, excluding sentence-starter phrases and
// names already pending or validated. The result is deduplicated in
// first-seen order.
//
// Discover is a candidate generator only; nothing is auto-promoted.
func (m *Manager) Discover(text string) []string {
	seen := map[string]struct{}{}
	var out []string

	for _, match := range entityPattern.FindAllString(text, -1) {
		first := strings.Fields(match)[0]
		if _, stop := stopWords[first]; stop {
			continue
		}
		if _, dup := seen[match]; dup {
			continue
		}
		seen[match] = struct{}{}
		if m.led.IsPending(match) || m.led.IsValidated(match) {
			continue
		}
		out = append(out, match)
	}
	return out
}

// Quarantine places name into the pending state, writing a
// human-readable record with a validation checklist and registering it
// in the ledger. Idempotent on name: quarantining an already-pending
// name returns the existing record.
func (m *Manager) Quarantine(name, context string) (ledger.QuarantineRecord, error) {
	if m.led.IsPending(name) {
		for _, rec := range m.led.PendingRecords() {
			if rec.Name == name {
				return rec, nil
			}
		}
	}

	path := filepath.Join(m.quarantineDir, slug(name)+".md")
	if context == "" {
		context = "Discovered during conversation."
	}

	now := time.Now()
	content := fmt.Sprintf(`# %s (IN QUARANTINE)

*Discovered: %s*
*Status: PENDING VALIDATION*

## Context

%s

## Keywords

- %s
- %s

## Validation

- [ ] Confirm entity exists
- [ ] Determine entity type (person, project, topic)
- [ ] Add to appropriate collection

---

*Auto-generated. Must be validated before promotion.*
`, name, now.Format("2006-01-02 15:04"), context, name, slug(name))

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return ledger.QuarantineRecord{}, err
	}

	rec := ledger.QuarantineRecord{
		Name:             name,
		File:             path,
		DiscoveryContext: context,
		DiscoveredAt:     now.UTC(),
		Status:           "pending",
	}
	m.led.AddQuarantine(rec)
	return rec, nil
}

// Validate promotes a pending entity into the durable entity area.
//
// The record file is rewritten as validated with the target collection,
// keywords and timestamp appended, moved out of the quarantine
// directory, removed from the ledger's quarantine list and appended to
// its validated list. Fails with ErrNotFound if name has no pending
// record.
//
// The file move and the ledger update are not transactional: a crash
// between the two can leave a record duplicated or orphaned. Accepted
// gap for a single-operator tool.
func (m *Manager) Validate(name, targetCollection string, keywords []string) (ledger.EntityRecord, error) {
	src := filepath.Join(m.quarantineDir, slug(name)+".md")

	data, err := os.ReadFile(src)
	if os.IsNotExist(err) {
		return ledger.EntityRecord{}, ErrNotFound
	}
	if err != nil {
		return ledger.EntityRecord{}, err
	}
	if !m.led.IsPending(name) {
		return ledger.EntityRecord{}, ErrNotFound
	}

	if targetCollection == "" {
		targetCollection = m.defaultCollection
	}

	now := time.Now()
	content := strings.Replace(string(data), "(IN QUARANTINE)", "(VALIDATED)", 1)
	content += "\n## Validation Details\n"
	content += fmt.Sprintf("- Validated: %s\n", now.Format(time.RFC3339))
	content += fmt.Sprintf("- Target Collection: %s\n", targetCollection)
	if len(keywords) > 0 {
		content += fmt.Sprintf("- Keywords: %s\n", strings.Join(keywords, ", "))
	}

	dest := filepath.Join(m.entitiesDir, slug(name)+".md")
	if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
		return ledger.EntityRecord{}, err
	}
	if err := os.Remove(src); err != nil {
		return ledger.EntityRecord{}, err
	}

	m.led.RemoveQuarantine(name)
	rec := ledger.EntityRecord{
		Name:        name,
		File:        dest,
		Collection:  targetCollection,
		Keywords:    keywords,
		ValidatedAt: now.UTC(),
	}
	m.led.AddValidated(rec)
	return rec, nil
}

// Reject discards a pending entity: the quarantine record is removed
// from disk and from the ledger (pending → absent). Fails with
// ErrNotFound if name has no pending record.
func (m *Manager) Reject(name string) error {
	if _, ok := m.led.RemoveQuarantine(name); !ok {
		return ErrNotFound
	}
	path := filepath.Join(m.quarantineDir, slug(name)+".md")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns the pending quarantine records.
func (m *Manager) List() []ledger.QuarantineRecord {
	return m.led.PendingRecords()
}

// slug converts an entity name into its record filename stem.
func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
