// Package ledger maintains the durable tracking state for the memory
// lifecycle: per-day entry summaries, the weekly-summary registry, the
// entity quarantine list, validated entities, and access logs.
//
// The ledger is the source of truth for all lifecycle decisions. It is
// loaded once per invocation, mutated in memory, and persisted with a
// single write-temp-then-rename at the end of the operation.
package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// summaryContentCap bounds the stored preview of each daily entry.
const summaryContentCap = 100

// EntrySummary is the ledger's record of one entry appended to a daily file.
type EntrySummary struct {
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	Importance string    `json:"importance"`
	Timestamp  time.Time `json:"timestamp"`
}

// ConsolidationRecord registers one weekly consolidation run.
type ConsolidationRecord struct {
	File                string    `json:"file"`
	EntriesConsolidated int       `json:"entries_consolidated"`
	Timestamp           time.Time `json:"timestamp"`
}

// QuarantineRecord is a candidate entity awaiting validation.
type QuarantineRecord struct {
	Name             string    `json:"name"`
	File             string    `json:"file"`
	DiscoveryContext string    `json:"discovery_context,omitempty"`
	DiscoveredAt     time.Time `json:"discovered_at"`
	Status           string    `json:"status"`
}

// EntityRecord is a validated entity promoted out of quarantine.
type EntityRecord struct {
	Name        string    `json:"name"`
	File        string    `json:"file"`
	Collection  string    `json:"collection"`
	Keywords    []string  `json:"keywords,omitempty"`
	ValidatedAt time.Time `json:"validated_at"`
}

// AccessLog records one lifecycle operation against the store.
type AccessLog struct {
	Operation string    `json:"operation"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Ledger is the process-wide durable tracking state.
//
// All mutators are safe for concurrent use within one process; cross-process
// serialization is enforced externally (at most one mutating invocation at
// a time).
type Ledger struct {
	AccessLogs        []AccessLog                    `json:"access_logs"`
	MemoryMetrics     map[string]int                 `json:"memory_metrics"`
	LastConsolidation *time.Time                     `json:"last_consolidation"`
	DailyFiles        map[string][]EntrySummary      `json:"daily_files"`
	WeeklySummaries   map[string]ConsolidationRecord `json:"weekly_summaries"`
	Quarantine        []QuarantineRecord             `json:"quarantine"`
	ValidatedEntities []EntityRecord                 `json:"validated_entities"`

	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// Load reads the ledger from path.
//
// A missing file yields a fresh ledger. A malformed file also yields a
// fresh ledger with a warning: parse failures are never fatal, per the
// batch failure policy. Only I/O errors other than not-exist are returned.
func Load(path string, logger *zap.Logger) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	led := fresh(path, logger)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return led, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, led); err != nil {
		logger.Warn("ledger file is malformed, starting fresh",
			zap.String("path", path),
			zap.Error(err))
		return fresh(path, logger), nil
	}

	// Older ledgers may omit maps entirely.
	led.ensureShape()
	return led, nil
}

func fresh(path string, logger *zap.Logger) *Ledger {
	return &Ledger{
		AccessLogs:        []AccessLog{},
		MemoryMetrics:     map[string]int{},
		DailyFiles:        map[string][]EntrySummary{},
		WeeklySummaries:   map[string]ConsolidationRecord{},
		Quarantine:        []QuarantineRecord{},
		ValidatedEntities: []EntityRecord{},
		path:              path,
		logger:            logger,
	}
}

func (l *Ledger) ensureShape() {
	if l.MemoryMetrics == nil {
		l.MemoryMetrics = map[string]int{}
	}
	if l.DailyFiles == nil {
		l.DailyFiles = map[string][]EntrySummary{}
	}
	if l.WeeklySummaries == nil {
		l.WeeklySummaries = map[string]ConsolidationRecord{}
	}
	if l.Quarantine == nil {
		l.Quarantine = []QuarantineRecord{}
	}
	if l.ValidatedEntities == nil {
		l.ValidatedEntities = []EntityRecord{}
	}
}

// Save persists the ledger atomically: marshal, write to a temp file in
// the same directory, then rename over the target. A failure here must be
// treated as fatal to the calling operation.
func (l *Ledger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, l.path)
}

// RecordAccess appends an access-log entry.
func (l *Ledger) RecordAccess(operation, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.AccessLogs = append(l.AccessLogs, AccessLog{
		Operation: operation,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}

// RecordDailyEntry registers one appended entry under its calendar date
// and bumps the per-day metric. The stored content is capped to a short
// preview; full content lives only in the tier file.
func (l *Ledger) RecordDailyEntry(date string, s EntrySummary) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(s.Content) > summaryContentCap {
		s.Content = s.Content[:summaryContentCap]
	}
	l.DailyFiles[date] = append(l.DailyFiles[date], s)
	l.MemoryMetrics[date]++
}

// RecordConsolidation registers a weekly consolidation and stamps the
// last-consolidation time. Re-consolidating the same week overwrites the
// prior record.
func (l *Ledger) RecordConsolidation(weekLabel string, rec ConsolidationRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.WeeklySummaries[weekLabel] = rec
	now := rec.Timestamp
	l.LastConsolidation = &now
}

// IsPending reports whether name is currently quarantined.
func (l *Ledger) IsPending(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, q := range l.Quarantine {
		if q.Name == name {
			return true
		}
	}
	return false
}

// IsValidated reports whether name has been promoted to a durable entity.
func (l *Ledger) IsValidated(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.ValidatedEntities {
		if e.Name == name {
			return true
		}
	}
	return false
}

// AddQuarantine appends a pending record. Callers are responsible for
// idempotency checks via IsPending.
func (l *Ledger) AddQuarantine(rec QuarantineRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Quarantine = append(l.Quarantine, rec)
}

// RemoveQuarantine removes the pending record for name, returning the
// removed record and whether it existed.
func (l *Ledger) RemoveQuarantine(name string) (QuarantineRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, q := range l.Quarantine {
		if q.Name == name {
			l.Quarantine = append(l.Quarantine[:i], l.Quarantine[i+1:]...)
			return q, true
		}
	}
	return QuarantineRecord{}, false
}

// AddValidated appends a validated entity record.
func (l *Ledger) AddValidated(rec EntityRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ValidatedEntities = append(l.ValidatedEntities, rec)
}

// PendingRecords returns a copy of the quarantine list.
func (l *Ledger) PendingRecords() []QuarantineRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]QuarantineRecord, len(l.Quarantine))
	copy(out, l.Quarantine)
	return out
}

// ValidatedRecords returns a copy of the validated-entity list.
func (l *Ledger) ValidatedRecords() []EntityRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EntityRecord, len(l.ValidatedEntities))
	copy(out, l.ValidatedEntities)
	return out
}
