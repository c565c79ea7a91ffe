// Package core wires the memory engine together: significance
// filtering, the tiered file store, entity quarantine, conflict
// detection, retrieval routing, indexing and the tracking ledger,
// behind one Brain facade.
//
// Every mutating operation updates the ledger in memory and persists it
// exactly once, atomically, before returning.
package core

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/memorybrain/pkg/conflict"
	"github.com/openclaw/memorybrain/pkg/embedder"
	"github.com/openclaw/memorybrain/pkg/embedder/openai"
	"github.com/openclaw/memorybrain/pkg/index"
	"github.com/openclaw/memorybrain/pkg/ledger"
	"github.com/openclaw/memorybrain/pkg/quarantine"
	"github.com/openclaw/memorybrain/pkg/retrieval"
	"github.com/openclaw/memorybrain/pkg/schedule"
	"github.com/openclaw/memorybrain/pkg/significance"
	"github.com/openclaw/memorybrain/pkg/tier"
	"github.com/openclaw/memorybrain/pkg/vector"
	"github.com/openclaw/memorybrain/pkg/vector/chromem"
	"github.com/openclaw/memorybrain/pkg/vector/postgres"
	"github.com/openclaw/memorybrain/pkg/vector/qdrant"
	"github.com/openclaw/memorybrain/pkg/vector/sqlite"
)

// Brain is the memory engine facade.
type Brain struct {
	cfg    *Config
	logger *zap.Logger

	led      *ledger.Ledger
	files    *tier.Store
	filter   *significance.Filter
	entities *quarantine.Manager
	router   *retrieval.Router
	detector *conflict.Detector
	indexer  *index.Indexer
	store    vector.Store
	emb      embedder.Provider
}

// BrainOption configures Brain construction.
type BrainOption func(*brainSettings)

type brainSettings struct {
	lexicalOnly bool
}

// WithLexicalOnly disables the embedding backend regardless of
// configuration; all retrieval runs the lexical degradation path.
func WithLexicalOnly() BrainOption {
	return func(s *brainSettings) { s.lexicalOnly = true }
}

// NewBrain constructs the engine from cfg. The embedding backend and
// embedder are optional: when either is unavailable or configured off,
// retrieval degrades to lexical-only and indexing is rejected, but
// every file-tier operation works.
func NewBrain(cfg *Config, logger *zap.Logger, opts ...BrainOption) (*Brain, error) {
	if cfg == nil {
		return nil, NewBrainError("new_brain", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var settings brainSettings
	for _, opt := range opts {
		opt(&settings)
	}

	led, err := ledger.Load(cfg.LedgerPath, logger)
	if err != nil {
		return nil, NewBrainError("load_ledger", err)
	}

	files, err := tier.NewStore(cfg.MemoryDir, nil, logger)
	if err != nil {
		return nil, NewBrainError("init_tier_store", err)
	}

	entities, err := quarantine.NewManager(cfg.EntitiesDir, cfg.DefaultCollection, led, logger)
	if err != nil {
		return nil, NewBrainError("init_quarantine", err)
	}

	b := &Brain{
		cfg:      cfg,
		logger:   logger,
		led:      led,
		files:    files,
		filter:   significance.NewFilter(),
		entities: entities,
	}

	if !settings.lexicalOnly {
		b.emb, err = newEmbedder(cfg)
		if err != nil {
			return nil, NewBrainError("init_embedder", err)
		}
		if b.emb != nil {
			b.store, err = newVectorStore(cfg)
			if err != nil {
				// A down backend is a degraded mode, not a startup
				// failure.
				logger.Warn("embedding backend unavailable, running lexical-only",
					zap.String("provider", cfg.Vector.Provider), zap.Error(err))
				b.store = nil
			}
		}
	}

	routerOpts := []retrieval.Option{
		retrieval.WithTimeout(time.Duration(cfg.Retrieval.TimeoutSeconds) * time.Second),
		retrieval.WithWindowDays(cfg.Pruning.DailyFileRetentionDays),
	}
	b.router = retrieval.NewRouter(files, b.store, b.emb, cfg.CollectionNames(), logger, routerOpts...)
	b.detector = conflict.NewDetector(b.router, logger)

	if b.store != nil && b.emb != nil {
		routes := make([]index.Route, len(cfg.Collections))
		for i, col := range cfg.Collections {
			routes[i] = index.Route{Collection: col.Name, Keywords: col.Keywords}
		}
		b.indexer, err = index.NewIndexer(files, cfg.EntitiesDir, b.store, b.emb, routes, cfg.DefaultCollection, logger)
		if err != nil {
			return nil, NewBrainError("init_indexer", err)
		}
	}

	return b, nil
}

func newEmbedder(cfg *Config) (embedder.Provider, error) {
	switch cfg.Embedder.Provider {
	case "", "none":
		return nil, nil
	case "openai":
		return openai.NewClient(cfg.Embedder.OpenAI)
	default:
		return nil, fmt.Errorf("%w: unknown embedder provider %q", ErrInvalidConfig, cfg.Embedder.Provider)
	}
}

func newVectorStore(cfg *Config) (vector.Store, error) {
	switch cfg.Vector.Provider {
	case "", "none":
		return nil, nil
	case "qdrant":
		return qdrant.NewStore(cfg.Vector.Qdrant)
	case "chromem":
		return chromem.NewStore(cfg.Vector.Chromem)
	case "sqlite":
		return sqlite.NewStore(cfg.Vector.SQLite)
	case "postgres":
		return postgres.NewStore(cfg.Vector.Postgres)
	default:
		return nil, fmt.Errorf("%w: unknown vector provider %q", ErrInvalidConfig, cfg.Vector.Provider)
	}
}

// persist writes the ledger; a failed write fails the whole operation.
func (b *Brain) persist(op string) error {
	if err := b.led.Save(); err != nil {
		return NewBrainError(op, fmt.Errorf("%w: %v", ErrLedgerPersist, err))
	}
	return nil
}

// SaveMemory appends content to today's daily file (or the day of an
// explicit timestamp) and registers it in the ledger. Capitalized
// entity names discovered in the content are quarantined as candidates.
//
// Returns the daily file path written.
func (b *Brain) SaveMemory(ctx context.Context, content string, opts ...SaveOption) (string, error) {
	if content == "" {
		return "", NewBrainError("save_memory", fmt.Errorf("%w: empty content", ErrInvalidInput))
	}

	o := SaveOptions{
		Category:   "general",
		Importance: "normal",
		Role:       string(significance.RoleUser),
		Timestamp:  time.Now(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	path, err := b.files.Append(tier.Entry{
		Content:    content,
		Role:       o.Role,
		Category:   o.Category,
		Importance: o.Importance,
		Timestamp:  o.Timestamp,
	})
	if err != nil {
		return "", NewBrainError("save_memory", err)
	}

	b.led.RecordDailyEntry(o.Timestamp.Format(tier.DateLayout), ledger.EntrySummary{
		Content:    content,
		Category:   o.Category,
		Importance: o.Importance,
		Timestamp:  o.Timestamp.UTC(),
	})
	b.led.RecordAccess("save", o.Category)

	for _, name := range b.entities.Discover(content) {
		if _, err := b.entities.Quarantine(name, content); err != nil {
			b.logger.Warn("failed to quarantine discovered entity",
				zap.String("entity", name), zap.Error(err))
		}
	}

	if err := b.persist("save_memory"); err != nil {
		return "", err
	}
	return path, nil
}

// Ingest runs a batch of conversational turns through the significance
// filter and appends the keepers to their daily files. Trigger phrases
// upgrade the entry's category and importance. One bad turn never
// aborts the batch.
func (b *Brain) Ingest(ctx context.Context, turns []significance.Turn) (*IngestReport, error) {
	report := &IngestReport{}
	seenFiles := map[string]struct{}{}

	for _, turn := range turns {
		report.Seen++
		if !b.filter.Keep(turn) {
			report.Skipped++
			continue
		}

		entry := tier.Entry{
			Content:    turn.Text,
			Role:       string(turn.Role),
			Category:   "general",
			Importance: "normal",
			Timestamp:  turn.Timestamp,
		}
		if trig := significance.DetectTrigger(turn.Text); trig != nil {
			entry.Category = trig.Category
			entry.Importance = trig.Importance
		}

		path, err := b.files.Append(entry)
		if err != nil {
			b.logger.Warn("failed to append turn, skipping",
				zap.Time("timestamp", turn.Timestamp), zap.Error(err))
			report.Skipped++
			continue
		}
		report.Kept++
		if _, dup := seenFiles[path]; !dup {
			seenFiles[path] = struct{}{}
			report.Files = append(report.Files, path)
		}

		b.led.RecordDailyEntry(turn.Timestamp.Format(tier.DateLayout), ledger.EntrySummary{
			Content:    turn.Text,
			Category:   entry.Category,
			Importance: entry.Importance,
			Timestamp:  turn.Timestamp.UTC(),
		})
	}

	b.led.RecordAccess("ingest", fmt.Sprintf("kept %d of %d", report.Kept, report.Seen))
	if err := b.persist("ingest"); err != nil {
		return nil, err
	}
	return report, nil
}

// HandleTrigger checks text for an explicit memory trigger phrase and,
// when found, saves the captured content at the trigger's importance.
// Returns (nil, "", nil) when no trigger is present.
func (b *Brain) HandleTrigger(ctx context.Context, text string) (*significance.Trigger, string, error) {
	trig := significance.DetectTrigger(text)
	if trig == nil {
		return nil, "", nil
	}
	path, err := b.SaveMemory(ctx, trig.Content,
		WithCategory(trig.Category), WithImportance(trig.Importance))
	if err != nil {
		return nil, "", err
	}
	return trig, path, nil
}

// Consolidate distills the 7-day window starting at weekStart into a
// weekly summary and registers the run in the ledger. When auto-prune
// is enabled, expired daily files are archived in the same pass.
//
// A window with no daily files returns (nil, nil) and records nothing.
func (b *Brain) Consolidate(ctx context.Context, weekStart time.Time) (*tier.Summary, error) {
	sum, err := b.files.Consolidate(weekStart)
	if err != nil {
		return nil, NewBrainError("consolidate", err)
	}
	if sum == nil {
		return nil, nil
	}

	b.led.RecordConsolidation(sum.WeekLabel, ledger.ConsolidationRecord{
		File:                sum.File,
		EntriesConsolidated: sum.DailyFilesRead,
		Timestamp:           time.Now().UTC(),
	})
	b.led.RecordAccess("consolidate", sum.WeekLabel)

	if b.cfg.Pruning.AutoPruneEnabled {
		res, err := b.files.Prune(b.cfg.Pruning.DailyFileRetentionDays)
		if err != nil {
			b.logger.Warn("auto-prune failed", zap.Error(err))
		} else if res.Pruned > 0 {
			b.led.RecordAccess("prune", fmt.Sprintf("archived %d", res.Pruned))
		}
	}

	if err := b.persist("consolidate"); err != nil {
		return nil, err
	}
	return sum, nil
}

// Prune archives daily files older than the configured retention.
func (b *Brain) Prune(ctx context.Context) (tier.PruneResult, error) {
	res, err := b.files.Prune(b.cfg.Pruning.DailyFileRetentionDays)
	if err != nil {
		return res, NewBrainError("prune", err)
	}
	b.led.RecordAccess("prune", fmt.Sprintf("archived %d, kept %d", res.Pruned, res.Kept))
	if err := b.persist("prune"); err != nil {
		return res, err
	}
	return res, nil
}

// Query answers term across the tiers. The result's Source field tells
// the caller whether the semantic leg came from the embedding backend
// or from the lexical fallback.
func (b *Brain) Query(ctx context.Context, term string, opts ...QueryOption) (*retrieval.Result, error) {
	o := QueryOptions{Limit: b.cfg.Retrieval.DefaultLimit}
	for _, opt := range opts {
		opt(&o)
	}

	res, err := b.router.Query(ctx, term, o.Limit)
	if err != nil {
		return nil, NewBrainError("query", err)
	}

	b.led.RecordAccess("query", term)
	if err := b.persist("query"); err != nil {
		return nil, err
	}
	return res, nil
}

// DetectConflicts retrieves memories for query and scans them pairwise
// for contradictions. Conflicts are surfaced, never auto-resolved.
func (b *Brain) DetectConflicts(ctx context.Context, query string) ([]conflict.Conflict, error) {
	conflicts, err := b.detector.Detect(ctx, query, b.cfg.Retrieval.DefaultLimit)
	if err != nil {
		return nil, NewBrainError("detect_conflicts", err)
	}
	return conflicts, nil
}

// ConflictQuestion formats the clarifying question for detected
// conflicts.
func (b *Brain) ConflictQuestion(conflicts []conflict.Conflict) string {
	return conflict.Question(conflicts)
}

// Discover extracts candidate entity names from text without
// quarantining them.
func (b *Brain) Discover(text string) []string {
	return b.entities.Discover(text)
}

// AutoQuarantine discovers candidate entities in text and quarantines
// each one.
func (b *Brain) AutoQuarantine(text string) ([]ledger.QuarantineRecord, error) {
	var records []ledger.QuarantineRecord
	for _, name := range b.entities.Discover(text) {
		rec, err := b.entities.Quarantine(name, text)
		if err != nil {
			return nil, NewBrainError("auto_quarantine", err)
		}
		records = append(records, rec)
	}
	if len(records) > 0 {
		if err := b.persist("auto_quarantine"); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// Quarantine places a named entity into the pending state.
func (b *Brain) Quarantine(name, context string) (ledger.QuarantineRecord, error) {
	rec, err := b.entities.Quarantine(name, context)
	if err != nil {
		return rec, NewBrainError("quarantine", err)
	}
	if err := b.persist("quarantine"); err != nil {
		return rec, err
	}
	return rec, nil
}

// Validate promotes a pending entity to a durable record.
func (b *Brain) Validate(name string, opts ...ValidateOption) (ledger.EntityRecord, error) {
	var o ValidateOptions
	for _, opt := range opts {
		opt(&o)
	}
	rec, err := b.entities.Validate(name, o.Collection, o.Keywords)
	if err != nil {
		return rec, NewBrainError("validate_entity", err)
	}
	b.led.RecordAccess("validate", name)
	if err := b.persist("validate_entity"); err != nil {
		return rec, err
	}
	return rec, nil
}

// Reject discards a pending entity.
func (b *Brain) Reject(name string) error {
	if err := b.entities.Reject(name); err != nil {
		return NewBrainError("reject_entity", err)
	}
	if err := b.persist("reject_entity"); err != nil {
		return err
	}
	return nil
}

// QuarantineList returns the pending quarantine records.
func (b *Brain) QuarantineList() []ledger.QuarantineRecord {
	return b.entities.List()
}

// Index re-embeds every tier file into the vector backend. Requires a
// configured embedder and backend.
func (b *Brain) Index(ctx context.Context) (*index.Report, error) {
	if b.indexer == nil {
		return nil, NewBrainError("index", ErrBackendUnavailable)
	}
	report, err := b.indexer.IndexAll(ctx)
	if err != nil {
		return nil, NewBrainError("index", err)
	}
	b.led.RecordAccess("index", fmt.Sprintf("%d chunks from %d files", report.ChunksIndexed, report.FilesIndexed))
	if err := b.persist("index"); err != nil {
		return nil, err
	}
	return report, nil
}

// Status reports a snapshot of the store. Backend point counts are
// best effort; unreachable collections are simply omitted.
func (b *Brain) Status(ctx context.Context) (*StatusReport, error) {
	report := &StatusReport{
		PendingEntities:   len(b.led.PendingRecords()),
		ValidatedEntities: len(b.led.ValidatedRecords()),
		LastConsolidation: b.led.LastConsolidation,
		VectorProvider:    b.cfg.Vector.Provider,
	}

	daily, _ := filepath.Glob(filepath.Join(b.files.Dir(), "*.md"))
	report.DailyFiles = len(daily)
	weekly, _ := filepath.Glob(filepath.Join(b.files.DistilledDir(), tier.WeeklyPrefix+"*.md"))
	report.WeeklySummaries = len(weekly)
	archived, _ := filepath.Glob(filepath.Join(b.files.ArchiveDir(), "*.md"))
	report.ArchivedFiles = len(archived)

	if b.store != nil {
		report.PointCounts = map[string]int{}
		for _, name := range b.cfg.CollectionNames() {
			count, err := b.store.PointCount(ctx, name)
			if err != nil {
				continue
			}
			report.PointCounts[name] = count
		}
	}
	return report, nil
}

// Scheduler builds the cron service with the configured lifecycle jobs:
// weekly consolidation, daily pruning, and daily re-indexing (when a
// backend is available).
func (b *Brain) Scheduler() (*schedule.Service, error) {
	svc := schedule.NewService(b.logger)

	jobs := []schedule.Job{
		{
			Name: "consolidate",
			Spec: b.cfg.Schedule.ConsolidateSpec,
			Run: func() error {
				// Consolidate the week that just ended.
				_, err := b.Consolidate(context.Background(), tier.WeekStartFor(time.Now()).AddDate(0, 0, -7))
				return err
			},
		},
		{
			Name: "prune",
			Spec: b.cfg.Schedule.PruneSpec,
			Run: func() error {
				_, err := b.Prune(context.Background())
				return err
			},
		},
	}
	if b.indexer != nil {
		jobs = append(jobs, schedule.Job{
			Name: "index",
			Spec: b.cfg.Schedule.IndexSpec,
			Run: func() error {
				_, err := b.Index(context.Background())
				return err
			},
		})
	}

	for _, job := range jobs {
		if err := svc.Add(job); err != nil {
			return nil, NewBrainError("scheduler", err)
		}
	}
	return svc, nil
}

// Close releases the embedding backend and embedder.
func (b *Brain) Close() error {
	var firstErr error
	if b.store != nil {
		if err := b.store.Close(); err != nil {
			firstErr = err
		}
	}
	if b.emb != nil {
		if err := b.emb.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
