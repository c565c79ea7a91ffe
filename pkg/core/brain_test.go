package core_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/memorybrain/pkg/core"
	"github.com/openclaw/memorybrain/pkg/ledger"
	"github.com/openclaw/memorybrain/pkg/quarantine"
	"github.com/openclaw/memorybrain/pkg/retrieval"
	"github.com/openclaw/memorybrain/pkg/significance"
	"github.com/openclaw/memorybrain/pkg/tier"
)

// testBrain builds a file-only engine in a temp directory. No embedder,
// no backend: every retrieval runs the lexical path.
func testBrain(t *testing.T) (*core.Brain, *core.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := core.DefaultConfig()
	cfg.MemoryDir = filepath.Join(dir, "memory")
	cfg.EntitiesDir = filepath.Join(dir, "memory", "entities")
	cfg.LedgerPath = filepath.Join(dir, "memory", ".ledger.json")
	cfg.Vector.Provider = "none"
	cfg.Embedder.Provider = "none"

	brain, err := core.NewBrain(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { brain.Close() })
	return brain, cfg
}

func TestSaveMemoryWritesDailyFileAndLedger(t *testing.T) {
	brain, cfg := testBrain(t)
	ctx := context.Background()

	path, err := brain.SaveMemory(ctx, "kickoff with Jane Smith about the roadmap",
		core.WithCategory("decision"), core.WithImportance("decision"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kickoff with Jane Smith")
	assert.Contains(t, string(data), "DECISION [decision]")

	// The ledger was persisted with the entry and the discovered entity.
	led, err := ledger.Load(cfg.LedgerPath, nil)
	require.NoError(t, err)
	today := time.Now().Format(tier.DateLayout)
	require.Len(t, led.DailyFiles[today], 1)
	assert.True(t, led.IsPending("Jane Smith"), "capitalized names are auto-quarantined")
}

func TestSaveMemoryRejectsEmptyContent(t *testing.T) {
	brain, _ := testBrain(t)
	_, err := brain.SaveMemory(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestSaveMemoryHonorsTimestamp(t *testing.T) {
	brain, _ := testBrain(t)
	past := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	path, err := brain.SaveMemory(context.Background(), "backdated migration notes",
		core.WithTimestamp(past))
	require.NoError(t, err)
	assert.Equal(t, "2026-01-15.md", filepath.Base(path))
}

func TestIngestFiltersAndCounts(t *testing.T) {
	brain, _ := testBrain(t)
	now := time.Now()

	turns := []significance.Turn{
		{Role: significance.RoleUser, Text: "we decided: the new billing service will be written in Go", Timestamp: now},
		{Role: significance.RoleUser, Text: "ok", Timestamp: now},
		{Role: significance.RoleAssistant, Text: "HEARTBEAT_OK nothing to report from the scheduled check", Timestamp: now},
		{Role: "tool", Text: "a tool result that is long enough to pass the length rule", Timestamp: now},
		{Role: significance.RoleAssistant, Text: "the migration plan covers both the API and the worker fleet", Timestamp: now},
	}

	report, err := brain.Ingest(context.Background(), turns)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Seen)
	assert.Equal(t, 2, report.Kept)
	assert.Equal(t, 3, report.Skipped)
	require.Len(t, report.Files, 1)

	// The trigger phrase upgraded the first turn's category.
	data, err := os.ReadFile(report.Files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "DECISION [decision]")
}

func TestHandleTrigger(t *testing.T) {
	brain, _ := testBrain(t)

	trig, path, err := brain.HandleTrigger(context.Background(),
		"remember this: the demo environment resets nightly")
	require.NoError(t, err)
	require.NotNil(t, trig)
	assert.Equal(t, "the demo environment resets nightly", trig.Content)
	assert.FileExists(t, path)

	trig, path, err = brain.HandleTrigger(context.Background(), "nothing special here")
	require.NoError(t, err)
	assert.Nil(t, trig)
	assert.Empty(t, path)
}

func TestQueryLexicalOnly(t *testing.T) {
	brain, _ := testBrain(t)
	ctx := context.Background()

	_, err := brain.SaveMemory(ctx, "the grafana dashboards moved to the new cluster")
	require.NoError(t, err)

	res, err := brain.Query(ctx, "grafana")
	require.NoError(t, err)
	assert.Equal(t, retrieval.SourceFiles, res.Source)
	assert.Len(t, res.Daily, 1)
	require.NotEmpty(t, res.Vectors)
	for _, hit := range res.Vectors {
		assert.Equal(t, retrieval.FallbackScore, hit.Score)
	}
}

func TestConsolidateWithAutoPrune(t *testing.T) {
	brain, cfg := testBrain(t)
	ctx := context.Background()

	old := time.Now().AddDate(0, 0, -10)
	_, err := brain.SaveMemory(ctx, "we decided to sunset the legacy importer",
		core.WithTimestamp(old))
	require.NoError(t, err)

	weekStart := tier.WeekStartFor(old)
	sum, err := brain.Consolidate(ctx, weekStart)
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.NotEmpty(t, sum.Decisions)
	assert.FileExists(t, sum.File)

	// Auto-prune archived the 10-day-old daily file in the same pass.
	oldDate := old.Format(tier.DateLayout)
	assert.NoFileExists(t, filepath.Join(cfg.MemoryDir, oldDate+".md"))
	assert.FileExists(t, filepath.Join(cfg.MemoryDir, "archive", oldDate+".md"))

	led, err := ledger.Load(cfg.LedgerPath, nil)
	require.NoError(t, err)
	assert.Contains(t, led.WeeklySummaries, sum.WeekLabel)
	require.NotNil(t, led.LastConsolidation)
}

func TestConsolidateEmptyWindow(t *testing.T) {
	brain, _ := testBrain(t)
	sum, err := brain.Consolidate(context.Background(), tier.WeekStartFor(time.Now()))
	require.NoError(t, err)
	assert.Nil(t, sum)
}

func TestValidateLifecycleThroughBrain(t *testing.T) {
	brain, cfg := testBrain(t)

	_, err := brain.Quarantine("Acme Corp", "mentioned in planning")
	require.NoError(t, err)
	require.Len(t, brain.QuarantineList(), 1)

	rec, err := brain.Validate("Acme Corp",
		core.WithCollection("mem_projects"), core.WithKeywords("acme"))
	require.NoError(t, err)
	assert.Equal(t, "mem_projects", rec.Collection)
	assert.Empty(t, brain.QuarantineList())

	// Exactly-once: a second promotion fails and survives a reload.
	_, err = brain.Validate("Acme Corp")
	assert.ErrorIs(t, err, quarantine.ErrNotFound)

	led, err := ledger.Load(cfg.LedgerPath, nil)
	require.NoError(t, err)
	assert.True(t, led.IsValidated("Acme Corp"))
	assert.False(t, led.IsPending("Acme Corp"))
}

func TestRejectThroughBrain(t *testing.T) {
	brain, _ := testBrain(t)

	_, err := brain.Quarantine("Acme Corp", "")
	require.NoError(t, err)
	require.NoError(t, brain.Reject("Acme Corp"))
	assert.Empty(t, brain.QuarantineList())

	err = brain.Reject("Acme Corp")
	assert.ErrorIs(t, err, quarantine.ErrNotFound)
}

func TestDetectConflictsLexicalPath(t *testing.T) {
	brain, _ := testBrain(t)
	ctx := context.Background()

	_, err := brain.SaveMemory(ctx, "use venv for all the Python tooling in this repo")
	require.NoError(t, err)
	_, err = brain.SaveMemory(ctx, "use conda for all the Python tooling going forward")
	require.NoError(t, err)

	conflicts, err := brain.DetectConflicts(ctx, "python tooling")
	require.NoError(t, err)
	require.NotEmpty(t, conflicts)
	assert.Equal(t, "ASK_USER", conflicts[0].Resolution)
	assert.Contains(t, brain.ConflictQuestion(conflicts), "Which one is current?")
}

func TestIndexWithoutBackend(t *testing.T) {
	brain, _ := testBrain(t)
	_, err := brain.Index(context.Background())
	assert.ErrorIs(t, err, core.ErrBackendUnavailable)
}

func TestStatus(t *testing.T) {
	brain, _ := testBrain(t)
	ctx := context.Background()

	_, err := brain.SaveMemory(ctx, "status check entry with enough words to matter")
	require.NoError(t, err)
	_, err = brain.Quarantine("Acme Corp", "")
	require.NoError(t, err)

	report, err := brain.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DailyFiles)
	assert.Equal(t, 1, report.PendingEntities)
	assert.Equal(t, 0, report.ValidatedEntities)
	assert.Equal(t, "none", report.VectorProvider)
}

func TestSchedulerBuildsJobs(t *testing.T) {
	brain, _ := testBrain(t)
	svc, err := brain.Scheduler()
	require.NoError(t, err)
	svc.Start()
	svc.Stop()
}
