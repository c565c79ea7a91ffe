package core

import "time"

// IngestReport summarizes one batch ingest.
type IngestReport struct {
	// Seen is the number of turns examined.
	Seen int `json:"seen"`

	// Kept is the number of turns retained into the daily tier.
	Kept int `json:"kept"`

	// Skipped is the number of turns the significance filter discarded.
	Skipped int `json:"skipped"`

	// Files lists the daily files written, deduplicated.
	Files []string `json:"files,omitempty"`
}

// StatusReport is a point-in-time snapshot of the memory store.
type StatusReport struct {
	// DailyFiles is the number of daily files in the working tier.
	DailyFiles int `json:"daily_files"`

	// WeeklySummaries is the number of consolidated weekly files.
	WeeklySummaries int `json:"weekly_summaries"`

	// ArchivedFiles is the number of pruned daily files in the archive.
	ArchivedFiles int `json:"archived_files"`

	// PendingEntities is the quarantine backlog size.
	PendingEntities int `json:"pending_entities"`

	// ValidatedEntities is the number of promoted entities.
	ValidatedEntities int `json:"validated_entities"`

	// LastConsolidation is when consolidation last ran, if ever.
	LastConsolidation *time.Time `json:"last_consolidation,omitempty"`

	// VectorProvider names the configured embedding backend.
	VectorProvider string `json:"vector_provider"`

	// PointCounts holds per-collection point counts when the backend is
	// reachable; collections that fail to answer are omitted.
	PointCounts map[string]int `json:"point_counts,omitempty"`
}
