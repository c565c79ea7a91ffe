package tier

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// bucketCap limits each weekly-summary section to its top entries.
const bucketCap = 5

// Summary is the result of consolidating one week of daily files.
type Summary struct {
	// WeekStart is the normalized start date of the 7-day window.
	WeekStart time.Time

	// WeekLabel identifies the window, e.g. "2026-02-02_to_2026-02-08".
	WeekLabel string

	// File is the path of the written weekly summary.
	File string

	// DailyFilesRead is how many daily files existed in the window.
	DailyFilesRead int

	// Decisions, Preferences and Actions hold the bucketed texts,
	// capped and in first-seen order.
	Decisions   []string
	Preferences []string
	Actions     []string
}

// WeekStartFor returns the most recent Monday on or before t, truncated
// to its calendar date. This is the default consolidation window start.
func WeekStartFor(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	// Weekday is Sunday=0; shift so Monday opens the week.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// Consolidate reads every existing daily file in the 7-day window
// starting at weekStart, buckets each file's full text by the store's
// classifier, and writes the weekly summary file keyed by the week start
// date. Re-consolidating the same week overwrites the previous summary.
//
// A window with zero daily files is a no-op: no summary file is created
// and (nil, nil) is returned. Unreadable daily files are skipped with a
// warning and do not abort the batch.
func (s *Store) Consolidate(weekStart time.Time) (*Summary, error) {
	start := time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, weekStart.Location())
	end := start.AddDate(0, 0, 6)

	var texts []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		path := s.DailyPath(d.Format(DateLayout))
		content, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			s.logger.Warn("skipping unreadable daily file during consolidation",
				zap.String("file", path), zap.Error(err))
			continue
		}
		texts = append(texts, string(content))
	}

	if len(texts) == 0 {
		return nil, nil
	}

	sum := &Summary{
		WeekStart:      start,
		WeekLabel:      fmt.Sprintf("%s_to_%s", start.Format(DateLayout), end.Format(DateLayout)),
		File:           filepath.Join(s.distilledDir, WeeklyPrefix+start.Format(DateLayout)+".md"),
		DailyFilesRead: len(texts),
	}

	for _, text := range texts {
		buckets := s.classifier.Classify(text)
		if len(buckets) == 0 {
			continue
		}
		switch buckets[0] {
		case BucketDecision:
			if len(sum.Decisions) < bucketCap {
				sum.Decisions = append(sum.Decisions, text)
			}
		case BucketPreference:
			if len(sum.Preferences) < bucketCap {
				sum.Preferences = append(sum.Preferences, text)
			}
		case BucketAction:
			if len(sum.Actions) < bucketCap {
				sum.Actions = append(sum.Actions, text)
			}
		}
	}

	if err := os.WriteFile(sum.File, []byte(renderSummary(sum, end)), 0o644); err != nil {
		return nil, err
	}
	return sum, nil
}

func renderSummary(sum *Summary, end time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Weekly Memory Summary - %s to %s\n\n",
		sum.WeekStart.Format(DateLayout), end.Format(DateLayout))
	fmt.Fprintf(&b, "*Generated: %s*\n\n", time.Now().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "## Consolidated from %d daily entries\n\n", sum.DailyFilesRead)

	writeSection := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s\n", title)
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(item))
		}
		b.WriteString("\n")
	}
	writeSection("Decisions", sum.Decisions)
	writeSection("Preferences", sum.Preferences)
	writeSection("Action Items", sum.Actions)

	b.WriteString("---\n*This is a weekly distilled summary. See daily files for full detail.*\n")
	return b.String()
}
