// Package tier implements the tiered memory store: append-only daily
// files, weekly consolidated summaries, and a prune-to-archive retention
// policy.
//
// Layout under the memory directory:
//
//	2026-02-01.md        daily file, one per calendar date
//	distilled/Week_*.md  weekly summaries
//	archive/             pruned daily files (moved, never deleted)
//
// File ages are always compared by the calendar date parsed from the
// filename, not by modification time, so behavior is stable across
// copies and backups.
package tier

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DateLayout is the filename layout for daily files.
	DateLayout = "2006-01-02"

	// WeeklyPrefix marks consolidated weekly summary files.
	WeeklyPrefix = "Week_"

	dailySnippetLen  = 500
	weeklySnippetLen = 300
)

// Entry is one retained conversational turn. Entries are immutable once
// appended; the daily file owns them exclusively.
type Entry struct {
	// Content is the full retained text.
	Content string

	// Role is the speaker role (user or assistant).
	Role string

	// Category is a free-form label (decision, action, important, general, ...).
	Category string

	// Importance is one of: normal, high, action, decision, long-term.
	Importance string

	// Timestamp is the time-zone aware instant the turn occurred.
	// The entry is filed under this timestamp's calendar date, not the
	// ingestion time.
	Timestamp time.Time
}

// FileHit is one matching file from a keyword scan.
type FileHit struct {
	// File is the path of the matching file.
	File string `json:"file"`

	// Key is the date (daily) or week label (weekly) of the file.
	Key string `json:"key"`

	// Snippet is a fixed-length preview of the file content.
	Snippet string `json:"snippet"`
}

// LineHit is one matching line from the lexical fallback scan.
type LineHit struct {
	// File is the path of the file containing the line.
	File string

	// Text is the matching line, trimmed.
	Text string
}

// Store manages the daily/weekly/archive file tiers under one directory.
type Store struct {
	dir          string
	distilledDir string
	archiveDir   string
	classifier   Classifier
	logger       *zap.Logger
}

// NewStore creates a Store rooted at dir, creating the tier directories
// if needed. A nil classifier selects the default keyword classifier; a
// nil logger discards logs.
func NewStore(dir string, classifier Classifier, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}

	s := &Store{
		dir:          dir,
		distilledDir: filepath.Join(dir, "distilled"),
		archiveDir:   filepath.Join(dir, "archive"),
		classifier:   classifier,
		logger:       logger,
	}

	for _, d := range []string{s.dir, s.distilledDir, s.archiveDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Dir returns the root memory directory.
func (s *Store) Dir() string { return s.dir }

// DistilledDir returns the weekly-summary directory.
func (s *Store) DistilledDir() string { return s.distilledDir }

// ArchiveDir returns the archive directory.
func (s *Store) ArchiveDir() string { return s.archiveDir }

// DailyPath returns the daily file path for a date.
func (s *Store) DailyPath(date string) string {
	return filepath.Join(s.dir, date+".md")
}

// Append appends the entry to the daily file for its calendar date,
// creating the file on first write. Appending is the only mutation a
// daily file ever sees; no entry is rewritten in place.
//
// Returns the path of the daily file written.
func (s *Store) Append(e Entry) (string, error) {
	date := e.Timestamp.Format(DateLayout)
	path := s.DailyPath(date)

	block := fmt.Sprintf("\n## %s - %s [%s]\n\n%s\n\n---\n",
		e.Timestamp.Format("15:04"),
		strings.ToUpper(e.Category),
		e.Importance,
		e.Content,
	)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.WriteString(block); err != nil {
		return "", err
	}
	return path, nil
}

// QueryDaily scans daily files dated within the last windowDays for a
// case-insensitive substring match, returning one hit per matching file
// with a fixed-length preview.
func (s *Store) QueryDaily(term string, windowDays int) []FileHit {
	cutoff := time.Now().AddDate(0, 0, -windowDays)
	needle := strings.ToLower(term)

	var hits []FileHit
	for _, path := range s.dailyFiles() {
		stem := fileStem(path)
		fileDate, err := time.Parse(DateLayout, stem)
		if err != nil {
			continue
		}
		if fileDate.Before(cutoff) {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable daily file", zap.String("file", path), zap.Error(err))
			continue
		}
		if strings.Contains(strings.ToLower(string(content)), needle) {
			hits = append(hits, FileHit{
				File:    path,
				Key:     stem,
				Snippet: preview(string(content), dailySnippetLen),
			})
		}
	}
	return hits
}

// QueryWeekly scans consolidated weekly summaries for a case-insensitive
// substring match.
func (s *Store) QueryWeekly(term string) []FileHit {
	needle := strings.ToLower(term)

	var hits []FileHit
	matches, _ := filepath.Glob(filepath.Join(s.distilledDir, WeeklyPrefix+"*.md"))
	for _, path := range matches {
		content, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable weekly file", zap.String("file", path), zap.Error(err))
			continue
		}
		if strings.Contains(strings.ToLower(string(content)), needle) {
			hits = append(hits, FileHit{
				File:    path,
				Key:     fileStem(path),
				Snippet: preview(string(content), weeklySnippetLen),
			})
		}
	}
	return hits
}

// Grep performs a case-insensitive line scan over every daily and
// archived tier file, excluding weekly summaries, capped at maxPerFile
// matches per file. This feeds the retrieval router's lexical fallback.
func (s *Store) Grep(term string, maxPerFile int) []LineHit {
	needle := strings.ToLower(term)

	var hits []LineHit
	paths := s.dailyFiles()
	archived, _ := filepath.Glob(filepath.Join(s.archiveDir, "*.md"))
	paths = append(paths, archived...)

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		matched := 0
		for _, line := range strings.Split(string(content), "\n") {
			if matched >= maxPerFile {
				break
			}
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if strings.Contains(strings.ToLower(trimmed), needle) {
				hits = append(hits, LineHit{File: path, Text: trimmed})
				matched++
			}
		}
	}
	return hits
}

// dailyFiles lists the non-weekly .md files in the root tier directory.
func (s *Store) dailyFiles() []string {
	matches, _ := filepath.Glob(filepath.Join(s.dir, "*.md"))
	var out []string
	for _, path := range matches {
		if strings.HasPrefix(filepath.Base(path), WeeklyPrefix) {
			continue
		}
		out = append(out, path)
	}
	return out
}

func fileStem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func preview(content string, n int) string {
	if len(content) <= n {
		return content
	}
	return content[:n]
}
