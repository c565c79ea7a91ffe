package tier

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// PruneResult reports the outcome of one prune run.
type PruneResult struct {
	// Pruned is the number of daily files relocated to the archive.
	Pruned int `json:"pruned"`

	// Kept is the number of files left in place.
	Kept int `json:"kept"`
}

// Prune relocates every daily file whose filename date is older than
// retentionDays to the archive directory. Nothing is deleted: pruning is
// a file-tier retention policy only, and vector-indexed copies of pruned
// content persist in the embedding backend.
//
// Weekly summaries are untouched. Files whose name does not parse as a
// date are conservatively kept.
func (s *Store) Prune(retentionDays int) (PruneResult, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var res PruneResult
	for _, path := range s.dailyFiles() {
		fileDate, err := time.Parse(DateLayout, fileStem(path))
		if err != nil {
			res.Kept++
			continue
		}
		if !fileDate.Before(cutoff) {
			res.Kept++
			continue
		}
		dest := filepath.Join(s.archiveDir, filepath.Base(path))
		if err := os.Rename(path, dest); err != nil {
			s.logger.Warn("failed to archive daily file",
				zap.String("file", path), zap.Error(err))
			res.Kept++
			continue
		}
		res.Pruned++
	}
	return res, nil
}
