package tier_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/memorybrain/pkg/tier"
)

func TestPruneRelocatesOnlyExpiredFiles(t *testing.T) {
	s := newStore(t)

	oldDate := time.Now().AddDate(0, 0, -10).Format(tier.DateLayout)
	freshDate := time.Now().AddDate(0, 0, -2).Format(tier.DateLayout)
	require.NoError(t, os.WriteFile(s.DailyPath(oldDate), []byte("old notes"), 0o644))
	require.NoError(t, os.WriteFile(s.DailyPath(freshDate), []byte("fresh notes"), 0o644))

	res, err := s.Prune(7)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pruned)
	assert.Equal(t, 1, res.Kept)

	// The old file moved, content intact; the fresh one stayed put.
	assert.NoFileExists(t, s.DailyPath(oldDate))
	moved := filepath.Join(s.ArchiveDir(), oldDate+".md")
	data, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, "old notes", string(data))
	assert.FileExists(t, s.DailyPath(freshDate))
}

func TestPruneKeepsUnparseableNames(t *testing.T) {
	s := newStore(t)
	odd := filepath.Join(s.Dir(), "notes.md")
	require.NoError(t, os.WriteFile(odd, []byte("undated"), 0o644))

	res, err := s.Prune(7)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Pruned)
	assert.Equal(t, 1, res.Kept)
	assert.FileExists(t, odd)
}

func TestPruneComparesFilenameDateNotMtime(t *testing.T) {
	s := newStore(t)

	// Recently written file carrying an old date still gets archived.
	oldDate := time.Now().AddDate(0, 0, -30).Format(tier.DateLayout)
	require.NoError(t, os.WriteFile(s.DailyPath(oldDate), []byte("backdated"), 0o644))

	res, err := s.Prune(7)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pruned)
	assert.FileExists(t, filepath.Join(s.ArchiveDir(), oldDate+".md"))
}
