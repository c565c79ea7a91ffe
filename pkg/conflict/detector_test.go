package conflict_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/memorybrain/pkg/conflict"
	"github.com/openclaw/memorybrain/pkg/vector"
)

func hit(collection, content string, score float64) vector.Scored {
	return vector.Scored{
		Collection: collection,
		Score:      score,
		Payload:    vector.Payload{Content: content, TotalChunks: 1, Collection: collection},
	}
}

func TestScanFindsContradiction(t *testing.T) {
	hits := []vector.Scored{
		hit("mem_user", "Use venv for Python projects", 0.91),
		hit("mem_projects", "Use conda for Python projects now", 0.88),
	}

	conflicts := conflict.Scan(hits)
	require.Len(t, conflicts, 1)

	c := conflicts[0]
	assert.Equal(t, "Use venv for Python projects", c.Memory1)
	assert.Equal(t, "Use conda for Python projects now", c.Memory2)
	assert.Equal(t, "mem_user", c.Collection1)
	assert.Equal(t, "mem_projects", c.Collection2)
	assert.Equal(t, 0.91, c.Score1)
	assert.Equal(t, 0.88, c.Score2)
	assert.Equal(t, "contradiction", c.ConflictType)
	assert.Equal(t, conflict.ResolutionAskUser, c.Resolution)
}

func TestScanIgnoresIdenticalTexts(t *testing.T) {
	hits := []vector.Scored{
		hit("mem_user", "Use venv for Python projects", 0.9),
		hit("mem_sessions", "Use venv for Python projects", 0.8),
	}
	assert.Empty(t, conflict.Scan(hits), "a memory never conflicts with its own copy")
}

func TestScanRequiresSharedIndicatorGroup(t *testing.T) {
	// "actually" and "switch" sit in different groups; no shared group,
	// no conflict.
	hits := []vector.Scored{
		hit("mem_user", "it was actually Tuesday", 0.9),
		hit("mem_user", "we will switch the deploy day", 0.8),
	}
	assert.Empty(t, conflict.Scan(hits))

	// Neutral statements carry no indicator at all.
	neutral := []vector.Scored{
		hit("mem_user", "the meeting went well", 0.9),
		hit("mem_user", "sunny weather today", 0.8),
	}
	assert.Empty(t, conflict.Scan(neutral))
}

func TestScanPairsAreOrdered(t *testing.T) {
	hits := []vector.Scored{
		hit("a", "prefer tabs for indentation", 0.9),
		hit("b", "prefer spaces for indentation", 0.8),
		hit("c", "use two spaces instead", 0.7),
	}
	conflicts := conflict.Scan(hits)
	// Every qualifying pair reported once, i before j.
	require.Len(t, conflicts, 3)
	assert.Equal(t, "prefer tabs for indentation", conflicts[0].Memory1)
	assert.Equal(t, "prefer spaces for indentation", conflicts[0].Memory2)
}

func TestQuestion(t *testing.T) {
	assert.Empty(t, conflict.Question(nil))

	conflicts := conflict.Scan([]vector.Scored{
		hit("a", "Use venv for Python projects", 0.9),
		hit("b", "Use conda for Python projects", 0.8),
	})
	require.NotEmpty(t, conflicts)

	q := conflict.Question(conflicts)
	assert.Contains(t, q, `"Use venv for Python projects"`)
	assert.Contains(t, q, `"Use conda for Python projects"`)
	assert.Contains(t, q, "Which one is current?")
}

func TestQuestionTruncatesLongMemories(t *testing.T) {
	long := "use " + strings.Repeat("x", 200)
	conflicts := conflict.Scan([]vector.Scored{
		hit("a", long, 0.9),
		hit("b", "use something shorter instead", 0.8),
	})
	require.NotEmpty(t, conflicts)

	q := conflict.Question(conflicts)
	assert.Contains(t, q, "...")
	assert.NotContains(t, q, strings.Repeat("x", 150))
}
