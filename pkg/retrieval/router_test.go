package retrieval_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/memorybrain/pkg/retrieval"
	"github.com/openclaw/memorybrain/pkg/tier"
	"github.com/openclaw/memorybrain/pkg/vector"
)

type fakeEmbedder struct {
	fail bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if f.fail {
		return nil, errors.New("embedder down")
	}
	return []float64{1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		vec, err := f.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 2 }
func (f *fakeEmbedder) Close() error    { return nil }

type fakeStore struct {
	hits     map[string][]vector.Scored
	failCols map[string]bool
}

func (f *fakeStore) EnsureCollection(ctx context.Context, name string) error { return nil }

func (f *fakeStore) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	return nil
}

func (f *fakeStore) QuerySimilar(ctx context.Context, collection string, vec []float64, limit int) ([]vector.Scored, error) {
	if f.failCols[collection] {
		return nil, errors.New("collection unreachable")
	}
	hits := f.hits[collection]
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeStore) PointCount(ctx context.Context, name string) (int, error) {
	return len(f.hits[name]), nil
}

func (f *fakeStore) Close() error { return nil }

func scored(collection, content string, score float64) vector.Scored {
	return vector.Scored{
		Collection: collection,
		Score:      score,
		Payload:    vector.Payload{Content: content, TotalChunks: 1, Collection: collection},
	}
}

func seededFiles(t *testing.T) *tier.Store {
	t.Helper()
	files, err := tier.NewStore(t.TempDir(), nil, nil)
	require.NoError(t, err)
	_, err = files.Append(tier.Entry{
		Content:    "the deploy pipeline now runs on Fridays",
		Category:   "general",
		Importance: "normal",
		Timestamp:  time.Now(),
	})
	require.NoError(t, err)
	return files
}

func TestQueryBackendPath(t *testing.T) {
	store := &fakeStore{hits: map[string][]vector.Scored{
		"mem_user":     {scored("mem_user", "user prefers Friday deploys", 0.92)},
		"mem_projects": {scored("mem_projects", "deploy pipeline decision", 0.85)},
	}}
	r := retrieval.NewRouter(seededFiles(t), store, &fakeEmbedder{}, []string{"mem_user", "mem_projects"}, nil)

	res, err := r.Query(context.Background(), "deploy", 5)
	require.NoError(t, err)

	assert.Equal(t, retrieval.SourceVectors, res.Source)
	require.Len(t, res.Vectors, 2)
	// Merged across collections, sorted by descending score.
	assert.Equal(t, 0.92, res.Vectors[0].Score)
	assert.Equal(t, 0.85, res.Vectors[1].Score)
	assert.Len(t, res.Daily, 1, "lexical daily leg always runs")
}

func TestQueryRespectsLimit(t *testing.T) {
	store := &fakeStore{hits: map[string][]vector.Scored{
		"mem_user": {
			scored("mem_user", "a", 0.9),
			scored("mem_user", "b", 0.8),
			scored("mem_user", "c", 0.7),
		},
	}}
	r := retrieval.NewRouter(seededFiles(t), store, &fakeEmbedder{}, []string{"mem_user"}, nil)

	res, err := r.Query(context.Background(), "deploy", 2)
	require.NoError(t, err)
	assert.Len(t, res.Vectors, 2)
}

func TestQueryForcedFallback(t *testing.T) {
	r := retrieval.NewRouter(seededFiles(t), nil, nil, nil, nil, retrieval.WithForceFallback())

	res, err := r.Query(context.Background(), "deploy", 5)
	require.NoError(t, err)

	assert.Equal(t, retrieval.SourceFiles, res.Source)
	require.NotEmpty(t, res.Vectors)
	for _, hit := range res.Vectors {
		assert.Equal(t, retrieval.FallbackScore, hit.Score)
		assert.Equal(t, retrieval.SourceFiles, hit.Collection)
		assert.Contains(t, hit.Payload.Content, "deploy")
	}
}

func TestQueryDegradesOnEmbedFailure(t *testing.T) {
	store := &fakeStore{hits: map[string][]vector.Scored{
		"mem_user": {scored("mem_user", "should never be reached", 0.99)},
	}}
	r := retrieval.NewRouter(seededFiles(t), store, &fakeEmbedder{fail: true}, []string{"mem_user"}, nil)

	res, err := r.Query(context.Background(), "deploy", 5)
	require.NoError(t, err, "backend failure degrades, never errors")
	assert.Equal(t, retrieval.SourceFiles, res.Source)
	for _, hit := range res.Vectors {
		assert.Equal(t, retrieval.FallbackScore, hit.Score)
	}
}

func TestQueryDegradesWhenAllCollectionsFail(t *testing.T) {
	store := &fakeStore{failCols: map[string]bool{"mem_user": true, "mem_projects": true}}
	r := retrieval.NewRouter(seededFiles(t), store, &fakeEmbedder{}, []string{"mem_user", "mem_projects"}, nil)

	res, err := r.Query(context.Background(), "deploy", 5)
	require.NoError(t, err)
	assert.Equal(t, retrieval.SourceFiles, res.Source)
}

func TestQueryIsolatesSingleCollectionFailure(t *testing.T) {
	store := &fakeStore{
		hits:     map[string][]vector.Scored{"mem_user": {scored("mem_user", "survivor", 0.9)}},
		failCols: map[string]bool{"mem_projects": true},
	}
	r := retrieval.NewRouter(seededFiles(t), store, &fakeEmbedder{}, []string{"mem_user", "mem_projects"}, nil)

	res, err := r.Query(context.Background(), "deploy", 5)
	require.NoError(t, err)
	assert.Equal(t, retrieval.SourceVectors, res.Source, "one down collection must not degrade the query")
	require.Len(t, res.Vectors, 1)
	assert.Equal(t, "survivor", res.Vectors[0].Payload.Content)
}

func TestFallbackScoresBelowBackendScores(t *testing.T) {
	// Backend similarity for a relevant memory sits well above the flat
	// fallback score, so degraded answers rank themselves honestly.
	assert.Less(t, retrieval.FallbackScore, 0.85)
}

func TestQueryNilBackendIsLexicalOnly(t *testing.T) {
	r := retrieval.NewRouter(seededFiles(t), nil, nil, nil, nil)

	res, err := r.Query(context.Background(), "deploy", 5)
	require.NoError(t, err)
	assert.Equal(t, retrieval.SourceFiles, res.Source)
}
