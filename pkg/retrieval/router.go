// Package retrieval routes queries across the memory tiers: lexical
// search over the file tier plus semantic search over the embedding
// backend, with graceful degradation to lexical-only when the backend
// is unreachable.
package retrieval

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/memorybrain/pkg/embedder"
	"github.com/openclaw/memorybrain/pkg/tier"
	"github.com/openclaw/memorybrain/pkg/vector"
)

const (
	// SourceVectors marks a result whose semantic leg came from the
	// embedding backend.
	SourceVectors = "vectors"

	// SourceFiles marks a degraded result whose semantic leg was
	// replaced by a lexical scan over the file tier.
	SourceFiles = "files"

	// FallbackScore is the flat score assigned to lexical fallback
	// hits. It is deliberately below typical embedding similarity so
	// degraded results never outrank real semantic hits.
	FallbackScore = 0.5

	// fallbackMaxPerFile caps lexical fallback hits per file.
	fallbackMaxPerFile = 3

	defaultTimeout    = 5 * time.Second
	defaultWindowDays = 7
)

// Result is the merged answer to one query.
type Result struct {
	// Query is the original query term.
	Query string `json:"query"`

	// Daily holds lexical hits from recent daily files.
	Daily []tier.FileHit `json:"daily,omitempty"`

	// Weekly holds lexical hits from weekly summaries.
	Weekly []tier.FileHit `json:"weekly,omitempty"`

	// Vectors holds the semantic hits, sorted by descending score.
	// Under degradation these are lexical matches at FallbackScore.
	Vectors []vector.Scored `json:"vectors,omitempty"`

	// Source is SourceVectors or SourceFiles. Callers can always tell
	// whether they got a degraded answer.
	Source string `json:"source"`
}

// Router answers queries against the file tier and the embedding
// backend.
type Router struct {
	files       *tier.Store
	store       vector.Store
	emb         embedder.Provider
	collections []string
	logger      *zap.Logger

	timeout       time.Duration
	windowDays    int
	forceFallback bool
}

// Option configures a Router.
type Option func(*Router)

// WithTimeout bounds each query's backend work. Default 5s.
func WithTimeout(d time.Duration) Option {
	return func(r *Router) { r.timeout = d }
}

// WithWindowDays sets how many recent days the daily lexical leg scans.
func WithWindowDays(n int) Option {
	return func(r *Router) { r.windowDays = n }
}

// WithForceFallback makes every query take the lexical degradation
// path, as if the backend were down. Used to exercise degraded mode
// deterministically.
func WithForceFallback() Option {
	return func(r *Router) { r.forceFallback = true }
}

// NewRouter creates a Router. store and emb may be nil, in which case
// every query degrades to lexical-only.
func NewRouter(files *tier.Store, store vector.Store, emb embedder.Provider, collections []string, logger *zap.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		files:       files,
		store:       store,
		emb:         emb,
		collections: collections,
		logger:      logger,
		timeout:     defaultTimeout,
		windowDays:  defaultWindowDays,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Query answers term with lexical hits from the file tier plus up to
// limit semantic hits from the embedding backend.
//
// The semantic leg degrades rather than fails: if embedding the query
// errors, or every collection search errors, the backend is treated as
// unavailable and the leg is served by a lexical scan over daily and
// archived files at FallbackScore, with Source set to SourceFiles. A
// failure on a single collection is isolated and the remaining
// collections still contribute.
func (r *Router) Query(ctx context.Context, term string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = 5
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res := &Result{Query: term}
	res.Daily = r.files.QueryDaily(term, r.windowDays)
	res.Weekly = r.files.QueryWeekly(term)

	if r.forceFallback || r.store == nil || r.emb == nil {
		return r.degrade(res, term)
	}

	queryVec, err := r.emb.Embed(ctx, term)
	if err != nil {
		r.logger.Warn("embedding backend unavailable, degrading to lexical search",
			zap.String("query", term), zap.Error(err))
		return r.degrade(res, term)
	}

	var hits []vector.Scored
	failed := 0
	for _, col := range r.collections {
		colHits, err := r.store.QuerySimilar(ctx, col, queryVec, limit)
		if err != nil {
			r.logger.Warn("collection search failed",
				zap.String("collection", col), zap.Error(err))
			failed++
			continue
		}
		hits = append(hits, colHits...)
	}
	if len(r.collections) > 0 && failed == len(r.collections) {
		r.logger.Warn("all collections unreachable, degrading to lexical search",
			zap.String("query", term))
		return r.degrade(res, term)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	res.Vectors = hits
	res.Source = SourceVectors
	return res, nil
}

// degrade serves the semantic leg from a lexical scan over the file
// tier.
func (r *Router) degrade(res *Result, term string) (*Result, error) {
	for _, hit := range r.files.Grep(term, fallbackMaxPerFile) {
		res.Vectors = append(res.Vectors, vector.Scored{
			Collection: SourceFiles,
			Score:      FallbackScore,
			Payload: vector.Payload{
				Content:     hit.Text,
				ChunkIndex:  0,
				TotalChunks: 1,
				Collection:  SourceFiles,
				SourceFile:  hit.File,
			},
		})
	}
	res.Source = SourceFiles
	return res, nil
}
