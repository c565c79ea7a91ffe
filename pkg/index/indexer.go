// Package index turns tier files into embedded points in the vector
// backend: chunking, keyword collection routing, batch embedding and
// idempotent upserts.
package index

import (
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/openclaw/memorybrain/pkg/embedder"
	"github.com/openclaw/memorybrain/pkg/tier"
	"github.com/openclaw/memorybrain/pkg/vector"
)

// chunkSize is the character length of each chunk.
const chunkSize = 800

// Route maps content keywords to a target collection. Routes are
// checked in order; the first whose keyword matches the source file
// name or content wins.
type Route struct {
	Collection string   `json:"collection"`
	Keywords   []string `json:"keywords"`
}

// Report summarizes one indexing run.
type Report struct {
	// RunID uniquely identifies the run.
	RunID int64 `json:"run_id"`

	// FilesIndexed is the number of files successfully indexed.
	FilesIndexed int `json:"files_indexed"`

	// ChunksIndexed is the total number of chunks upserted.
	ChunksIndexed int `json:"chunks_indexed"`

	// FilesFailed is the number of files skipped due to errors.
	FilesFailed int `json:"files_failed"`

	// Collections counts chunks per target collection.
	Collections map[string]int `json:"collections"`
}

// Indexer embeds tier files into the vector backend.
type Indexer struct {
	files             *tier.Store
	entitiesDir       string
	store             vector.Store
	emb               embedder.Provider
	routes            []Route
	defaultCollection string
	node              *snowflake.Node
	logger            *zap.Logger
}

// NewIndexer creates an Indexer. entitiesDir may be empty to skip the
// entity records.
func NewIndexer(files *tier.Store, entitiesDir string, store vector.Store, emb embedder.Provider, routes []Route, defaultCollection string, logger *zap.Logger) (*Indexer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	return &Indexer{
		files:             files,
		entitiesDir:       entitiesDir,
		store:             store,
		emb:               emb,
		routes:            routes,
		defaultCollection: defaultCollection,
		node:              node,
		logger:            logger,
	}, nil
}

// IndexAll re-indexes every tier file. Point IDs are derived from the
// source file and chunk position, so repeated runs upsert in place
// instead of accumulating duplicates. A failure on one file is logged
// and skipped; the run continues.
func (x *Indexer) IndexAll(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:       x.node.Generate().Int64(),
		Collections: map[string]int{},
	}

	type source struct {
		dir  string
		tier string
	}
	sources := []source{
		{x.files.Dir(), "working"},
		{x.files.DistilledDir(), "weekly"},
		{x.files.ArchiveDir(), "archive"},
	}
	if x.entitiesDir != "" {
		sources = append(sources, source{x.entitiesDir, "entities"})
	}

	for _, src := range sources {
		paths, err := filepath.Glob(filepath.Join(src.dir, "*.md"))
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			n, collection, err := x.indexFile(ctx, path, src.tier)
			if err != nil {
				x.logger.Warn("failed to index file",
					zap.String("file", path), zap.Error(err))
				report.FilesFailed++
				continue
			}
			if n == 0 {
				continue
			}
			report.FilesIndexed++
			report.ChunksIndexed += n
			report.Collections[collection] += n
		}
	}
	return report, nil
}

// indexFile chunks, embeds and upserts one file, returning the number
// of chunks written and the collection they went to.
func (x *Indexer) indexFile(ctx context.Context, path, tierName string) (int, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, "", nil
	}

	collection := x.route(path, text)
	chunks := Chunk(text, chunkSize)

	vectors, err := x.emb.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, "", err
	}

	now := time.Now().UTC()
	points := make([]vector.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = vector.Point{
			ID:     pointID(path, i),
			Vector: vectors[i],
			Payload: vector.Payload{
				Content:     chunk,
				ChunkIndex:  i,
				TotalChunks: len(chunks),
				Tier:        tierName,
				Collection:  collection,
				SourceFile:  path,
				Date:        dateFromName(path),
				StoredAt:    now,
			},
		}
	}

	if err := x.store.EnsureCollection(ctx, collection); err != nil {
		return 0, "", err
	}
	if err := x.store.Upsert(ctx, collection, points); err != nil {
		return 0, "", err
	}
	return len(points), collection, nil
}

// route picks the target collection by first keyword match against the
// file name and content.
func (x *Indexer) route(path, text string) string {
	name := strings.ToLower(filepath.Base(path))
	lower := strings.ToLower(text)
	for _, r := range x.routes {
		for _, kw := range r.Keywords {
			if strings.Contains(name, kw) || strings.Contains(lower, kw) {
				return r.Collection
			}
		}
	}
	return x.defaultCollection
}

// Chunk splits text into fixed-size character chunks. The final chunk
// carries the remainder; empty text yields no chunks.
func Chunk(text string, size int) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	for len(text) > size {
		chunks = append(chunks, text[:size])
		text = text[size:]
	}
	return append(chunks, text)
}

// pointID derives a stable point identifier from the source file and
// chunk position. FNV-64a, masked positive so every backend accepts it.
func pointID(path string, chunk int) int64 {
	h := fnv.New64a()
	h.Write([]byte(filepath.Base(path)))
	h.Write([]byte{'#', byte(chunk), byte(chunk >> 8)})
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

// dateFromName extracts a calendar date from a tier filename, if any.
func dateFromName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.TrimPrefix(stem, tier.WeeklyPrefix)
	if _, err := time.Parse(tier.DateLayout, stem); err == nil {
		return stem
	}
	return ""
}
