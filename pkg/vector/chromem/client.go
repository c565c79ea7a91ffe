// Package chromem implements the vector store on chromem-go, an
// embedded pure-Go vector database persisted to local disk. It is the
// zero-infrastructure backend: no server process, no driver.
package chromem

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/openclaw/memorybrain/pkg/vector"
)

// Config holds the chromem settings.
type Config struct {
	// Path is the persistence directory.
	Path string `json:"path"`
}

// Store is a vector.Store backed by an embedded chromem-go database.
type Store struct {
	db *chromem.DB

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

// NewStore opens (or creates) the database at cfg.Path with gzip
// compression enabled.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("chromem: path is required")
	}
	db, err := chromem.NewPersistentDB(cfg.Path, true)
	if err != nil {
		return nil, fmt.Errorf("chromem: open %s: %w", cfg.Path, err)
	}
	return &Store{db: db, collections: make(map[string]*chromem.Collection)}, nil
}

func (s *Store) collection(name string) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[name]; ok {
		return col, nil
	}
	// Embeddings are always supplied precomputed, so no embedding
	// function is registered.
	col, err := s.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: collection %s: %w", name, err)
	}
	s.collections[name] = col
	return col, nil
}

// EnsureCollection creates the collection if it does not exist.
func (s *Store) EnsureCollection(ctx context.Context, name string) error {
	_, err := s.collection(name)
	return err
}

// Upsert writes points as chromem documents with precomputed embeddings.
func (s *Store) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	col, err := s.collection(collection)
	if err != nil {
		return err
	}
	for _, p := range points {
		if err := p.Payload.Validate(); err != nil {
			return fmt.Errorf("chromem: %w", err)
		}
		doc := chromem.Document{
			ID:        strconv.FormatInt(p.ID, 10),
			Metadata:  metaFromPayload(p.Payload),
			Embedding: vector.ToFloat32(p.Vector),
			Content:   p.Payload.Content,
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("chromem: add document to %s: %w", collection, err)
		}
	}
	return nil
}

// QuerySimilar returns up to limit nearest documents by cosine
// similarity. chromem rejects result counts above the collection size,
// so the limit is clamped; an empty collection yields no hits.
func (s *Store) QuerySimilar(ctx context.Context, collection string, vec []float64, limit int) ([]vector.Scored, error) {
	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	n := limit
	if count := col.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector.ToFloat32(vec), n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: query %s: %w", collection, err)
	}

	out := make([]vector.Scored, 0, len(results))
	for _, r := range results {
		payload := payloadFromMeta(r.Metadata)
		payload.Content = r.Content
		out = append(out, vector.Scored{
			Collection: collection,
			Score:      float64(r.Similarity),
			Payload:    payload,
		})
	}
	return out, nil
}

// PointCount returns the number of documents in the collection.
func (s *Store) PointCount(ctx context.Context, name string) (int, error) {
	col, err := s.collection(name)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

// Close is a no-op; chromem persists each write as it happens.
func (s *Store) Close() error {
	return nil
}

// chromem metadata values are strings, so the payload round-trips
// through strconv.
func metaFromPayload(p vector.Payload) map[string]string {
	return map[string]string{
		"chunk_index":  strconv.Itoa(p.ChunkIndex),
		"total_chunks": strconv.Itoa(p.TotalChunks),
		"memory_tier":  p.Tier,
		"collection":   p.Collection,
		"source_file":  p.SourceFile,
		"date":         p.Date,
		"stored_at":    p.StoredAt.Format(time.RFC3339),
	}
}

func payloadFromMeta(meta map[string]string) vector.Payload {
	chunkIndex, _ := strconv.Atoi(meta["chunk_index"])
	totalChunks, _ := strconv.Atoi(meta["total_chunks"])
	storedAt, _ := time.Parse(time.RFC3339, meta["stored_at"])
	return vector.Payload{
		ChunkIndex:  chunkIndex,
		TotalChunks: totalChunks,
		Tier:        meta["memory_tier"],
		Collection:  meta["collection"],
		SourceFile:  meta["source_file"],
		Date:        meta["date"],
		StoredAt:    storedAt,
	}
}
