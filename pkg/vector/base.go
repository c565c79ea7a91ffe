// Package vector defines the embedding-backend interface the retrieval
// and indexing layers consume, along with the fixed point payload schema.
//
// Implementations (Qdrant, chromem, SQLite, PostgreSQL) live in
// subpackages. Callers treat every backend call as individually
// fault-tolerant: a failure on one collection must not abort the others.
package vector

import (
	"context"
	"fmt"
	"time"
)

// Payload is the fixed schema attached to every indexed point. It is
// validated once at the serialization boundary; backends never see
// free-form maps.
type Payload struct {
	// Content is the chunk text.
	Content string `json:"content"`

	// ChunkIndex is this chunk's position within its source file.
	ChunkIndex int `json:"chunk_index"`

	// TotalChunks is the number of chunks the source file produced.
	TotalChunks int `json:"total_chunks"`

	// Tier is the memory tier the chunk came from (working, weekly, archive).
	Tier string `json:"memory_tier"`

	// Collection is the entity-centric collection the chunk was routed to.
	Collection string `json:"collection"`

	// SourceFile is the originating tier file.
	SourceFile string `json:"source_file"`

	// Date is the source file's calendar date, when the filename carries one.
	Date string `json:"date,omitempty"`

	// StoredAt is when the chunk was indexed.
	StoredAt time.Time `json:"stored_at"`
}

// Validate checks the payload shape before it crosses into a backend.
func (p *Payload) Validate() error {
	if p.Content == "" {
		return fmt.Errorf("payload: empty content")
	}
	if p.Collection == "" {
		return fmt.Errorf("payload: empty collection")
	}
	if p.TotalChunks < 1 || p.ChunkIndex < 0 || p.ChunkIndex >= p.TotalChunks {
		return fmt.Errorf("payload: chunk %d out of range (total %d)", p.ChunkIndex, p.TotalChunks)
	}
	return nil
}

// Point is one embedded chunk ready for upsert.
type Point struct {
	// ID is the stable point identifier. Re-indexing the same source
	// chunk produces the same ID, making upserts idempotent.
	ID int64

	// Vector is the embedding.
	Vector []float64

	// Payload is the attached metadata.
	Payload Payload
}

// Scored is one similarity hit returned by a backend.
type Scored struct {
	// Collection is the collection the hit came from.
	Collection string

	// Score is the similarity score, higher is better.
	Score float64

	// Payload is the stored point payload.
	Payload Payload
}

// Store is the embedding-backend interface.
type Store interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, name string) error

	// Upsert writes points into a collection, replacing points with the
	// same ID.
	Upsert(ctx context.Context, collection string, points []Point) error

	// QuerySimilar returns up to limit points most similar to the query
	// vector, sorted by descending score.
	QuerySimilar(ctx context.Context, collection string, vector []float64, limit int) ([]Scored, error)

	// PointCount returns the number of points stored in a collection.
	PointCount(ctx context.Context, name string) (int, error)

	// Close releases backend resources.
	Close() error
}

// ToFloat32 converts an embedding to the float32 form most backends use
// on the wire.
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
