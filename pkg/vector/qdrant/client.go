// Package qdrant implements the vector store backed by a Qdrant server.
//
// Point payloads are stored as a single JSON string under the "payload"
// key, keeping the schema definition in one place on the Go side.
package qdrant

import (
	"context"
	"encoding/json"
	"fmt"

	qdrant "github.com/qdrant/go-client/qdrant"

	"github.com/openclaw/memorybrain/pkg/vector"
)

// Config holds the Qdrant connection settings.
type Config struct {
	// Host is the Qdrant gRPC host. Defaults to localhost.
	Host string `json:"host"`

	// Port is the gRPC port. Defaults to 6334.
	Port int `json:"port"`

	// APIKey authenticates against Qdrant Cloud. Optional.
	APIKey string `json:"api_key,omitempty"`

	// UseTLS enables TLS on the gRPC connection.
	UseTLS bool `json:"use_tls"`

	// Dimensions is the vector width used when creating collections.
	Dimensions int `json:"dimensions"`
}

// Store is a vector.Store backed by Qdrant.
type Store struct {
	client *qdrant.Client
	dims   int
}

// NewStore connects to Qdrant using cfg.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrant: dimensions must be positive")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: connect: %w", err)
	}
	return &Store{client: client, dims: cfg.Dimensions}, nil
}

// EnsureCollection creates the collection with cosine distance if it
// does not exist.
func (s *Store) EnsureCollection(ctx context.Context, name string) error {
	existing, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("qdrant: list collections: %w", err)
	}
	for _, c := range existing {
		if c == name {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", name, err)
	}
	return nil
}

// Upsert writes points into the collection, replacing same-ID points.
func (s *Store) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if err := p.Payload.Validate(); err != nil {
			return fmt.Errorf("qdrant: %w", err)
		}
		raw, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("qdrant: marshal payload: %w", err)
		}
		qpoints = append(qpoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(p.ID)),
			Vectors: qdrant.NewVectors(vector.ToFloat32(p.Vector)...),
			Payload: qdrant.NewValueMap(map[string]any{"payload": string(raw)}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qpoints,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert into %s: %w", collection, err)
	}
	return nil
}

// QuerySimilar returns up to limit nearest points by cosine similarity.
func (s *Store) QuerySimilar(ctx context.Context, collection string, vec []float64, limit int) ([]vector.Scored, error) {
	lim := uint64(limit)
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQueryDense(vector.ToFloat32(vec)),
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: query %s: %w", collection, err)
	}

	out := make([]vector.Scored, 0, len(hits))
	for _, hit := range hits {
		var payload vector.Payload
		if raw := hit.Payload["payload"].GetStringValue(); raw != "" {
			if err := json.Unmarshal([]byte(raw), &payload); err != nil {
				continue
			}
		}
		out = append(out, vector.Scored{
			Collection: collection,
			Score:      float64(hit.Score),
			Payload:    payload,
		})
	}
	return out, nil
}

// PointCount returns the number of points in the collection.
func (s *Store) PointCount(ctx context.Context, name string) (int, error) {
	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("qdrant: collection info %s: %w", name, err)
	}
	if info.PointsCount == nil {
		return 0, nil
	}
	return int(*info.PointsCount), nil
}

// Close shuts down the gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}
