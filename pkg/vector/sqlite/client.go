// Package sqlite implements the vector store on a local SQLite file.
//
// Embeddings are stored as JSON arrays and similarity is computed in
// Go, which is plenty for the point counts a personal memory store
// reaches. Each collection maps to its own table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/openclaw/memorybrain/pkg/vector"
)

// Config holds the SQLite settings.
type Config struct {
	// DBPath is the database file path.
	DBPath string `json:"db_path"`
}

// collectionName restricts table names to safe identifiers since they
// are interpolated into DDL.
var collectionName = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Store is a vector.Store backed by SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens the database file at cfg.DBPath.
func NewStore(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("sqlite: db path is required")
	}
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.DBPath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Store{db: db}, nil
}

func checkName(name string) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("sqlite: invalid collection name %q", name)
	}
	return nil
}

// EnsureCollection creates the collection table if it does not exist.
func (s *Store) EnsureCollection(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			embedding TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`, name)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("sqlite: create collection %s: %w", name, err)
	}
	return nil
}

// Upsert writes points into the collection table, replacing same-ID
// rows. The batch runs in one transaction.
func (s *Store) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	if err := checkName(collection); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(
		`INSERT OR REPLACE INTO %s (id, embedding, payload) VALUES (?, ?, ?)`, collection)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("sqlite: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if err := p.Payload.Validate(); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		emb, err := json.Marshal(p.Vector)
		if err != nil {
			return fmt.Errorf("sqlite: marshal embedding: %w", err)
		}
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("sqlite: marshal payload: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, string(emb), string(payload)); err != nil {
			return fmt.Errorf("sqlite: upsert into %s: %w", collection, err)
		}
	}
	return tx.Commit()
}

// QuerySimilar scans the collection, scores every row by cosine
// similarity in Go and returns the top limit rows.
func (s *Store) QuerySimilar(ctx context.Context, collection string, vec []float64, limit int) ([]vector.Scored, error) {
	if err := checkName(collection); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT embedding, payload FROM %s`, collection))
	if err != nil {
		return nil, fmt.Errorf("sqlite: query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []vector.Scored
	for rows.Next() {
		var embJSON, payloadJSON string
		if err := rows.Scan(&embJSON, &payloadJSON); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		var emb []float64
		if err := json.Unmarshal([]byte(embJSON), &emb); err != nil {
			continue
		}
		var payload vector.Payload
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			continue
		}
		out = append(out, vector.Scored{
			Collection: collection,
			Score:      cosineSimilarity(vec, emb),
			Payload:    payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PointCount returns the row count of the collection table.
func (s *Store) PointCount(ctx context.Context, name string) (int, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, name)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count %s: %w", name, err)
	}
	return count, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
