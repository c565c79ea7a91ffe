// Package postgres implements the vector store on PostgreSQL with the
// pgvector extension. Similarity search runs server-side with the
// cosine distance operator, so this backend scales past what the
// in-process scans can handle.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/openclaw/memorybrain/pkg/vector"
)

// Config holds the PostgreSQL connection settings.
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`

	// Dimensions is the vector column width used when creating
	// collection tables.
	Dimensions int `json:"dimensions"`
}

var collectionName = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Store is a vector.Store backed by PostgreSQL with pgvector.
type Store struct {
	db   *sql.DB
	dims int
}

// NewStore connects to PostgreSQL and installs the pgvector extension
// if missing.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("postgres: dimensions must be positive")
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: create pgvector extension: %w", err)
	}
	return &Store{db: db, dims: cfg.Dimensions}, nil
}

func checkName(name string) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("postgres: invalid collection name %q", name)
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
			id BIGINT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`, name, s.dims)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("postgres: create collection %s: %w", name, err)
	}
	return nil
}

// Upsert writes points into the collection table in one transaction.
func (s *Store) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	if err := checkName(collection); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, payload) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload`,
		collection)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("postgres: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if err := p.Payload.Validate(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("postgres: marshal payload: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, vectorLiteral(p.Vector), string(payload)); err != nil {
			return fmt.Errorf("postgres: upsert into %s: %w", collection, err)
		}
	}
	return tx.Commit()
}

// QuerySimilar runs a server-side cosine similarity search.
func (s *Store) QuerySimilar(ctx context.Context, collection string, vec []float64, limit int) ([]vector.Scored, error) {
	if err := checkName(collection); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT payload, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, collection)
	rows, err := s.db.QueryContext(ctx, query, vectorLiteral(vec), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []vector.Scored
	for rows.Next() {
		var payloadJSON string
		var score float64
		if err := rows.Scan(&payloadJSON, &score); err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		var payload vector.Payload
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			continue
		}
		out = append(out, vector.Scored{
			Collection: collection,
			Score:      score,
			Payload:    payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows: %w", err)
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
		return 0, fmt.Errorf("postgres: count %s: %w", name, err)
	}
	return count, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// vectorLiteral renders a pgvector input literal, e.g. "[0.1,0.2]".
func vectorLiteral(vec []float64) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
