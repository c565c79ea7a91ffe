package core

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/openclaw/memorybrain/pkg/embedder/openai"
	"github.com/openclaw/memorybrain/pkg/vector/chromem"
	"github.com/openclaw/memorybrain/pkg/vector/postgres"
	"github.com/openclaw/memorybrain/pkg/vector/qdrant"
	"github.com/openclaw/memorybrain/pkg/vector/sqlite"
)

// CollectionConfig names one entity-centric collection and the keywords
// that route content into it.
type CollectionConfig struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// PruningConfig controls the retention policy.
type PruningConfig struct {
	// DailyFileRetentionDays is how long daily files stay in the
	// working tier before moving to the archive.
	DailyFileRetentionDays int `json:"daily_file_retention_days"`

	// ShortTermVectorDays bounds the recent window lexical daily
	// queries scan.
	ShortTermVectorDays int `json:"short_term_vector_days"`

	// AutoPruneEnabled runs pruning as part of consolidation.
	AutoPruneEnabled bool `json:"auto_prune_enabled"`
}

// VectorConfig selects and configures the embedding backend.
type VectorConfig struct {
	// Provider is one of: qdrant, chromem, sqlite, postgres, none.
	// "none" disables the semantic leg; retrieval runs lexical-only.
	Provider string `json:"provider"`

	Qdrant   qdrant.Config   `json:"qdrant"`
	Chromem  chromem.Config  `json:"chromem"`
	SQLite   sqlite.Config   `json:"sqlite"`
	Postgres postgres.Config `json:"postgres"`
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	// Provider is one of: openai, none.
	Provider string `json:"provider"`

	OpenAI openai.Config `json:"openai"`
}

// RetrievalConfig tunes the query router.
type RetrievalConfig struct {
	TimeoutSeconds int `json:"timeout_seconds"`
	DefaultLimit   int `json:"default_limit"`
}

// ScheduleConfig holds the cron expressions for the lifecycle jobs.
type ScheduleConfig struct {
	Enabled         bool   `json:"enabled"`
	ConsolidateSpec string `json:"consolidate_spec"`
	PruneSpec       string `json:"prune_spec"`
	IndexSpec       string `json:"index_spec"`
}

// Config is the complete engine configuration.
type Config struct {
	// MemoryDir is the root of the file tiers.
	MemoryDir string `json:"memory_dir"`

	// EntitiesDir holds entity records and the quarantine area.
	EntitiesDir string `json:"entities_dir"`

	// LedgerPath is the tracking ledger file.
	LedgerPath string `json:"ledger_path"`

	// DefaultCollection receives content no routing keyword claims.
	DefaultCollection string `json:"default_collection"`

	Collections []CollectionConfig `json:"collections"`
	Pruning     PruningConfig      `json:"pruning"`
	Vector      VectorConfig       `json:"vector"`
	Embedder    EmbedderConfig     `json:"embedder"`
	Retrieval   RetrievalConfig    `json:"retrieval"`
	Schedule    ScheduleConfig     `json:"schedule"`
}

// DefaultConfig returns the configuration used when no file is given.
// The zero-infrastructure defaults: chromem for vectors, no embedder
// (lexical-only retrieval) until an API key is configured.
func DefaultConfig() *Config {
	return &Config{
		MemoryDir:         "memory",
		EntitiesDir:       "memory/entities",
		LedgerPath:        "memory/.ledger.json",
		DefaultCollection: "mem_sessions",
		Collections: []CollectionConfig{
			{Name: "mem_user", Keywords: []string{"user", "preference", "prefer"}},
			{Name: "mem_projects", Keywords: []string{"project", "decision", "decided"}},
			{Name: "mem_distilled", Keywords: []string{"week_", "distilled", "summary"}},
			{Name: "mem_sessions", Keywords: []string{"session"}},
		},
		Pruning: PruningConfig{
			DailyFileRetentionDays: 7,
			ShortTermVectorDays:    30,
			AutoPruneEnabled:       true,
		},
		Vector: VectorConfig{
			Provider: "chromem",
			Chromem:  chromem.Config{Path: "memory/.chromem"},
			Qdrant:   qdrant.Config{Host: "localhost", Port: 6334, Dimensions: openai.DefaultDimensions},
			SQLite:   sqlite.Config{DBPath: "memory/.vectors.db"},
			Postgres: postgres.Config{Host: "localhost", Port: 5432, SSLMode: "disable", Dimensions: openai.DefaultDimensions},
		},
		Embedder: EmbedderConfig{
			Provider: "none",
			OpenAI: openai.Config{
				Model:      openai.DefaultModel,
				Dimensions: openai.DefaultDimensions,
			},
		},
		Retrieval: RetrievalConfig{
			TimeoutSeconds: 5,
			DefaultLimit:   5,
		},
		Schedule: ScheduleConfig{
			Enabled:         false,
			ConsolidateSpec: "0 3 * * 1",
			PruneSpec:       "30 3 * * *",
			IndexSpec:       "0 4 * * *",
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional JSON
// file, and environment variables, in that precedence order (env wins).
// Environment is read after loading a .env file when one exists.
//
// A missing or malformed config file falls back to defaults with a
// warning; configuration problems never abort startup.
func LoadConfig(path string, logger *zap.Logger) *Config {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Best effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("cannot read config file, using defaults",
				zap.String("path", path), zap.Error(err))
		} else if err := json.Unmarshal(data, cfg); err != nil {
			logger.Warn("config file is malformed, using defaults",
				zap.String("path", path), zap.Error(err))
			cfg = DefaultConfig()
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MEMORYBRAIN_DIR"); v != "" {
		c.MemoryDir = v
	}
	if v := os.Getenv("MEMORYBRAIN_LEDGER"); v != "" {
		c.LedgerPath = v
	}
	if v := os.Getenv("MEMORYBRAIN_VECTOR_PROVIDER"); v != "" {
		c.Vector.Provider = v
	}
	if v := os.Getenv("QDRANT_HOST"); v != "" {
		c.Vector.Qdrant.Host = v
	}
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Vector.Qdrant.Port = port
		}
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		c.Vector.Qdrant.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Embedder.OpenAI.APIKey = v
		if c.Embedder.Provider == "" || c.Embedder.Provider == "none" {
			c.Embedder.Provider = "openai"
		}
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.Embedder.OpenAI.BaseURL = v
	}
}

// normalize fills gaps a partial config file may leave.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.MemoryDir == "" {
		c.MemoryDir = def.MemoryDir
	}
	if c.EntitiesDir == "" {
		c.EntitiesDir = def.EntitiesDir
	}
	if c.LedgerPath == "" {
		c.LedgerPath = def.LedgerPath
	}
	if c.DefaultCollection == "" {
		c.DefaultCollection = def.DefaultCollection
	}
	if len(c.Collections) == 0 {
		c.Collections = def.Collections
	}
	if c.Pruning.DailyFileRetentionDays <= 0 {
		c.Pruning.DailyFileRetentionDays = def.Pruning.DailyFileRetentionDays
	}
	if c.Pruning.ShortTermVectorDays <= 0 {
		c.Pruning.ShortTermVectorDays = def.Pruning.ShortTermVectorDays
	}
	if c.Vector.Provider == "" {
		c.Vector.Provider = def.Vector.Provider
	}
	if c.Retrieval.TimeoutSeconds <= 0 {
		c.Retrieval.TimeoutSeconds = def.Retrieval.TimeoutSeconds
	}
	if c.Retrieval.DefaultLimit <= 0 {
		c.Retrieval.DefaultLimit = def.Retrieval.DefaultLimit
	}
}

// CollectionNames returns the configured collection names in order.
func (c *Config) CollectionNames() []string {
	names := make([]string, len(c.Collections))
	for i, col := range c.Collections {
		names[i] = col.Name
	}
	return names
}
