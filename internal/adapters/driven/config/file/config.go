// Package file loads ragline configuration from a TOML file and maps it
// onto the core settings.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
)

// Config is the on-disk TOML layout. Zero values fall back to the core
// defaults when mapped to settings.
type Config struct {
	DataDir string `toml:"data_dir"`

	Chunking struct {
		MaxSize int `toml:"max_size"`
		Overlap int `toml:"overlap"`
	} `toml:"chunking"`

	Retrieval struct {
		TopK           int           `toml:"top_k"`
		SemanticWeight float64       `toml:"semantic_weight"`
		LexicalWeight  float64       `toml:"lexical_weight"`
		BoostCeiling   float64       `toml:"boost_ceiling"`
		Boosts         []BoostConfig `toml:"boosts"`
	} `toml:"retrieval"`

	Rerank struct {
		Enabled   *bool `toml:"enabled"`
		TimeoutMS int   `toml:"timeout_ms"`
	} `toml:"rerank"`

	Context struct {
		TokenBudget     int `toml:"token_budget"`
		TokenBuffer     int `toml:"token_buffer"`
		MinViableTokens int `toml:"min_viable_tokens"`
	} `toml:"context"`

	Ingestion struct {
		Workers int `toml:"workers"`
	} `toml:"ingestion"`

	Ollama struct {
		BaseURL           string  `toml:"base_url"`
		Model             string  `toml:"model"`
		Dimensions        int     `toml:"dimensions"`
		RequestsPerSecond float64 `toml:"requests_per_second"`
	} `toml:"ollama"`

	Qdrant struct {
		Enabled    bool   `toml:"enabled"`
		Addr       string `toml:"addr"`
		Collection string `toml:"collection"`
	} `toml:"qdrant"`

	Sources struct {
		Paths      []string `toml:"paths"`
		Extensions []string `toml:"extensions"`
	} `toml:"sources"`
}

// BoostConfig is one domain boost rule.
type BoostConfig struct {
	Pattern    string  `toml:"pattern"`
	Multiplier float64 `toml:"multiplier"`
}

// DefaultPath returns the default config file location
// (~/.ragline/config.toml).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".ragline", "config.toml"), nil
}

// Load reads the config file at path. A missing file yields an empty
// config (all defaults); a malformed file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrInvalidConfig, path, err)
	}
	return &cfg, nil
}

// Settings maps the file config onto core settings, filling defaults for
// anything the file leaves unset, and validates the result.
func (c *Config) Settings() (domain.Settings, error) {
	s := domain.DefaultSettings()

	if c.Chunking.MaxSize > 0 {
		s.ChunkMaxSize = c.Chunking.MaxSize
	}
	if c.Chunking.Overlap > 0 {
		s.ChunkOverlap = c.Chunking.Overlap
	}
	if c.Retrieval.TopK > 0 {
		s.TopK = c.Retrieval.TopK
	}
	if c.Retrieval.SemanticWeight > 0 || c.Retrieval.LexicalWeight > 0 {
		s.Weights = domain.Weights{
			Semantic: c.Retrieval.SemanticWeight,
			Lexical:  c.Retrieval.LexicalWeight,
		}
	}
	if c.Retrieval.BoostCeiling > 0 {
		s.BoostCeiling = c.Retrieval.BoostCeiling
	}
	for _, b := range c.Retrieval.Boosts {
		s.Boosts = append(s.Boosts, domain.DomainBoost{
			Pattern:    b.Pattern,
			Multiplier: b.Multiplier,
		})
	}
	if c.Rerank.Enabled != nil {
		s.RerankEnabled = *c.Rerank.Enabled
	}
	if c.Rerank.TimeoutMS > 0 {
		s.RerankTimeout = time.Duration(c.Rerank.TimeoutMS) * time.Millisecond
	}
	if c.Context.TokenBudget > 0 {
		s.TokenBudget = c.Context.TokenBudget
	}
	if c.Context.TokenBuffer > 0 {
		s.TokenBuffer = c.Context.TokenBuffer
	}
	if c.Context.MinViableTokens > 0 {
		s.MinViableTokens = c.Context.MinViableTokens
	}
	if c.Ingestion.Workers > 0 {
		s.Workers = c.Ingestion.Workers
	}

	if err := s.Validate(); err != nil {
		return domain.Settings{}, err
	}
	return s, nil
}
