package domain

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultChunkMaxSize    = 1000
	DefaultChunkOverlap    = 200
	DefaultTopK            = 10
	DefaultSemanticWeight  = 0.7
	DefaultLexicalWeight   = 0.3
	DefaultBoostCeiling    = 3.0
	DefaultRerankTimeout   = 2 * time.Second
	DefaultTokenBudget     = 4000
	DefaultTokenBuffer     = 500
	DefaultMinViableTokens = 20
	DefaultWorkers         = 4
)

// Settings is the configuration surface consumed by the core pipeline.
// Values are format-agnostic; the file config store maps them from TOML.
type Settings struct {
	// Chunking.
	ChunkMaxSize int
	ChunkOverlap int

	// Retrieval.
	TopK         int
	Weights      Weights
	Boosts       []DomainBoost
	BoostCeiling float64

	// Reranking.
	RerankEnabled bool
	RerankTimeout time.Duration

	// Context assembly.
	TokenBudget     int
	TokenBuffer     int
	MinViableTokens int

	// Ingestion worker parallelism.
	Workers int
}

// DefaultSettings returns settings with sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		ChunkMaxSize: DefaultChunkMaxSize,
		ChunkOverlap: DefaultChunkOverlap,
		TopK:         DefaultTopK,
		Weights: Weights{
			Semantic: DefaultSemanticWeight,
			Lexical:  DefaultLexicalWeight,
		},
		BoostCeiling:    DefaultBoostCeiling,
		RerankEnabled:   true,
		RerankTimeout:   DefaultRerankTimeout,
		TokenBudget:     DefaultTokenBudget,
		TokenBuffer:     DefaultTokenBuffer,
		MinViableTokens: DefaultMinViableTokens,
		Workers:         DefaultWorkers,
	}
}

// Validate checks the settings for consistency. Any violation is fatal at
// startup and wraps ErrInvalidConfig.
func (s Settings) Validate() error {
	if s.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap must be >= 0, got %d", ErrInvalidConfig, s.ChunkOverlap)
	}
	if s.ChunkMaxSize <= s.ChunkOverlap {
		return fmt.Errorf("%w: chunk max size (%d) must exceed overlap (%d)",
			ErrInvalidConfig, s.ChunkMaxSize, s.ChunkOverlap)
	}
	if s.TopK <= 0 {
		return fmt.Errorf("%w: topK must be > 0, got %d", ErrInvalidConfig, s.TopK)
	}
	if s.Weights.Semantic < 0 || s.Weights.Lexical < 0 {
		return fmt.Errorf("%w: weights must be >= 0", ErrInvalidConfig)
	}
	if s.Weights.Semantic == 0 && s.Weights.Lexical == 0 {
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidConfig)
	}
	if s.BoostCeiling < 1 {
		return fmt.Errorf("%w: boost ceiling must be >= 1, got %g", ErrInvalidConfig, s.BoostCeiling)
	}
	for _, b := range s.Boosts {
		if b.Pattern == "" {
			return fmt.Errorf("%w: boost pattern must not be empty", ErrInvalidConfig)
		}
		if b.Multiplier < 1 {
			return fmt.Errorf("%w: boost multiplier for %q must be >= 1, got %g",
				ErrInvalidConfig, b.Pattern, b.Multiplier)
		}
	}
	if s.RerankEnabled && s.RerankTimeout <= 0 {
		return fmt.Errorf("%w: rerank timeout must be > 0 when reranking is enabled", ErrInvalidConfig)
	}
	if s.TokenBudget <= 0 {
		return fmt.Errorf("%w: token budget must be > 0, got %d", ErrInvalidConfig, s.TokenBudget)
	}
	if s.TokenBuffer < 0 || s.TokenBuffer >= s.TokenBudget {
		return fmt.Errorf("%w: token buffer (%d) must be >= 0 and below the budget (%d)",
			ErrInvalidConfig, s.TokenBuffer, s.TokenBudget)
	}
	if s.MinViableTokens <= 0 {
		return fmt.Errorf("%w: minimum viable tokens must be > 0, got %d", ErrInvalidConfig, s.MinViableTokens)
	}
	if s.Workers <= 0 {
		return fmt.Errorf("%w: worker count must be > 0, got %d", ErrInvalidConfig, s.Workers)
	}
	return nil
}
