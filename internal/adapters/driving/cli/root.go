// Package cli provides the cobra command tree for the ragline binary.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/ragline-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragline-cli/internal/adapters/driven/embedding/ollama"
	lexmem "github.com/custodia-labs/ragline-cli/internal/adapters/driven/lexical/memory"
	"github.com/custodia-labs/ragline-cli/internal/adapters/driven/relevance"
	"github.com/custodia-labs/ragline-cli/internal/adapters/driven/source/filesystem"
	storemem "github.com/custodia-labs/ragline-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragline-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragline-cli/internal/adapters/driven/tokens"
	"github.com/custodia-labs/ragline-cli/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/ragline-cli/internal/chunker"
	"github.com/custodia-labs/ragline-cli/internal/core/domain"
	"github.com/custodia-labs/ragline-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ragline-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ragline-cli/internal/core/services"
	"github.com/custodia-labs/ragline-cli/internal/logger"
)

// version is set by Execute from the build.
var version = "dev"

// Flags.
var (
	cfgPath     string
	verboseFlag bool
)

// Services injected by setup. Tests may set these directly.
var (
	settings      domain.Settings
	ingestor      driving.Ingestor
	querySvc      driving.QueryService
	sourceAdapter driven.SourceAdapter
	tracker       driven.TrackerStore
	vectorIndex   driven.VectorIndex
)

var rootCmd = &cobra.Command{
	Use:   "ragline",
	Short: "Incremental ingestion and hybrid retrieval for local RAG pipelines",
	Long: `ragline tracks document sources, ingests only what changed, and answers
queries with hybrid semantic+lexical retrieval, reranking and
token-budgeted context assembly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.ragline/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output on stderr")
}

// Execute runs the command tree.
func Execute(v string) error {
	version = v
	return rootCmd.Execute()
}

// setup wires the pipeline from the config file. Commands that touch the
// pipeline call it from their RunE; version and help never pay the cost.
func setup() error {
	logger.SetVerbose(verboseFlag)

	path := cfgPath
	if path == "" {
		var err error
		path, err = configfile.DefaultPath()
		if err != nil {
			return err
		}
	}

	cfg, err := configfile.Load(path)
	if err != nil {
		return err
	}
	settings, err = cfg.Settings()
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening tracker store: %w", err)
	}
	tracker = store

	embedder := ollama.NewProvider(ollama.Config{
		BaseURL:           cfg.Ollama.BaseURL,
		Model:             cfg.Ollama.Model,
		Dimensions:        cfg.Ollama.Dimensions,
		RequestsPerSecond: cfg.Ollama.RequestsPerSecond,
	})

	if cfg.Qdrant.Enabled {
		collection := cfg.Qdrant.Collection
		if collection == "" {
			collection = "ragline"
		}
		addr := cfg.Qdrant.Addr
		if addr == "" {
			addr = "localhost:6334"
		}
		idx, err := qdrant.NewIndex(addr, collection, embedder.Dimensions())
		if err != nil {
			return fmt.Errorf("connecting vector index: %w", err)
		}
		vectorIndex = idx
	} else {
		// Without qdrant, vectors live only for the current process and
		// queries lean on the lexical index.
		vectorIndex = storemem.NewVectorIndex()
	}

	lexical := lexmem.NewIndex()
	if err := rebuildLexical(lexical); err != nil {
		return fmt.Errorf("rebuilding lexical index: %w", err)
	}

	splitter, err := chunker.New(settings.ChunkMaxSize, settings.ChunkOverlap)
	if err != nil {
		return err
	}

	ingestor = services.NewIngestionCoordinator(
		tracker, vectorIndex, lexical, embedder, splitter, settings.Workers)

	retriever := services.NewHybridRetriever(vectorIndex, lexical, embedder, tracker)

	var reranker services.Reranker = services.NewPassThroughReranker()
	if settings.RerankEnabled {
		reranker = services.NewActiveReranker(relevance.NewScorer(), settings.RerankTimeout)
	}

	assembler, err := services.NewContextAssembler(tokens.NewEstimator(),
		settings.TokenBudget, settings.TokenBuffer, settings.MinViableTokens)
	if err != nil {
		return err
	}

	querySvc = services.NewQueryPipeline(retriever, reranker, assembler, settings)

	if len(cfg.Sources.Paths) > 0 {
		adapter, err := filesystem.New(cfg.Sources.Paths, cfg.Sources.Extensions)
		if err != nil {
			return err
		}
		sourceAdapter = adapter
	}

	return nil
}

// rebuildLexical replays tracked chunks into the in-memory lexical index.
// The lexical index is derived state; the tracker store is the record.
func rebuildLexical(lexical driven.LexicalIndex) error {
	ctx := context.Background()
	entries, err := tracker.ListEntries(ctx)
	if err != nil {
		return err
	}

	indexed := 0
	for _, entry := range entries {
		if entry.Status != domain.StatusActive {
			continue
		}
		for _, id := range entry.ChunkIDs {
			chunk, err := tracker.GetChunk(ctx, id)
			if err != nil {
				logger.Warn("Missing chunk %s for %s: %v", id, entry.Key, err)
				continue
			}
			if err := lexical.Index(ctx, *chunk); err != nil {
				return err
			}
			indexed++
		}
	}
	logger.Debug("Lexical index rebuilt with %d chunks", indexed)
	return nil
}
