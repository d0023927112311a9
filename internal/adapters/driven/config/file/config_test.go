package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	settings, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "chunking = [broken")

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestSettings_OverridesApply(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/tmp/ragline-test"

[chunking]
max_size = 800
overlap = 100

[retrieval]
top_k = 5
semantic_weight = 0.6
lexical_weight = 0.4
boost_ceiling = 2.5

[[retrieval.boosts]]
pattern = "runbook"
multiplier = 1.5

[rerank]
enabled = false
timeout_ms = 750

[context]
token_budget = 2000
token_buffer = 200
min_viable_tokens = 30

[ingestion]
workers = 8

[ollama]
model = "all-minilm"
dimensions = 384

[qdrant]
enabled = true
addr = "localhost:6334"
collection = "ragline"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	settings, err := cfg.Settings()
	require.NoError(t, err)

	assert.Equal(t, 800, settings.ChunkMaxSize)
	assert.Equal(t, 100, settings.ChunkOverlap)
	assert.Equal(t, 5, settings.TopK)
	assert.Equal(t, domain.Weights{Semantic: 0.6, Lexical: 0.4}, settings.Weights)
	assert.Equal(t, 2.5, settings.BoostCeiling)
	require.Len(t, settings.Boosts, 1)
	assert.Equal(t, domain.DomainBoost{Pattern: "runbook", Multiplier: 1.5}, settings.Boosts[0])
	assert.False(t, settings.RerankEnabled)
	assert.Equal(t, 750*time.Millisecond, settings.RerankTimeout)
	assert.Equal(t, 2000, settings.TokenBudget)
	assert.Equal(t, 8, settings.Workers)

	assert.Equal(t, "all-minilm", cfg.Ollama.Model)
	assert.True(t, cfg.Qdrant.Enabled)
	assert.Equal(t, "localhost:6334", cfg.Qdrant.Addr)
}

func TestSettings_InvalidValuesRejected(t *testing.T) {
	path := writeConfig(t, `
[chunking]
max_size = 100
overlap = 200
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.Settings()
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestSettings_PartialOverrideKeepsOtherDefaults(t *testing.T) {
	path := writeConfig(t, `
[retrieval]
top_k = 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	settings, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, 3, settings.TopK)
	assert.Equal(t, domain.DefaultChunkMaxSize, settings.ChunkMaxSize)
	assert.True(t, settings.RerankEnabled, "unset rerank flag keeps the default")
}
