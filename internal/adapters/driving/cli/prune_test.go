package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
)

// mockIngestor implements driving.Ingestor for testing.
type mockIngestor struct {
	pruned   int
	pruneErr error
}

func (m *mockIngestor) Reconcile(
	_ context.Context, _ []domain.SourceUnit, _ bool,
) (*domain.IngestionReport, error) {
	return &domain.IngestionReport{}, nil
}

func (m *mockIngestor) PruneOrphans(_ context.Context) (int, error) {
	return m.pruned, m.pruneErr
}

func setupPruneTest(mock *mockIngestor) func() {
	oldIngestor := ingestor
	ingestor = mock
	return func() {
		ingestor = oldIngestor
	}
}

func TestPruneCmd_Use(t *testing.T) {
	assert.Equal(t, "prune", pruneCmd.Use)
}

func TestPruneCmd_ReportsCount(t *testing.T) {
	cleanup := setupPruneTest(&mockIngestor{pruned: 7})
	defer cleanup()

	out, err := execute("prune")
	assert.NoError(t, err)
	assert.Contains(t, out, "Pruned 7 orphaned chunks.")
}

func TestPruneCmd_NothingToPrune(t *testing.T) {
	cleanup := setupPruneTest(&mockIngestor{})
	defer cleanup()

	out, err := execute("prune")
	assert.NoError(t, err)
	assert.Contains(t, out, "No orphaned chunks found.")
}
