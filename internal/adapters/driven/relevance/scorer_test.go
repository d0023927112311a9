package relevance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorer_CoverageOrdersResults(t *testing.T) {
	s := NewScorer()

	scores, err := s.Score(context.Background(), "database connection timeout", []string{
		"the database connection hit a timeout during failover",
		"database maintenance window announcement",
		"frontend styling guidelines",
	})
	require.NoError(t, err)
	require.Len(t, scores, 3)

	assert.Greater(t, scores[0], scores[1], "full coverage beats partial")
	assert.Greater(t, scores[1], scores[2], "partial coverage beats none")
	assert.Zero(t, scores[2])
}

func TestScorer_ProximityBreaksCoverageTies(t *testing.T) {
	s := NewScorer()

	scores, err := s.Score(context.Background(), "retry backoff", []string{
		"the client uses retry with exponential backoff on failure",
		"retry the request " + filler(30) + " backoff applies eventually",
	})
	require.NoError(t, err)

	assert.Greater(t, scores[0], scores[1], "adjacent terms outrank distant ones")
}

func TestScorer_EmptyQueryScoresZero(t *testing.T) {
	s := NewScorer()

	scores, err := s.Score(context.Background(), "  !!  ", []string{"anything"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, scores)
}

func TestScorer_CancelledContext(t *testing.T) {
	s := NewScorer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Score(ctx, "query", []string{"text"})
	assert.ErrorIs(t, err, context.Canceled)
}

func filler(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += "padding "
	}
	return out
}
