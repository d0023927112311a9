package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
)

// mockQueryService implements driving.QueryService for testing.
type mockQueryService struct {
	candidates  []domain.RetrievalCandidate
	assembled   *domain.AssembledContext
	retrieveErr error
	lastQuery   string
}

func (m *mockQueryService) Retrieve(
	_ context.Context, query string, _ domain.RetrievalOptions,
) ([]domain.RetrievalCandidate, error) {
	m.lastQuery = query
	return m.candidates, m.retrieveErr
}

func (m *mockQueryService) Ask(_ context.Context, query string) (*domain.AssembledContext, error) {
	m.lastQuery = query
	return m.assembled, m.retrieveErr
}

func setupQueryTest(mock *mockQueryService) func() {
	oldSvc := querySvc
	querySvc = mock
	return func() {
		querySvc = oldSvc
	}
}

func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestQueryCmd_Use(t *testing.T) {
	assert.Equal(t, "query <text...>", queryCmd.Use)
}

func TestQueryCmd_RequiresArgs(t *testing.T) {
	cleanup := setupQueryTest(&mockQueryService{})
	defer cleanup()

	_, err := execute("query")
	assert.Error(t, err)
}

func TestQueryCmd_PrintsCandidates(t *testing.T) {
	mock := &mockQueryService{
		candidates: []domain.RetrievalCandidate{
			{
				ChunkID:       "chunk-1",
				Text:          "payment retries use exponential backoff",
				CombinedScore: 0.91,
				SemanticScore: 0.8,
				LexicalScore:  1.2,
				BoostApplied:  1.0,
			},
		},
	}
	cleanup := setupQueryTest(mock)
	defer cleanup()

	out, err := execute("query", "payment", "retries")
	assert.NoError(t, err)
	assert.Equal(t, "payment retries", mock.lastQuery, "args join into one query")
	assert.Contains(t, out, "chunk-1")
	assert.Contains(t, out, "exponential backoff")
}

func TestQueryCmd_NoResults(t *testing.T) {
	cleanup := setupQueryTest(&mockQueryService{})
	defer cleanup()

	out, err := execute("query", "nothing")
	assert.NoError(t, err)
	assert.Contains(t, out, "No results.")
}

func TestAskCmd_PrintsAssembledContext(t *testing.T) {
	mock := &mockQueryService{
		assembled: &domain.AssembledContext{
			Entries: []domain.ContextEntry{
				{ChunkID: "chunk-1", Rank: 1, Text: "first passage", Tokens: 2},
				{ChunkID: "chunk-2", Rank: 2, Text: "second passage", Tokens: 2, Truncated: true},
			},
			TotalTokens: 4,
			Budget:      100,
			Buffer:      10,
		},
	}
	cleanup := setupQueryTest(mock)
	defer cleanup()

	out, err := execute("ask", "--sources", "what", "happened")
	assert.NoError(t, err)
	assert.Contains(t, out, "first passage\n\nsecond passage")
	assert.Contains(t, out, "chunk-2 (truncated)")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 10))
	assert.Equal(t, "a b c", snippet("a\n b \t c", 10))
	assert.Equal(t, "abcde...", snippet("abcdefghij", 5))
}
