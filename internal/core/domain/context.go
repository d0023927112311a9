package domain

import "strings"

// ContextEntry is one chunk's contribution to an assembled context.
type ContextEntry struct {
	// ChunkID identifies the contributing chunk, for provenance/citation.
	ChunkID string

	// Rank is the chunk's final position in the reranked ordering.
	Rank int

	// Text is the included text, possibly truncated for the last entry.
	Text string

	// Tokens is the token count of Text.
	Tokens int

	// Truncated is true if Text was cut to fit the remaining budget.
	Truncated bool
}

// AssembledContext is the token-budgeted context handed to the generation
// call, together with provenance for every contributing chunk.
type AssembledContext struct {
	// Entries is the ordered sequence of included chunks.
	Entries []ContextEntry

	// TotalTokens is the cumulative token count over all entries.
	// Always <= Budget - Buffer.
	TotalTokens int

	// Budget and Buffer record the limits the assembly ran under.
	Budget int
	Buffer int
}

// Text joins the entry texts with blank lines, in rank order.
func (c AssembledContext) Text() string {
	parts := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		parts[i] = e.Text
	}
	return strings.Join(parts, "\n\n")
}

// ChunkIDs returns the contributing chunk IDs in rank order.
func (c AssembledContext) ChunkIDs() []string {
	ids := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		ids[i] = e.ChunkID
	}
	return ids
}
