package services

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
	"github.com/custodia-labs/ragline-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ragline-cli/internal/logger"
)

// ContextAssembler packs ranked candidates into a token budget. Chunks are
// taken greedily in rank order; only the final included chunk may be
// truncated, and never below the minimum viable length.
type ContextAssembler struct {
	counter   driven.TokenCounter
	budget    int
	buffer    int
	minViable int
}

// NewContextAssembler creates an assembler for the given budget. The buffer
// is reserved headroom for the prompt template and generation overhead and
// is subtracted from the budget before packing.
func NewContextAssembler(counter driven.TokenCounter, budget, buffer, minViable int) (*ContextAssembler, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("%w: token budget must be > 0, got %d", domain.ErrInvalidConfig, budget)
	}
	if buffer < 0 || buffer >= budget {
		return nil, fmt.Errorf("%w: token buffer (%d) must be >= 0 and below the budget (%d)",
			domain.ErrInvalidConfig, buffer, budget)
	}
	if minViable <= 0 {
		return nil, fmt.Errorf("%w: minimum viable tokens must be > 0, got %d",
			domain.ErrInvalidConfig, minViable)
	}
	return &ContextAssembler{
		counter:   counter,
		budget:    budget,
		buffer:    buffer,
		minViable: minViable,
	}, nil
}

// Assemble packs candidates into the effective budget (budget minus
// buffer). A chunk that does not fit whole is truncated to the remaining
// room if that room is at least the minimum viable length; otherwise
// packing stops. An effective budget below the minimum viable length is
// an ErrBudgetTooSmall, as is a top candidate that cannot be truncated to
// that length.
func (a *ContextAssembler) Assemble(candidates []domain.RetrievalCandidate) (*domain.AssembledContext, error) {
	effective := a.budget - a.buffer
	if effective < a.minViable {
		return nil, fmt.Errorf("%w: effective budget %d below minimum viable %d",
			domain.ErrBudgetTooSmall, effective, a.minViable)
	}

	assembled := &domain.AssembledContext{
		Entries: []domain.ContextEntry{},
		Budget:  a.budget,
		Buffer:  a.buffer,
	}

	remaining := effective
	packable := false
	for rank, c := range candidates {
		if remaining < a.minViable {
			break
		}

		tokens := a.counter.Count(c.Text)
		if tokens == 0 {
			continue
		}
		packable = true

		if tokens <= remaining {
			assembled.Entries = append(assembled.Entries, domain.ContextEntry{
				ChunkID: c.ChunkID,
				Rank:    rank + 1,
				Text:    c.Text,
				Tokens:  tokens,
			})
			remaining -= tokens
			continue
		}

		// Truncate the first chunk that overflows, then stop. Later
		// chunks rank lower and must not leapfrog a truncated one.
		text, tokens := a.truncate(c.Text, remaining)
		if tokens >= a.minViable {
			assembled.Entries = append(assembled.Entries, domain.ContextEntry{
				ChunkID:   c.ChunkID,
				Rank:      rank + 1,
				Text:      text,
				Tokens:    tokens,
				Truncated: true,
			})
			remaining -= tokens
		}
		break
	}

	// The budget is too small when there was something to pack but even
	// the top candidate could not be truncated to a viable length.
	if packable && len(assembled.Entries) == 0 {
		return nil, fmt.Errorf("%w: top candidate cannot reach minimum viable %d within %d tokens",
			domain.ErrBudgetTooSmall, a.minViable, effective)
	}

	assembled.TotalTokens = effective - remaining
	logger.Debug("Assembled %d entries, %d/%d tokens",
		len(assembled.Entries), assembled.TotalTokens, effective)
	return assembled, nil
}

// truncate cuts text to at most budget tokens, preferring sentence
// boundaries and falling back to word boundaries when no whole sentence
// fits. Returns the cut text and its token count.
func (a *ContextAssembler) truncate(text string, budget int) (string, int) {
	sentences := splitSentences(text)
	if cut, tokens := a.pack(sentences, budget); tokens > 0 {
		return cut, tokens
	}
	return a.pack(strings.Fields(text), budget)
}

// pack accumulates parts until adding the next would exceed budget.
func (a *ContextAssembler) pack(parts []string, budget int) (string, int) {
	var b strings.Builder
	tokens := 0
	for _, part := range parts {
		candidate := part
		if b.Len() > 0 {
			candidate = b.String() + " " + part
		}
		n := a.counter.Count(candidate)
		if n > budget {
			break
		}
		b.Reset()
		b.WriteString(candidate)
		tokens = n
	}
	return b.String(), tokens
}

// splitSentences splits on sentence-ending punctuation followed by
// whitespace. The terminator stays with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		s := strings.TrimSpace(string(runes[start : i+1]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
