package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimator_Count(t *testing.T) {
	e := NewEstimator()

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "   \n\t ", 0},
		{"single char", "a", 1},
		{"exactly four chars", "abcd", 1},
		{"five chars rounds up", "abcde", 2},
		{"surrounding whitespace ignored", "  abcd  ", 1},
		{"longer text", strings.Repeat("word ", 20), 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Count(tt.text))
		})
	}
}

func TestEstimator_Monotonic(t *testing.T) {
	e := NewEstimator()
	short := e.Count("a short sentence")
	long := e.Count("a considerably longer sentence with many more words in it")
	assert.Greater(t, long, short)
}
