package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashContent(t *testing.T) {
	t.Run("identical input produces identical hash", func(t *testing.T) {
		meta := map[string]string{"title": "Report", "url": "https://example.com"}
		h1 := HashContent("some text", meta)
		h2 := HashContent("some text", map[string]string{"url": "https://example.com", "title": "Report"})
		assert.Equal(t, h1, h2)
	})

	t.Run("text change produces different hash", func(t *testing.T) {
		h1 := HashContent("some text", nil)
		h2 := HashContent("other text", nil)
		assert.NotEqual(t, h1, h2)
	})

	t.Run("metadata change produces different hash", func(t *testing.T) {
		h1 := HashContent("some text", map[string]string{"title": "A"})
		h2 := HashContent("some text", map[string]string{"title": "B"})
		assert.NotEqual(t, h1, h2)
	})

	t.Run("key and value bytes do not collide", func(t *testing.T) {
		h1 := HashContent("", map[string]string{"ab": "c"})
		h2 := HashContent("", map[string]string{"a": "bc"})
		assert.NotEqual(t, h1, h2)
	})
}

func TestSourceTypeIsValid(t *testing.T) {
	assert.True(t, SourceTypeFile.IsValid())
	assert.True(t, SourceTypeWiki.IsValid())
	assert.True(t, SourceTypeTicket.IsValid())
	assert.True(t, SourceTypeSocial.IsValid())
	assert.False(t, SourceType("bogus").IsValid())
}

func TestSourceUnitKey(t *testing.T) {
	u := SourceUnit{SourceID: "doc-1", SourceType: SourceTypeWiki}
	key := u.Key()
	assert.Equal(t, SourceTypeWiki, key.SourceType)
	assert.Equal(t, "doc-1", key.SourceID)
	assert.Equal(t, "wiki/doc-1", key.String())
}
