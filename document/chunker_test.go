package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/retrievio/core"
)

func TestNewChunker_Invalid(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{
		{0, 0}, {-1, 0}, {10, 10}, {10, 11}, {10, -1},
	} {
		_, err := NewChunker(tc.size, tc.overlap)
		assert.ErrorIs(t, err, ErrInvalidChunkConfig, "size=%d overlap=%d", tc.size, tc.overlap)
	}
}

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	c, err := NewChunker(100, 20)
	require.NoError(t, err)

	chunks := c.Split("short text", map[string]string{core.MetaFileName: "a.txt"})
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 10, chunks[0].EndOffset)
	assert.Equal(t, "a.txt", chunks[0].Metadata[core.MetaFileName])
	assert.Equal(t, "0", chunks[0].Metadata[core.MetaStartIdx])
	assert.Equal(t, "10", chunks[0].Metadata[core.MetaEndIdx])
}

func TestChunker_EmptyText(t *testing.T) {
	c, err := NewChunker(10, 2)
	require.NoError(t, err)
	assert.Empty(t, c.Split("", nil))
}

func TestChunker_BreaksOnSpaceWithOverlap(t *testing.T) {
	c, err := NewChunker(10, 3)
	require.NoError(t, err)

	text := "aaaa bbbb cccc dddd"
	chunks := c.Split(text, nil)
	require.NotEmpty(t, chunks)

	assert.Equal(t, "aaaa bbbb ", chunks[0].Text)
	assert.Equal(t, 10, chunks[0].EndOffset)
	assert.Equal(t, 7, chunks[1].StartOffset)

	last := chunks[len(chunks)-1]
	assert.Equal(t, len(text), last.EndOffset)
	for i, ch := range chunks {
		assert.Equal(t, text[ch.StartOffset:ch.EndOffset], ch.Text, "chunk %d", i)
		require.NoError(t, core.ValidateChunk(&ch))
		if i > 0 {
			assert.Greater(t, ch.StartOffset, chunks[i-1].StartOffset)
		}
	}
}

func TestChunker_HardCutWithoutSpaces(t *testing.T) {
	c, err := NewChunker(10, 2)
	require.NoError(t, err)

	text := strings.Repeat("x", 25)
	chunks := c.Split(text, nil)
	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 10, chunks[0].EndOffset)
	assert.Equal(t, 8, chunks[1].StartOffset)
	assert.Equal(t, 18, chunks[1].EndOffset)
	assert.Equal(t, 16, chunks[2].StartOffset)
	assert.Equal(t, 25, chunks[2].EndOffset)
}

func TestChunker_RuneOffsets(t *testing.T) {
	c, err := NewChunker(4, 1)
	require.NoError(t, err)

	chunks := c.Split("héllo wörld", nil)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.Equal(t, string([]rune("héllo wörld")[ch.StartOffset:ch.EndOffset]), ch.Text)
	}
}

func TestChunker_DoesNotShareMetadata(t *testing.T) {
	c, err := NewChunker(5, 1)
	require.NoError(t, err)

	md := map[string]string{core.MetaSourceFile: "/tmp/x"}
	chunks := c.Split("one two three four", md)
	require.Greater(t, len(chunks), 1)

	chunks[0].Metadata["extra"] = "y"
	assert.NotContains(t, chunks[1].Metadata, "extra")
	assert.NotContains(t, md, core.MetaStartIdx)
}
