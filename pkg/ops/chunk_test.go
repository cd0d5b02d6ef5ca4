package ops

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkText_Basic(t *testing.T) {
	text := strings.Repeat("a", 25)
	chunks := chunkText(text, 10, 2, 24)
	assert.Equal(t, []string{
		strings.Repeat("a", 10),
		strings.Repeat("a", 10),
		strings.Repeat("a", 9),
	}, chunks)
}

func TestChunkText_RespectsMaxChunks(t *testing.T) {
	text := strings.Repeat("a", 1000)
	chunks := chunkText(text, 10, 0, 3)
	assert.Len(t, chunks, 3)
}

func TestChunkText_ShortTextIsOneChunk(t *testing.T) {
	chunks := chunkText("hello", 100, 10, 24)
	assert.Equal(t, []string{"hello"}, chunks)
}
