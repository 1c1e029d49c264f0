package indexer

import (
	"strings"
	"testing"
)

func BenchmarkChunk(b *testing.B) {
	text := strings.Repeat("Channels are typed conduits through which you send and receive values. ", 2000)
	c := NewChunker(1600, 200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Chunk(text)
	}
}
