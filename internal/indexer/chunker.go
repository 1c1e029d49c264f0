package indexer

import "strings"

// Chunker splits text into overlapping character windows. Sizes are counted in runes.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
// A non-positive size falls back to defaultChunkChars and a negative overlap is treated as 0.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = defaultChunkChars
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

const defaultChunkChars = 1600

// Chunk normalizes whitespace and returns the non-empty windows from left to right.
// Consecutive windows share chunkOverlap characters; each window starts strictly after
// the previous one, so the loop terminates even when the overlap is not smaller than the size.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(Preprocess(text))
	n := len(runes)
	if n == 0 {
		return nil
	}
	var chunks []string
	start := 0
	for {
		end := start + c.chunkSize
		if end > n {
			end = n
		}
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			chunks = append(chunks, piece)
		}
		if end == n {
			break
		}
		next := end - c.chunkOverlap
		if next < 0 {
			next = 0
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}
