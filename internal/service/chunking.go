package service

import "strings"

// ChunkConfig controls the word windows used for embeddings.
type ChunkConfig struct {
	Size    int // words per chunk
	Overlap int // words shared by consecutive chunks
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    500,
		Overlap: 50,
	}
}

// ChunkText splits text on whitespace into windows of cfg.Size words joined
// by single spaces. Consecutive windows share cfg.Overlap words. The start
// index always advances, so every word is covered and the loop terminates
// for any overlap.
func ChunkText(text string, cfg ChunkConfig) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}

	chunks := make([]string, 0, len(words)/cfg.Size+1)
	start := 0
	for start < len(words) {
		end := start + cfg.Size
		chunks = append(chunks, strings.Join(words[start:min(end, len(words))], " "))

		next := end - cfg.Overlap
		if next <= start {
			start++
		} else {
			start = next
		}
	}

	return chunks
}
