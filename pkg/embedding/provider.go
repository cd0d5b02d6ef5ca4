package embedding

import "context"

// Provider embeds batches of text, returning one vector per input in the
// same order. The repository's upsertMemories/searchMemories depend on
// this to compute embeddings when the caller does not supply them.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
