package embeddings

import "context"

// Provider generates vector embeddings for market question text. The
// snapshot worker batches through GenerateBatchEmbeddings; single-text
// generation exists for ad-hoc lookups.
type Provider interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// GenerateBatchEmbeddings embeds multiple texts in one API call.
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of the produced vectors. It has
	// to match the pgvector column the embeddings are stored in.
	Dimensions() int

	Name() string
}
