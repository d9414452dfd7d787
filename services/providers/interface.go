package providers

import "context"

// EmbeddingProvider turns text into fixed-dimension vectors. The same provider
// and model serve both ingestion and query-time embedding; a dimension change
// between the two is a configuration error.
type EmbeddingProvider interface {
	// Name returns the provider name (e.g., "openai")
	Name() string

	// Dimension returns the fixed vector dimension produced by the provider
	Dimension() int

	// Embed returns one vector per input text, in input order
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// SearchProvider performs a live web search. Results are ranked by the
// provider; the provider owns its own result limit.
type SearchProvider interface {
	// Name returns the provider name (e.g., "serper", "bing")
	Name() string

	// Search returns ranked web hits for a query
	Search(ctx context.Context, query string) ([]WebResult, error)
}

// WebResult is a single web search hit
type WebResult struct {
	Title    string
	URL      string
	Snippet  string
	Provider string
}

// GenerationProvider produces a grounded answer from instructions, a context
// block and the user query.
type GenerationProvider interface {
	// Name returns the provider name (e.g., "openai")
	Name() string

	// Model returns the configured model identifier
	Model() string

	// Generate returns the answer text
	Generate(ctx context.Context, instructions, contextBlock, query string) (string, error)
}
