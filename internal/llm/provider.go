// Package llm provides clients for external text-generation and embedding
// providers. Clients make a single attempt per call; degradation and retry
// policy belong to the caller.
package llm

import "context"

// Message is one role-tagged turn in a generation request.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// GenerationRequest describes one generation call.
type GenerationRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
}

// Provider is the uniform contract for text-generation providers.
type Provider interface {
	// Complete performs a single generation call and returns the response
	// text. A failed call or a response without usable text content
	// surfaces as *ProviderError.
	Complete(ctx context.Context, req *GenerationRequest) (string, error)

	// CompleteStream performs a streaming generation call, delivering
	// decoded text fragments to onChunk as they arrive, and returns the
	// full accumulated text. Malformed partial frames are skipped;
	// transport failure surfaces as *ProviderError.
	CompleteStream(ctx context.Context, req *GenerationRequest, onChunk func(chunk string)) (string, error)
}

// Embedder is the uniform contract for embedding providers. The embedding
// dimension is fixed by the bound provider model.
type Embedder interface {
	// Embed returns the embedding vector for text, or *EmbeddingError.
	Embed(ctx context.Context, text string) ([]float64, error)
}
