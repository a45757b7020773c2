package domain

import (
	"context"
)

type CompletionRequest struct {
	Model     string
	Messages  []ChatMessage
	MaxTokens int
}

type CompletionResponse struct {
	Text      string
	TokensIn  int64
	TokensOut int64
	LatencyMS int64
}

type CompletionChunk struct {
	Text string
	Done bool
}

// ModelProvider is the boundary to an AI model backend. Streamed chunks
// stop when the request context is cancelled; the channel is closed after
// the final chunk.
type ModelProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	StreamComplete(ctx context.Context, req CompletionRequest) (<-chan CompletionChunk, error)
}

// ModelProviderRegistry picks the backend for a model, using the
// organization's stored provider key when one exists and the simulated
// provider otherwise.
type ModelProviderRegistry interface {
	ProviderForModel(ctx context.Context, organizationID, model string) (ModelProvider, error)
}
