// Package ai implements the model provider boundary. The simulated provider
// answers deterministically without network access; the OpenAI, Anthropic and
// Gemini providers call the real APIs with an organization's unsealed key.
package ai

import (
	"context"

	"github.com/promptdeck/promptdeck/internal/domain"
)

// emitChunk delivers a chunk unless the consumer cancelled the request.
func emitChunk(ctx context.Context, chunks chan<- domain.CompletionChunk, chunk domain.CompletionChunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
