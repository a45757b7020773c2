package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/promptdeck/promptdeck/internal/domain"
)

const simulatedLatencyMS = 1

// SimulatedProvider produces deterministic completions without calling any
// external API. It answers for organizations that have not configured a
// provider key and keeps chat tests network-free.
type SimulatedProvider struct {
	chunkDelay time.Duration
}

func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{}
}

// NewSimulatedProviderWithDelay spaces streamed chunks apart, which makes
// mid-stream cancellation observable.
func NewSimulatedProviderWithDelay(delay time.Duration) *SimulatedProvider {
	return &SimulatedProvider{chunkDelay: delay}
}

func (p *SimulatedProvider) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return domain.CompletionResponse{}, err
	}

	text := p.completionText(req)

	return domain.CompletionResponse{
		Text:      text,
		TokensIn:  estimateTokens(promptText(req.Messages)),
		TokensOut: estimateTokens(text),
		LatencyMS: simulatedLatencyMS,
	}, nil
}

func (p *SimulatedProvider) StreamComplete(ctx context.Context, req domain.CompletionRequest) (<-chan domain.CompletionChunk, error) {
	text := p.completionText(req)
	words := strings.Fields(text)

	chunks := make(chan domain.CompletionChunk)

	go func() {
		defer close(chunks)

		for i, word := range words {
			if p.chunkDelay > 0 {
				select {
				case <-time.After(p.chunkDelay):
				case <-ctx.Done():
					return
				}
			}

			piece := word
			if i < len(words)-1 {
				piece += " "
			}

			if !emitChunk(ctx, chunks, domain.CompletionChunk{Text: piece}) {
				return
			}
		}

		emitChunk(ctx, chunks, domain.CompletionChunk{Done: true})
	}()

	return chunks, nil
}

func (p *SimulatedProvider) completionText(req domain.CompletionRequest) string {
	prompt := lastUserMessage(req.Messages)
	if prompt == "" {
		return fmt.Sprintf("Simulated %s response.", req.Model)
	}

	return fmt.Sprintf("Simulated %s response to: %s", req.Model, prompt)
}

func lastUserMessage(messages []domain.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.ChatRoleUser {
			return messages[i].Content
		}
	}

	return ""
}

func promptText(messages []domain.ChatMessage) string {
	var b strings.Builder

	for _, msg := range messages {
		b.WriteString(msg.Content)
		b.WriteString(" ")
	}

	return b.String()
}

// estimateTokens approximates the usual four-characters-per-token rule.
func estimateTokens(text string) int64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	return int64(len(trimmed)/4 + 1)
}
