package ai

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/promptdeck/promptdeck/internal/domain"
)

// GeminiProvider calls the Gemini API.
type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	contents, config := geminiRequest(req)

	started := time.Now()

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return domain.CompletionResponse{}, fmt.Errorf("gemini api error: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return domain.CompletionResponse{}, fmt.Errorf("gemini returned no candidates")
	}

	var text string

	if content := resp.Candidates[0].Content; content != nil {
		for _, part := range content.Parts {
			text += part.Text
		}
	}

	result := domain.CompletionResponse{
		Text:      text,
		LatencyMS: time.Since(started).Milliseconds(),
	}

	if resp.UsageMetadata != nil {
		result.TokensIn = int64(resp.UsageMetadata.PromptTokenCount)
		result.TokensOut = int64(resp.UsageMetadata.CandidatesTokenCount)
	}

	return result, nil
}

func (p *GeminiProvider) StreamComplete(ctx context.Context, req domain.CompletionRequest) (<-chan domain.CompletionChunk, error) {
	contents, config := geminiRequest(req)

	chunks := make(chan domain.CompletionChunk)

	go func() {
		defer close(chunks)

		for resp, err := range p.client.Models.GenerateContentStream(ctx, req.Model, contents, config) {
			if err != nil {
				return
			}

			for _, candidate := range resp.Candidates {
				if candidate.Content == nil {
					continue
				}

				for _, part := range candidate.Content.Parts {
					if part.Text == "" {
						continue
					}

					if !emitChunk(ctx, chunks, domain.CompletionChunk{Text: part.Text}) {
						return
					}
				}
			}
		}

		emitChunk(ctx, chunks, domain.CompletionChunk{Done: true})
	}()

	return chunks, nil
}

func geminiRequest(req domain.CompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	var contents []*genai.Content
	var systemParts []*genai.Part

	for _, msg := range req.Messages {
		if msg.Role == domain.ChatRoleSystem {
			systemParts = append(systemParts, genai.NewPartFromText(msg.Content))
			continue
		}

		// Gemini only knows the user and model roles.
		role := "user"
		if msg.Role == domain.ChatRoleAssistant {
			role = "model"
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	if len(systemParts) > 0 {
		config.SystemInstruction = &genai.Content{Parts: systemParts}
	}

	return contents, config
}
