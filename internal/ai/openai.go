package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/promptdeck/promptdeck/internal/domain"
)

// OpenAIProvider calls the OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: openAIMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	started := time.Now()

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return domain.CompletionResponse{}, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return domain.CompletionResponse{}, fmt.Errorf("openai returned no choices")
	}

	return domain.CompletionResponse{
		Text:      resp.Choices[0].Message.Content,
		TokensIn:  int64(resp.Usage.PromptTokens),
		TokensOut: int64(resp.Usage.CompletionTokens),
		LatencyMS: time.Since(started).Milliseconds(),
	}, nil
}

func (p *OpenAIProvider) StreamComplete(ctx context.Context, req domain.CompletionRequest) (<-chan domain.CompletionChunk, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: openAIMessages(req.Messages),
		Stream:   true,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai stream error: %w", err)
	}

	chunks := make(chan domain.CompletionChunk)

	go func() {
		defer close(chunks)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					emitChunk(ctx, chunks, domain.CompletionChunk{Done: true})
				}
				return
			}

			if len(resp.Choices) == 0 {
				continue
			}

			if text := resp.Choices[0].Delta.Content; text != "" {
				if !emitChunk(ctx, chunks, domain.CompletionChunk{Text: text}) {
					return
				}
			}
		}
	}()

	return chunks, nil
}

func openAIMessages(messages []domain.ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case domain.ChatRoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case domain.ChatRoleSystem:
			role = openai.ChatMessageRoleSystem
		}

		result = append(result, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	return result
}
