package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/promptdeck/promptdeck/internal/domain"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicProvider calls the Anthropic messages API.
type AnthropicProvider struct {
	client anthropic.Client
}

func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (p *AnthropicProvider) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	params := anthropicParams(req)

	started := time.Now()

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return domain.CompletionResponse{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder

	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return domain.CompletionResponse{
		Text:      text.String(),
		TokensIn:  resp.Usage.InputTokens,
		TokensOut: resp.Usage.OutputTokens,
		LatencyMS: time.Since(started).Milliseconds(),
	}, nil
}

func (p *AnthropicProvider) StreamComplete(ctx context.Context, req domain.CompletionRequest) (<-chan domain.CompletionChunk, error) {
	params := anthropicParams(req)

	stream := p.client.Messages.NewStreaming(ctx, params)

	chunks := make(chan domain.CompletionChunk)

	go func() {
		defer close(chunks)
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			if event.Type != "content_block_delta" {
				continue
			}

			delta := event.Delta
			if delta.Type != "text_delta" || delta.Text == "" {
				continue
			}

			if !emitChunk(ctx, chunks, domain.CompletionChunk{Text: delta.Text}) {
				return
			}
		}

		if stream.Err() == nil {
			emitChunk(ctx, chunks, domain.CompletionChunk{Done: true})
		}
	}()

	return chunks, nil
}

func anthropicParams(req domain.CompletionRequest) anthropic.MessageNewParams {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam

	for _, msg := range req.Messages {
		switch msg.Role {
		case domain.ChatRoleSystem:
			system = append(system, anthropic.TextBlockParam{
				Text: msg.Content,
				Type: "text",
			})
		case domain.ChatRoleAssistant:
			messages = append(messages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
			})
		default:
			messages = append(messages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
			})
		}
	}

	return anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages:  messages,
		System:    system,
	}
}
