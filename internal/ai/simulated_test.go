package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/domain"
)

func TestSimulatedProvider_Complete(t *testing.T) {
	provider := NewSimulatedProvider()

	req := domain.CompletionRequest{
		Model: "gpt-4o",
		Messages: []domain.ChatMessage{
			{Role: domain.ChatRoleSystem, Content: "You are terse."},
			{Role: domain.ChatRoleUser, Content: "Summarize the quarterly report"},
		},
	}

	resp, err := provider.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.Contains(t, resp.Text, "gpt-4o")
	assert.Contains(t, resp.Text, "Summarize the quarterly report")
	assert.Positive(t, resp.TokensIn)
	assert.Positive(t, resp.TokensOut)

	again, err := provider.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, resp, again, "same request should produce the same response")
}

func TestSimulatedProvider_CompleteWithoutUserMessage(t *testing.T) {
	provider := NewSimulatedProvider()

	resp, err := provider.Complete(context.Background(), domain.CompletionRequest{Model: "test-model"})
	require.NoError(t, err)

	assert.Equal(t, "Simulated test-model response.", resp.Text)
	assert.Zero(t, resp.TokensIn)
	assert.Positive(t, resp.TokensOut)
}

func TestSimulatedProvider_CompleteCancelledContext(t *testing.T) {
	provider := NewSimulatedProvider()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.Complete(ctx, domain.CompletionRequest{Model: "test-model"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulatedProvider_StreamMatchesComplete(t *testing.T) {
	provider := NewSimulatedProvider()

	req := domain.CompletionRequest{
		Model: "test-model",
		Messages: []domain.ChatMessage{
			{Role: domain.ChatRoleUser, Content: "write a haiku about rivers"},
		},
	}

	resp, err := provider.Complete(context.Background(), req)
	require.NoError(t, err)

	chunks, err := provider.StreamComplete(context.Background(), req)
	require.NoError(t, err)

	var streamed string
	var sawDone bool

	for chunk := range chunks {
		if chunk.Done {
			sawDone = true
			continue
		}

		streamed += chunk.Text
	}

	assert.True(t, sawDone, "stream should finish with a done chunk")
	assert.Equal(t, resp.Text, streamed)
}

func TestSimulatedProvider_StreamCancellation(t *testing.T) {
	provider := NewSimulatedProviderWithDelay(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	chunks, err := provider.StreamComplete(ctx, domain.CompletionRequest{
		Model: "test-model",
		Messages: []domain.ChatMessage{
			{Role: domain.ChatRoleUser, Content: "one two three four five six seven eight nine ten"},
		},
	})
	require.NoError(t, err)

	first, ok := <-chunks
	require.True(t, ok)
	require.NotEmpty(t, first.Text)

	cancel()

	var sawDone bool
	var received int

	for chunk := range chunks {
		received++
		if chunk.Done {
			sawDone = true
		}
	}

	assert.False(t, sawDone, "cancelled stream must not report completion")
	assert.Less(t, received, 10, "cancelled stream should stop early")
}
