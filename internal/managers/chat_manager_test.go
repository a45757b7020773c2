package managers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/domain"
)

func newTestChatManager(f *fixture, provider domain.ModelProvider) domain.ChatManager {
	return NewChatManager(ChatManagerDependencies{
		ChatSessionStore: f.store,
		ProjectStore:     f.store,
		PromptStore:      f.store,
		ProviderRegistry: &stubRegistry{provider: provider},
		IDGenerator:      f.ids,
	})
}

func TestChatManager_CreateSessionSeedsSystemMessage(t *testing.T) {
	f := newFixture(t)
	manager := newTestChatManager(f, &stubProvider{})
	ctx := context.Background()

	prompt, version := f.addPrompt(t, f.project.ID)

	session, err := manager.CreateSession(ctx, domain.CreateChatSessionParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Model:          "gpt-4o",
		PromptID:       prompt.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, defaultChatTitle, session.Title)
	require.Len(t, session.Messages, 1)
	assert.Equal(t, domain.ChatRoleSystem, session.Messages[0].Role)
	assert.Equal(t, version.Content, session.Messages[0].Content)
}

func TestChatManager_CreateSessionRejectsForeignPrompt(t *testing.T) {
	f := newFixture(t)
	manager := newTestChatManager(f, &stubProvider{})
	ctx := context.Background()

	otherProject := f.addProject(t, f.org.ID)
	prompt, _ := f.addPrompt(t, otherProject.ID)

	_, err := manager.CreateSession(ctx, domain.CreateChatSessionParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Model:          "gpt-4o",
		PromptID:       prompt.ID,
	})
	assert.ErrorIs(t, err, domain.ErrPromptNotFound)
}

func TestChatManager_SendMessageAppendsExchange(t *testing.T) {
	f := newFixture(t)
	manager := newTestChatManager(f, &stubProvider{completeText: "Hello there."})
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, domain.CreateChatSessionParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Model:          "gpt-4o",
	})
	require.NoError(t, err)

	reply, err := manager.SendMessage(ctx, domain.SendMessageParams{
		SessionID:      session.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Content:        "Hi",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ChatRoleAssistant, reply.Role)
	assert.Equal(t, "Hello there.", reply.Content)

	stored, err := f.store.GetChatSession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, domain.ChatRoleUser, stored.Messages[0].Role)
	assert.Equal(t, "Hi", stored.Messages[0].Content)
	assert.Equal(t, "Hello there.", stored.Messages[1].Content)
}

func TestChatManager_StreamMessagePersistsOnCompletion(t *testing.T) {
	f := newFixture(t)
	manager := newTestChatManager(f, &stubProvider{streamChunks: []string{"Hel", "lo ", "there."}})
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, domain.CreateChatSessionParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Model:          "gpt-4o",
	})
	require.NoError(t, err)

	stream, err := manager.StreamMessage(ctx, domain.SendMessageParams{
		SessionID:      session.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Content:        "Hi",
	})
	require.NoError(t, err)

	var text string
	var sawDone bool
	for chunk := range stream {
		if chunk.Done {
			sawDone = true
			continue
		}
		text += chunk.Text
	}
	assert.True(t, sawDone)
	assert.Equal(t, "Hello there.", text)

	assert.Eventually(t, func() bool {
		stored, err := f.store.GetChatSession(context.Background(), session.ID)
		return err == nil && len(stored.Messages) == 2
	}, time.Second, 10*time.Millisecond)

	stored, err := f.store.GetChatSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", stored.Messages[1].Content)
}

func TestChatManager_StreamMessageCancelledDiscardsExchange(t *testing.T) {
	f := newFixture(t)
	manager := newTestChatManager(f, &stubProvider{
		streamChunks: []string{"Hel", "lo ", "there."},
		chunkDelay:   20 * time.Millisecond,
	})

	session, err := manager.CreateSession(context.Background(), domain.CreateChatSessionParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Model:          "gpt-4o",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := manager.StreamMessage(ctx, domain.SendMessageParams{
		SessionID:      session.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Content:        "Hi",
	})
	require.NoError(t, err)

	<-stream
	cancel()

	for range stream {
	}

	time.Sleep(100 * time.Millisecond)

	stored, err := f.store.GetChatSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Messages)
}

func TestChatManager_SessionScopedToOrganization(t *testing.T) {
	f := newFixture(t)
	manager := newTestChatManager(f, &stubProvider{})
	ctx := context.Background()

	session, err := manager.CreateSession(ctx, domain.CreateChatSessionParams{
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Model:          "gpt-4o",
	})
	require.NoError(t, err)

	other := f.addOrganization(t, "Other", f.user.ID)

	_, err = manager.GetSession(ctx, other.ID, session.ID)
	assert.ErrorIs(t, err, domain.ErrChatSessionNotFound)
}
