package managers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/domain"
)

const (
	defaultChatTitle   = "New chat"
	chatPersistTimeout = 10 * time.Second
)

type chatManager struct {
	sessions domain.ChatSessionStore
	projects domain.ProjectStore
	prompts  domain.PromptStore
	registry domain.ModelProviderRegistry
	ids      domain.IDGenerator
	audit    domain.AuditRecorder
}

type ChatManagerDependencies struct {
	ChatSessionStore domain.ChatSessionStore
	ProjectStore     domain.ProjectStore
	PromptStore      domain.PromptStore
	ProviderRegistry domain.ModelProviderRegistry
	IDGenerator      domain.IDGenerator
	AuditRecorder    domain.AuditRecorder
}

func NewChatManager(deps ChatManagerDependencies) domain.ChatManager {
	return &chatManager{
		sessions: deps.ChatSessionStore,
		projects: deps.ProjectStore,
		prompts:  deps.PromptStore,
		registry: deps.ProviderRegistry,
		ids:      deps.IDGenerator,
		audit:    auditRecorderOrNoop(deps.AuditRecorder),
	}
}

func (m *chatManager) CreateSession(ctx context.Context, params domain.CreateChatSessionParams) (domain.ChatSession, error) {
	if _, err := requireProject(ctx, m.projects, params.OrganizationID, params.ProjectID); err != nil {
		return domain.ChatSession{}, err
	}

	now := time.Now()

	session := domain.ChatSession{
		ID:        m.ids.NewID(),
		ProjectID: params.ProjectID,
		PromptID:  params.PromptID,
		Title:     params.Title,
		Model:     params.Model,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if session.Title == "" {
		session.Title = defaultChatTitle
	}

	if params.PromptID != "" {
		prompt, err := requirePrompt(ctx, m.prompts, m.projects, params.OrganizationID, params.PromptID)
		if err != nil {
			return domain.ChatSession{}, err
		}
		if prompt.ProjectID != params.ProjectID {
			return domain.ChatSession{}, domain.ErrPromptNotFound
		}

		// The prompt's head version seeds the conversation as a system
		// message.
		if prompt.CurrentVersionID != "" {
			version, err := m.prompts.GetPromptVersion(ctx, prompt.CurrentVersionID)
			if err != nil {
				return domain.ChatSession{}, fmt.Errorf("failed to get prompt version: %w", err)
			}
			session.Messages = []domain.ChatMessage{{
				Role:      domain.ChatRoleSystem,
				Content:   version.Content,
				CreatedAt: now,
			}}
		}
	}

	if err := m.sessions.CreateChatSession(ctx, session); err != nil {
		return domain.ChatSession{}, fmt.Errorf("failed to create chat session: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "chat.session_created",
		ResourceType:   "chat_session",
		ResourceID:     session.ID,
	})

	return session, nil
}

func (m *chatManager) GetSession(ctx context.Context, organizationID, sessionID string) (domain.ChatSession, error) {
	return m.requireSession(ctx, organizationID, sessionID)
}

func (m *chatManager) ListSessions(ctx context.Context, organizationID, projectID string) ([]domain.ChatSession, error) {
	if _, err := requireProject(ctx, m.projects, organizationID, projectID); err != nil {
		return nil, err
	}

	sessions, err := m.sessions.ListChatSessionsByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}

	return sessions, nil
}

func (m *chatManager) DeleteSession(ctx context.Context, organizationID, actorID, sessionID string) error {
	session, err := m.requireSession(ctx, organizationID, sessionID)
	if err != nil {
		return err
	}

	if err := m.sessions.DeleteChatSession(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to delete chat session: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         "chat.session_deleted",
		ResourceType:   "chat_session",
		ResourceID:     session.ID,
	})

	return nil
}

func (m *chatManager) SendMessage(ctx context.Context, params domain.SendMessageParams) (domain.ChatMessage, error) {
	session, provider, userMessage, err := m.prepareExchange(ctx, params)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	response, err := provider.Complete(ctx, domain.CompletionRequest{
		Model:    session.Model,
		Messages: append(session.Messages, userMessage),
	})
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("failed to complete message: %w", err)
	}

	assistantMessage := domain.ChatMessage{
		Role:      domain.ChatRoleAssistant,
		Content:   response.Text,
		CreatedAt: time.Now(),
	}

	if err := m.sessions.AppendChatMessages(ctx, session.ID, []domain.ChatMessage{userMessage, assistantMessage}); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("failed to append chat messages: %w", err)
	}

	return assistantMessage, nil
}

func (m *chatManager) StreamMessage(ctx context.Context, params domain.SendMessageParams) (<-chan domain.CompletionChunk, error) {
	session, provider, userMessage, err := m.prepareExchange(ctx, params)
	if err != nil {
		return nil, err
	}

	upstream, err := provider.StreamComplete(ctx, domain.CompletionRequest{
		Model:    session.Model,
		Messages: append(session.Messages, userMessage),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start completion stream: %w", err)
	}

	out := make(chan domain.CompletionChunk)

	go func() {
		defer close(out)

		var reply strings.Builder
		completed := false

		for chunk := range upstream {
			if !chunk.Done {
				reply.WriteString(chunk.Text)
			}

			select {
			case out <- chunk:
				if chunk.Done {
					completed = true
				}
			case <-ctx.Done():
				return
			}
		}

		// The exchange persists only when the final chunk reached the
		// consumer. A cancelled or broken stream leaves the session as
		// it was.
		if !completed {
			return
		}

		assistantMessage := domain.ChatMessage{
			Role:      domain.ChatRoleAssistant,
			Content:   reply.String(),
			CreatedAt: time.Now(),
		}

		persistCtx, cancel := context.WithTimeout(context.Background(), chatPersistTimeout)
		defer cancel()

		if err := m.sessions.AppendChatMessages(persistCtx, session.ID, []domain.ChatMessage{userMessage, assistantMessage}); err != nil {
			log.Error().Err(err).Str("session_id", session.ID).Msg("failed to persist streamed chat exchange")
		}
	}()

	return out, nil
}

func (m *chatManager) prepareExchange(ctx context.Context, params domain.SendMessageParams) (domain.ChatSession, domain.ModelProvider, domain.ChatMessage, error) {
	session, err := m.requireSession(ctx, params.OrganizationID, params.SessionID)
	if err != nil {
		return domain.ChatSession{}, nil, domain.ChatMessage{}, err
	}

	provider, err := m.registry.ProviderForModel(ctx, params.OrganizationID, session.Model)
	if err != nil {
		return domain.ChatSession{}, nil, domain.ChatMessage{}, fmt.Errorf("failed to resolve model provider: %w", err)
	}

	userMessage := domain.ChatMessage{
		Role:      domain.ChatRoleUser,
		Content:   params.Content,
		CreatedAt: time.Now(),
	}

	return session, provider, userMessage, nil
}

func (m *chatManager) requireSession(ctx context.Context, organizationID, sessionID string) (domain.ChatSession, error) {
	session, err := m.sessions.GetChatSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrChatSessionNotFound) {
			return domain.ChatSession{}, domain.ErrChatSessionNotFound
		}
		return domain.ChatSession{}, fmt.Errorf("failed to get chat session: %w", err)
	}

	if _, err := requireProject(ctx, m.projects, organizationID, session.ProjectID); err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return domain.ChatSession{}, domain.ErrChatSessionNotFound
		}
		return domain.ChatSession{}, err
	}

	return session, nil
}
