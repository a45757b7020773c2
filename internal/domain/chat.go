package domain

import (
	"context"
	"errors"
	"time"
)

var ErrChatSessionNotFound = errors.New("chat session not found")

type ChatMessageRole string

const (
	ChatRoleUser      ChatMessageRole = "user"
	ChatRoleAssistant ChatMessageRole = "assistant"
	ChatRoleSystem    ChatMessageRole = "system"
)

type ChatMessage struct {
	Role      ChatMessageRole
	Content   string
	CreatedAt time.Time
}

type ChatSession struct {
	ID        string
	ProjectID string
	PromptID  string
	Title     string
	Model     string
	Messages  []ChatMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ChatSessionStore interface {
	CreateChatSession(ctx context.Context, session ChatSession) error
	GetChatSession(ctx context.Context, id string) (ChatSession, error)
	ListChatSessionsByProject(ctx context.Context, projectID string) ([]ChatSession, error)
	UpdateChatSession(ctx context.Context, session ChatSession) error
	AppendChatMessages(ctx context.Context, sessionID string, messages []ChatMessage) error
	DeleteChatSession(ctx context.Context, id string) error
}

type CreateChatSessionParams struct {
	ProjectID      string
	OrganizationID string
	ActorID        string
	Title          string
	Model          string
	PromptID       string
}

type SendMessageParams struct {
	SessionID      string
	OrganizationID string
	ActorID        string
	Content        string
}

type ChatManager interface {
	CreateSession(ctx context.Context, params CreateChatSessionParams) (ChatSession, error)
	GetSession(ctx context.Context, organizationID, sessionID string) (ChatSession, error)
	ListSessions(ctx context.Context, organizationID, projectID string) ([]ChatSession, error)
	DeleteSession(ctx context.Context, organizationID, actorID, sessionID string) error

	// SendMessage appends the user message and the full assistant reply to
	// the session and returns the reply.
	SendMessage(ctx context.Context, params SendMessageParams) (ChatMessage, error)

	// StreamMessage emits the assistant reply in chunks. The exchange is
	// appended to the session only after the final chunk is delivered;
	// cancelling the context mid-stream discards it.
	StreamMessage(ctx context.Context, params SendMessageParams) (<-chan CompletionChunk, error)
}
