package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type ChatSessionStore struct {
	pool *pgxpool.Pool
}

func NewChatSessionStore(pool *pgxpool.Pool) *ChatSessionStore {
	return &ChatSessionStore{pool: pool}
}

type chatMessageDoc struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func messagesToDocs(messages []domain.ChatMessage) []chatMessageDoc {
	docs := make([]chatMessageDoc, len(messages))
	for i, message := range messages {
		docs[i] = chatMessageDoc{
			Role:      string(message.Role),
			Content:   message.Content,
			CreatedAt: message.CreatedAt,
		}
	}
	return docs
}

func messagesFromDocs(docs []chatMessageDoc) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, len(docs))
	for i, doc := range docs {
		messages[i] = domain.ChatMessage{
			Role:      domain.ChatMessageRole(doc.Role),
			Content:   doc.Content,
			CreatedAt: doc.CreatedAt,
		}
	}
	return messages
}

func (s *ChatSessionStore) CreateChatSession(ctx context.Context, session domain.ChatSession) error {
	messagesJSON, err := json.Marshal(messagesToDocs(session.Messages))
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO chat_sessions (id, project_id, prompt_id, title, model, messages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, session.ID, session.ProjectID, nullableString(session.PromptID), session.Title,
		session.Model, messagesJSON, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create chat session: %w", err)
	}

	return nil
}

func (s *ChatSessionStore) GetChatSession(ctx context.Context, id string) (domain.ChatSession, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, project_id, prompt_id, title, model, messages, created_at, updated_at
		FROM chat_sessions WHERE id = $1
	`, id)

	return scanChatSession(row)
}

func (s *ChatSessionStore) ListChatSessionsByProject(ctx context.Context, projectID string) ([]domain.ChatSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, prompt_id, title, model, messages, created_at, updated_at
		FROM chat_sessions WHERE project_id = $1
		ORDER BY updated_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ChatSession
	for rows.Next() {
		session, err := scanChatSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

func (s *ChatSessionStore) UpdateChatSession(ctx context.Context, session domain.ChatSession) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE chat_sessions SET title = $2, model = $3, updated_at = $4
		WHERE id = $1
	`, session.ID, session.Title, session.Model, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update chat session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChatSessionNotFound
	}

	return nil
}

// AppendChatMessages concatenates onto the stored message list without
// rewriting earlier messages.
func (s *ChatSessionStore) AppendChatMessages(ctx context.Context, sessionID string, messages []domain.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	messagesJSON, err := json.Marshal(messagesToDocs(messages))
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE chat_sessions
		SET messages = COALESCE(messages, '[]'::jsonb) || $2::jsonb, updated_at = $3
		WHERE id = $1
	`, sessionID, messagesJSON, time.Now())
	if err != nil {
		return fmt.Errorf("failed to append chat messages: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChatSessionNotFound
	}

	return nil
}

func (s *ChatSessionStore) DeleteChatSession(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete chat session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChatSessionNotFound
	}

	return nil
}

func scanChatSession(row pgx.Row) (domain.ChatSession, error) {
	var session domain.ChatSession
	var promptID *string
	var messagesJSON []byte

	err := row.Scan(&session.ID, &session.ProjectID, &promptID, &session.Title, &session.Model,
		&messagesJSON, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ChatSession{}, domain.ErrChatSessionNotFound
		}
		return domain.ChatSession{}, fmt.Errorf("failed to get chat session: %w", err)
	}

	if promptID != nil {
		session.PromptID = *promptID
	}
	if messagesJSON != nil {
		var docs []chatMessageDoc
		if err := json.Unmarshal(messagesJSON, &docs); err != nil {
			return domain.ChatSession{}, fmt.Errorf("failed to unmarshal messages: %w", err)
		}
		session.Messages = messagesFromDocs(docs)
	}

	return session, nil
}
