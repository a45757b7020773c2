package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type ChatController struct {
	chatService domain.ChatManager
}

type ChatControllerDependencies struct {
	ChatManager domain.ChatManager
}

func NewChatController(deps ChatControllerDependencies) *ChatController {
	return &ChatController{
		chatService: deps.ChatManager,
	}
}

type createChatSessionRequest struct {
	Title    string `json:"title"`
	Model    string `json:"model"`
	PromptID string `json:"prompt_id"`
}

type sendChatMessageRequest struct {
	Content string `json:"content"`
}

type chatMessageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type chatSessionResponse struct {
	ID        string                `json:"id"`
	ProjectID string                `json:"project_id"`
	PromptID  string                `json:"prompt_id,omitempty"`
	Title     string                `json:"title"`
	Model     string                `json:"model"`
	Messages  []chatMessageResponse `json:"messages"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// chatStreamFrame is one server-sent event in a streamed reply.
type chatStreamFrame struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

func toChatMessageResponse(message domain.ChatMessage) chatMessageResponse {
	return chatMessageResponse{
		Role:      string(message.Role),
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	}
}

func toChatSessionResponse(session domain.ChatSession) chatSessionResponse {
	messages := make([]chatMessageResponse, 0, len(session.Messages))
	for _, message := range session.Messages {
		messages = append(messages, toChatMessageResponse(message))
	}

	return chatSessionResponse{
		ID:        session.ID,
		ProjectID: session.ProjectID,
		PromptID:  session.PromptID,
		Title:     session.Title,
		Model:     session.Model,
		Messages:  messages,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
}

func (c *ChatController) CreateSession(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req createChatSessionRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := c.chatService.CreateSession(ctx.RequestCtx(), domain.CreateChatSessionParams{
		ProjectID:      ctx.Params("projectID"),
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Title:          req.Title,
		Model:          req.Model,
		PromptID:       req.PromptID,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(toChatSessionResponse(session))
}

func (c *ChatController) GetSession(ctx fiber.Ctx) error {
	session, err := c.chatService.GetSession(ctx.RequestCtx(), ctx.Params("organizationID"), ctx.Params("sessionID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toChatSessionResponse(session))
}

func (c *ChatController) ListSessions(ctx fiber.Ctx) error {
	sessions, err := c.chatService.ListSessions(ctx.RequestCtx(), ctx.Params("organizationID"), ctx.Params("projectID"))
	if err != nil {
		return serviceError(err)
	}

	responses := make([]chatSessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, toChatSessionResponse(session))
	}

	return ctx.JSON(fiber.Map{"sessions": responses})
}

func (c *ChatController) DeleteSession(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	err = c.chatService.DeleteSession(ctx.RequestCtx(), ctx.Params("organizationID"), user.ID, ctx.Params("sessionID"))
	if err != nil {
		return serviceError(err)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *ChatController) SendMessage(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req sendChatMessageRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if strings.TrimSpace(req.Content) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Message content is required")
	}

	reply, err := c.chatService.SendMessage(ctx.RequestCtx(), domain.SendMessageParams{
		SessionID:      ctx.Params("sessionID"),
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Content:        req.Content,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toChatMessageResponse(reply))
}

// StreamMessage sends the assistant reply as server-sent events, one
// JSON frame per chunk. The exchange persists only when the final frame
// reached the client; a dropped connection cancels the stream and the
// session keeps its previous state.
func (c *ChatController) StreamMessage(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var req sendChatMessageRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if strings.TrimSpace(req.Content) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Message content is required")
	}

	sessionID := ctx.Params("sessionID")

	// The request context only fires on server shutdown under fasthttp,
	// so a dedicated cancel covers client disconnects detected on write.
	streamCtx, cancel := context.WithCancel(ctx.RequestCtx())

	chunks, err := c.chatService.StreamMessage(streamCtx, domain.SendMessageParams{
		SessionID:      sessionID,
		OrganizationID: ctx.Params("organizationID"),
		ActorID:        user.ID,
		Content:        req.Content,
	})
	if err != nil {
		cancel()
		return serviceError(err)
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	ctx.RequestCtx().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		for chunk := range chunks {
			frame, err := json.Marshal(chatStreamFrame{Text: chunk.Text, Done: chunk.Done})
			if err != nil {
				log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to encode stream frame")
				return
			}

			if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
				return
			}

			if err := w.Flush(); err != nil {
				return
			}
		}
	}))

	return nil
}
