package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type AuthController struct {
	authService domain.AuthManager
}

type AuthControllerDependencies struct {
	AuthManager domain.AuthManager
}

func NewAuthController(deps AuthControllerDependencies) *AuthController {
	return &AuthController{
		authService: deps.AuthManager,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}
}

func toSessionResponse(session domain.AuthSession) sessionResponse {
	return sessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      toUserResponse(session.User),
	}
}

func (c *AuthController) Register(ctx fiber.Ctx) error {
	var req registerRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if strings.TrimSpace(req.Email) == "" || !strings.Contains(req.Email, "@") {
		return fiber.NewError(fiber.StatusBadRequest, "A valid email is required")
	}

	if len(req.Password) < 8 {
		return fiber.NewError(fiber.StatusBadRequest, "Password must be at least 8 characters")
	}

	if strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Name is required")
	}

	session, err := c.authService.Register(ctx.RequestCtx(), domain.RegisterParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return serviceError(err)
	}

	log.Info().Str("user_id", session.User.ID).Msg("Registered user")

	return ctx.Status(fiber.StatusCreated).JSON(toSessionResponse(session))
}

func (c *AuthController) Login(ctx fiber.Ctx) error {
	var req loginRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Email and password are required")
	}

	session, err := c.authService.Login(ctx.RequestCtx(), domain.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return serviceError(err)
	}

	return ctx.JSON(toSessionResponse(session))
}

func (c *AuthController) Me(ctx fiber.Ctx) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	return ctx.JSON(toUserResponse(user))
}
