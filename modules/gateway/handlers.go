package gateway

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"

	chat "github.com/burkekuskin-afk/Duckcord/domain/chat"
	"github.com/burkekuskin-afk/Duckcord/modules/broadcast"
	"github.com/burkekuskin-afk/Duckcord/modules/identity"
	"github.com/burkekuskin-afk/Duckcord/modules/registry"
)

// HistorySource provides the full message history for hydration and the
// REST history endpoint.
type HistorySource interface {
	ListAll(ctx context.Context) ([]chat.Message, error)
}

// Handlers contains the HTTP and WebSocket handlers.
type Handlers struct {
	auth     identity.AuthPort
	history  HistorySource
	reg      *registry.Registry
	router   *broadcast.Router
	notifier presenceNotifier
	logger   *slog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(auth identity.AuthPort, history HistorySource, reg *registry.Registry, router *broadcast.Router, bus mono.EventBus) *Handlers {
	return &Handlers{
		auth:     auth,
		history:  history,
		reg:      reg,
		router:   router,
		notifier: &busNotifier{bus: bus, logger: slog.Default()},
		logger:   slog.Default(),
	}
}

// Login handles login requests (POST /api/v1/auth/login). An unseen
// username is registered on the spot with the supplied password.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Username and password are required",
		})
	}

	resp, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(TokenResponse{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		UserID:      resp.UserID,
		Username:    resp.Username,
		CreatedAt:   resp.CreatedAt,
	})
}

// Logout handles logout requests (POST /api/v1/auth/logout). The token is
// revoked; open WebSocket connections are unaffected until they close.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), bearerToken(c)); err != nil {
		h.logger.Error("logout failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to revoke token",
		})
	}
	return c.Status(fiber.StatusOK).JSON(LogoutResponse{Success: true})
}

// History handles history requests (GET /api/v1/history). Messages come
// back in ID order, oldest first.
func (h *Handlers) History(c *fiber.Ctx) error {
	messages, err := h.history.ListAll(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "unavailable",
			Message: "Message history is temporarily unavailable",
		})
	}

	return c.JSON(HistoryResponse{
		Messages: messages,
		Total:    len(messages),
	})
}

// Online handles presence requests (GET /api/v1/online).
func (h *Handlers) Online(c *fiber.Ctx) error {
	usernames := h.reg.SnapshotOnline()
	return c.JSON(fiber.Map{
		"usernames": usernames,
		"total":     len(usernames),
	})
}

// HealthCheck handles health check requests (GET /health).
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"service":     "duckcord",
		"connections": h.reg.Count(),
	})
}

// handleAuthError maps identity errors onto HTTP responses without
// exposing internals. Request-reply errors travel as strings, so matching
// is on the message text.
func (h *Handlers) handleAuthError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "invalid username or password"):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid username or password",
		})
	case strings.Contains(errStr, "username is empty"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Username must be 1 to 50 characters of valid UTF-8",
		})
	case strings.Contains(errStr, "password must be"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Password must be 8 to 72 characters",
		})
	default:
		h.logger.Error("login failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}
