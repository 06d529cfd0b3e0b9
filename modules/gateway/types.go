package gateway

import (
	"time"

	chat "github.com/burkekuskin-afk/Duckcord/domain/chat"
)

// LoginRequest is the request body for POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is the response body for a successful login.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	CreatedAt   time.Time `json:"created_at"`
}

// LogoutResponse is the response body for a successful logout.
type LogoutResponse struct {
	Success bool `json:"success"`
}

// HistoryResponse is the response body for GET /api/v1/history.
type HistoryResponse struct {
	Messages []chat.Message `json:"messages"`
	Total    int            `json:"total"`
}

// ErrorResponse is the standard error body for API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
