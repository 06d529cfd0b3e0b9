package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	chat "github.com/burkekuskin-afk/Duckcord/domain/chat"
)

// ErrTokenRejected is returned by the adapter when a token fails validation
// for any reason (malformed, expired, or revoked).
var ErrTokenRejected = errors.New("token rejected")

// AuthPort defines the identity operations consumed by other modules.
type AuthPort interface {
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
	Logout(ctx context.Context, token string) error
	ValidateToken(ctx context.Context, token string) (*chat.Claims, error)
}

// AuthAdapter implements AuthPort over the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) AuthPort {
	if container == nil {
		panic("identity: ServiceContainer is nil")
	}
	return &AuthAdapter{container: container}
}

// Login authenticates a username/password pair and returns a session token.
func (a *AuthAdapter) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	req := LoginRequest{Username: username, Password: password}
	var resp LoginResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceLogin,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return &resp, nil
}

// Logout revokes a session token.
func (a *AuthAdapter) Logout(ctx context.Context, token string) error {
	req := LogoutRequest{Token: token}
	var resp LogoutResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceLogout,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("logout failed")
	}
	return nil
}

// ValidateToken validates a session token and returns the identity claims.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*chat.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceValidateToken,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !resp.Valid {
		return nil, fmt.Errorf("%w: %s", ErrTokenRejected, resp.Error)
	}
	return &chat.Claims{
		UserID:   resp.UserID,
		Username: resp.Username,
	}, nil
}
