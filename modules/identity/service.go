package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	chat "github.com/burkekuskin-afk/Duckcord/domain/chat"
)

// Validation constants.
const (
	MaxUsernameLength = 50
	MaxPasswordLength = 72 // bcrypt input limit
	MinPasswordLength = 8
)

var (
	// ErrInvalidCredentials is returned on a wrong password for an
	// existing user. No account details leak through this error.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameInvalid is returned when a username fails validation.
	ErrUsernameInvalid = errors.New("username is empty, too long, or not valid UTF-8")
	// ErrPasswordInvalid is returned when a password fails validation.
	ErrPasswordInvalid = errors.New("password must be 8 to 72 characters")
)

// AuthService is the authenticator: it yields a stable user identity for a
// username/password pair or rejects the attempt.
type AuthService struct {
	repo   *UserRepository
	hasher *PasswordHasher
	jwt    *JWTManager
	logger *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo *UserRepository, hasher *PasswordHasher, jwt *JWTManager) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		jwt:    jwt,
		logger: slog.Default(),
	}
}

// Authenticate verifies a username/password pair. An unseen username is
// auto-registered on its first successful attempt; a creation race retries
// as a plain login instead of failing.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*chat.User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByUsername(username)
	if err == nil {
		if !s.hasher.Verify(password, user.PasswordHash) {
			return nil, ErrInvalidCredentials
		}
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	created, err := s.register(username, password)
	if err == nil {
		s.logger.Info("auto-registered new user", "username", username)
		return created, nil
	}
	if !errors.Is(err, ErrDuplicateUsername) {
		return nil, err
	}

	// Lost the creation race: the name exists now, retry as login.
	user, err = s.repo.FindByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user after create race: %w", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// register creates a user with a freshly hashed credential.
func (s *AuthService) register(username, password string) (*chat.User, error) {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &chat.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *chat.User, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}

	token, err := s.jwt.Issue(user.ID, user.Username)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return token, user, nil
}

// Logout revokes a session token.
func (s *AuthService) Logout(_ context.Context, token string) error {
	return s.jwt.Revoke(token)
}

// ValidateToken validates a session token and returns the identity claims.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*chat.Claims, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return nil, err
	}
	return &chat.Claims{
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}

func validateUsername(username string) error {
	if username == "" || len(username) > MaxUsernameLength || !utf8.ValidString(username) {
		return ErrUsernameInvalid
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return ErrPasswordInvalid
	}
	return nil
}
