package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	chat "github.com/burkekuskin-afk/Duckcord/domain/chat"
)

// setupTestService creates an AuthService on an in-memory SQLite database.
func setupTestService(t *testing.T) *AuthService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&chat.User{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return NewAuthService(NewUserRepository(db), NewPasswordHasher(), NewJWTManager(DefaultJWTConfig()))
}

func TestAuthService_AutoRegisterOnFirstLogin(t *testing.T) {
	ctx := context.Background()
	service := setupTestService(t)

	// First attempt with an unseen username creates the account.
	user, err := service.Authenticate(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate() first attempt error = %v", err)
	}
	if user.ID == "" {
		t.Error("Authenticate() user.ID should not be empty")
	}
	if user.Username != "alice" {
		t.Errorf("Authenticate() user.Username = %q, want %q", user.Username, "alice")
	}

	// Second attempt with the correct credential resolves the same identity.
	again, err := service.Authenticate(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate() second attempt error = %v", err)
	}
	if again.ID != user.ID {
		t.Errorf("Authenticate() returned a different identity: %q vs %q", again.ID, user.ID)
	}

	// Wrong credential fails and must not create a duplicate.
	_, err = service.Authenticate(ctx, "alice", "wrong-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Authenticate() wrong password error = %v, want ErrInvalidCredentials", err)
	}

	var count int64
	if err := service.repo.db.Model(&chat.User{}).Where("username = ?", "alice").Count(&count).Error; err != nil {
		t.Fatalf("failed to count users: %v", err)
	}
	if count != 1 {
		t.Errorf("user count for alice = %d, want 1 (no duplicate created)", count)
	}
}

func TestAuthService_Validation(t *testing.T) {
	ctx := context.Background()
	service := setupTestService(t)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{
			name:     "empty username",
			username: "",
			password: "long-enough",
			wantErr:  ErrUsernameInvalid,
		},
		{
			name:     "short password",
			username: "bob",
			password: "short",
			wantErr:  ErrPasswordInvalid,
		},
		{
			name:     "overlong password",
			username: "bob",
			password: string(make([]byte, 80)),
			wantErr:  ErrPasswordInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Authenticate(ctx, tt.username, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthService_ConcurrentFirstLoginSingleAccount(t *testing.T) {
	ctx := context.Background()
	service := setupTestService(t)

	// Many simultaneous first logins for the same unseen username must
	// converge on exactly one account, with losers retrying as login.
	const attempts = 8
	var wg sync.WaitGroup
	ids := make([]string, attempts)
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user, err := service.Authenticate(ctx, "racer", "same-password")
			if err != nil {
				errs[n] = err
				return
			}
			ids[n] = user.ID
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Authenticate() attempt %d error = %v", i, err)
		}
	}
	for i := 1; i < attempts; i++ {
		if ids[i] != ids[0] {
			t.Errorf("attempt %d resolved identity %q, want %q", i, ids[i], ids[0])
		}
	}

	var count int64
	if err := service.repo.db.Model(&chat.User{}).Where("username = ?", "racer").Count(&count).Error; err != nil {
		t.Fatalf("failed to count users: %v", err)
	}
	if count != 1 {
		t.Errorf("user count for racer = %d, want 1", count)
	}
}

func TestAuthService_LoginIssuesValidToken(t *testing.T) {
	ctx := context.Background()
	service := setupTestService(t)

	token, user, err := service.Login(ctx, "carol", "a-fine-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token == "" {
		t.Fatal("Login() returned empty token")
	}

	claims, err := service.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("claims.UserID = %q, want %q", claims.UserID, user.ID)
	}
	if claims.Username != "carol" {
		t.Errorf("claims.Username = %q, want %q", claims.Username, "carol")
	}
}

func TestAuthService_LogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	service := setupTestService(t)

	token, _, err := service.Login(ctx, "dave", "a-fine-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := service.Logout(ctx, token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	_, err = service.ValidateToken(ctx, token)
	if !errors.Is(err, ErrRevokedToken) {
		t.Errorf("ValidateToken() after logout error = %v, want ErrRevokedToken", err)
	}
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	service := setupTestService(t)
	repo := service.repo

	hasher := NewPasswordHasher()
	hash, err := hasher.Hash("irrelevant-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		err = repo.Create(&chat.User{
			ID:           fmt.Sprintf("id-%d", i),
			Username:     "taken",
			PasswordHash: hash,
		})
		if i == 0 && err != nil {
			t.Fatalf("first Create() error = %v", err)
		}
	}
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("second Create() error = %v, want ErrDuplicateUsername", err)
	}
}
