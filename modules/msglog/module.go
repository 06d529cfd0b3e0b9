// Package msglog implements the durable append-only message log backed by
// SQLite, with an optional Redis cache-aside layer for history reads.
package msglog

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	chat "github.com/burkekuskin-afk/Duckcord/domain/chat"
)

const historyCacheTTL = 30 * time.Second

// Module owns the message log lifecycle.
type Module struct {
	db     *gorm.DB
	store  *Store
	cache  *historyCache
	dbPath string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new message log module.
func NewModule() *Module {
	dbPath := os.Getenv("DUCKCORD_DB_PATH")
	if dbPath == "" {
		dbPath = "duckcord.db"
	}
	return &Module{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "msglog"
}

// Start opens the database, migrates the messages table, and wires the
// optional Redis cache when DUCKCORD_REDIS_ADDR is set.
func (m *Module) Start(ctx context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open message database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&chat.Message{}); err != nil {
		return fmt.Errorf("failed to migrate messages table: %w", err)
	}

	if addr := os.Getenv("DUCKCORD_REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		cache := newHistoryCache(client, "duckcord:", historyCacheTTL)
		if err := cache.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
		}
		m.cache = cache
		log.Printf("[msglog] History cache enabled (redis: %s)", addr)
	}

	m.store = NewStore(db, m.cache)
	log.Printf("[msglog] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop closes the database and cache connections.
func (m *Module) Stop(_ context.Context) error {
	if m.cache != nil {
		_ = m.cache.Close()
	}
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	log.Println("[msglog] Module stopped")
	return nil
}

// Health returns the health status of the log and its cache.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	details := map[string]any{
		"database": m.dbPath,
		"cache":    m.cache != nil,
	}
	if m.cache != nil {
		if err := m.cache.Ping(ctx); err != nil {
			return mono.HealthStatus{
				Healthy: false,
				Message: fmt.Sprintf("redis ping failed: %v", err),
				Details: details,
			}
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: details,
	}
}

// Append persists a message, delegating to the store.
func (m *Module) Append(ctx context.Context, author, content string, ts time.Time) (*chat.Message, error) {
	return m.store.Append(ctx, author, content, ts)
}

// ListAll returns the full message history ascending by ID.
func (m *Module) ListAll(ctx context.Context) ([]chat.Message, error) {
	return m.store.ListAll(ctx)
}
