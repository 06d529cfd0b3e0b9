package msglog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	chat "github.com/burkekuskin-afk/Duckcord/domain/chat"
)

// ErrStorageUnavailable is returned when the underlying store cannot accept
// the operation in time. The triggering action fails; nothing is broadcast.
var ErrStorageUnavailable = errors.New("message storage unavailable")

const (
	// appendTimeout bounds a single durable write; a handler must never
	// hang indefinitely on the log.
	appendTimeout = 5 * time.Second
	listTimeout   = 10 * time.Second

	historyCacheKey = "history"
)

// Store is the append-only ordered log of chat messages. SQLite assigns
// message IDs via the auto-increment primary key, so ID order is exactly
// arrival order and each append is atomic with respect to readers.
type Store struct {
	db     *gorm.DB
	cache  *historyCache // nil when no Redis is configured
	group  singleflight.Group
	logger *slog.Logger
}

// NewStore creates a Store on an open database handle. cache may be nil.
func NewStore(db *gorm.DB, cache *historyCache) *Store {
	return &Store{
		db:     db,
		cache:  cache,
		logger: slog.Default(),
	}
}

// Append durably persists a message and returns it with the log-assigned ID.
// It fails with ErrStorageUnavailable when the write cannot complete in time.
func (s *Store) Append(ctx context.Context, author, content string, ts time.Time) (*chat.Message, error) {
	cctx, cancel := context.WithTimeout(ctx, appendTimeout)
	defer cancel()

	msg := &chat.Message{
		Username:  author,
		Content:   content,
		Timestamp: ts,
	}

	if err := s.db.WithContext(cctx).Create(msg).Error; err != nil {
		s.logger.Error("message append failed", "author", author, "error", err)
		return nil, fmt.Errorf("append message: %w", ErrStorageUnavailable)
	}

	// The cached history is stale now. Invalidation is best-effort; a
	// failed delete only means the next read falls through to the DB.
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, historyCacheKey); err != nil {
			s.logger.Warn("history cache invalidation failed", "error", err)
		}
	}

	return msg, nil
}

// ListAll returns every message ascending by ID. A fresh call re-reads in
// full; concurrent uncached reads are collapsed through singleflight so a
// reconnect storm issues one database query.
func (s *Store) ListAll(ctx context.Context) ([]chat.Message, error) {
	if s.cache != nil {
		var cached []chat.Message
		hit, err := s.cache.Get(ctx, historyCacheKey, &cached)
		if err != nil {
			s.logger.Warn("history cache read failed", "error", err)
		} else if hit {
			return cached, nil
		}
	}

	v, err, _ := s.group.Do(historyCacheKey, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()

		var messages []chat.Message
		if err := s.db.WithContext(cctx).Order("id ASC").Find(&messages).Error; err != nil {
			return nil, fmt.Errorf("list messages: %w", ErrStorageUnavailable)
		}

		if s.cache != nil {
			if err := s.cache.Set(context.Background(), historyCacheKey, messages); err != nil {
				s.logger.Warn("history cache write failed", "error", err)
			}
		}
		return messages, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]chat.Message), nil
}

// Count returns the number of persisted messages.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&chat.Message{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count messages: %w", ErrStorageUnavailable)
	}
	return count, nil
}
