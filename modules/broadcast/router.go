package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-monolith/mono"

	chat "github.com/burkekuskin-afk/Duckcord/domain/chat"
	"github.com/burkekuskin-afk/Duckcord/events"
	"github.com/burkekuskin-afk/Duckcord/modules/registry"
)

// ErrEmptyMessage rejects chat messages that are empty or whitespace-only.
var ErrEmptyMessage = errors.New("message text is empty")

// Appender persists a chat message and returns it with its assigned ID.
type Appender interface {
	Append(ctx context.Context, author, content string, ts time.Time) (*chat.Message, error)
}

// Router routes inbound client traffic. Chat messages are appended to the
// log and fanned out atomically: a single lock covers exactly the append
// and the hub enqueue, so broadcast order always matches ID order. The
// lock is never held across delivery I/O.
type Router struct {
	mu     sync.Mutex
	log    Appender
	hub    *Hub
	bus    mono.EventBus
	logger *slog.Logger
}

// NewRouter creates a Router over the message log and fan-out hub.
func NewRouter(log Appender, hub *Hub) *Router {
	return &Router{
		log:    log,
		hub:    hub,
		logger: slog.Default(),
	}
}

func (r *Router) setEventBus(bus mono.EventBus) {
	r.bus = bus
}

// ChatMessage validates, persists, and broadcasts one chat message. The
// returned message carries the log-assigned ID. On a storage failure
// nothing is broadcast and the error is the caller's to report; other
// connections see nothing.
func (r *Router) ChatMessage(ctx context.Context, conn *registry.Connection, text string) (*chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	r.mu.Lock()
	msg, err := r.log.Append(ctx, conn.Username, text, time.Now())
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.hub.Enqueue(chat.MessageFrame(msg), "")
	r.mu.Unlock()

	return msg, nil
}

// Typing publishes a typing notification. Typing is best-effort and never
// persisted; a publish failure is logged and dropped.
func (r *Router) Typing(conn *registry.Connection) {
	if r.bus == nil {
		r.logger.Warn("event bus not wired, dropping typing notification", "username", conn.Username)
		return
	}

	event := events.TypingEvent{
		Username:     conn.Username,
		OriginHandle: conn.Handle,
		Timestamp:    time.Now(),
	}
	if err := events.TypingStartedV1.Publish(r.bus, event, nil); err != nil {
		r.logger.Warn("failed to publish typing event", "username", conn.Username, "error", err)
	}
}
