package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	chat "github.com/burkekuskin-afk/Duckcord/domain/chat"
	"github.com/burkekuskin-afk/Duckcord/events"
	"github.com/burkekuskin-afk/Duckcord/modules/broadcast"
	"github.com/burkekuskin-afk/Duckcord/modules/msglog"
	"github.com/burkekuskin-afk/Duckcord/modules/registry"
)

const writeTimeout = 5 * time.Second

// Session wraps one WebSocket connection with a serialized, deadline-bound
// write path. The fan-out loop and the read loop both write frames, so
// every write goes through the mutex.
type Session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	limiter *rateLimiter
}

func newSession(c *websocket.Conn) *Session {
	return &Session{
		conn:    c,
		limiter: newRateLimiter(burstSize, messagesPerSecond),
	}
}

// Send delivers one frame. A slow or dead peer fails the write deadline
// instead of blocking the caller.
func (s *Session) Send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) sendFrame(frame chat.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return s.Send(data)
}

// HandleWebSocket runs one connection's lifecycle: authenticate, register,
// hydrate history, announce presence, then pump inbound frames until the
// peer goes away.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	ctx := context.Background()

	// Authentication happens before the connection touches the registry;
	// an unauthenticated socket never becomes Active.
	claims, err := h.auth.ValidateToken(ctx, c.Query("token"))
	if err != nil {
		h.closeWith(c, websocket.ClosePolicyViolation, "authentication required")
		return
	}

	handle := uuid.New().String()
	sess := newSession(c)
	conn := registry.NewConnection(handle, claims.Username, sess)

	cameOnline, err := h.reg.Register(conn)
	if err != nil {
		// A colliding UUID means broken invariants somewhere; do not
		// keep serving on a handle another connection owns.
		h.logger.Error("connection handle collision, refusing connection",
			"handle", handle,
			"username", claims.Username,
			"error", err)
		h.closeWith(c, websocket.CloseInternalServerErr, "internal error")
		return
	}
	defer h.teardown(handle)

	h.logger.Info("WebSocket connected", "handle", handle, "username", claims.Username)

	h.sendHistory(ctx, sess)
	if cameOnline {
		h.notifier.UserJoined(claims.Username, handle)
	}

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error", "handle", handle, "error", err)
			}
			break
		}

		var frame chat.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			_ = sess.sendFrame(chat.ErrorFrame("invalid frame format"))
			continue
		}

		if done := h.dispatch(ctx, sess, conn, frame); done {
			break
		}
	}

	h.logger.Info("WebSocket disconnected", "handle", handle, "username", claims.Username)
}

// dispatch routes one inbound frame. It reports true when the client asked
// to leave.
func (h *Handlers) dispatch(ctx context.Context, sess *Session, conn *registry.Connection, frame chat.Frame) bool {
	switch frame.Type {
	case chat.FrameMessage:
		h.handleChatMessage(ctx, sess, conn, frame.Content)
	case chat.FrameTyping:
		h.router.Typing(conn)
	case chat.FrameLeave:
		return true
	default:
		_ = sess.sendFrame(chat.ErrorFrame("unknown frame type: " + frame.Type))
	}
	return false
}

// handleChatMessage routes one chat message. Failures are reported to the
// sending connection only; nothing is broadcast.
func (h *Handlers) handleChatMessage(ctx context.Context, sess *Session, conn *registry.Connection, content string) {
	if !sess.limiter.allow() {
		_ = sess.sendFrame(chat.ErrorFrame("rate limit exceeded, please slow down"))
		return
	}

	_, err := h.router.ChatMessage(ctx, conn, content)
	switch {
	case err == nil:
	case errors.Is(err, broadcast.ErrEmptyMessage):
		_ = sess.sendFrame(chat.ErrorFrame("message text is required"))
	case errors.Is(err, msglog.ErrStorageUnavailable):
		_ = sess.sendFrame(chat.ErrorFrame("message could not be saved, please retry"))
	default:
		h.logger.Error("failed to route chat message", "username", conn.Username, "error", err)
		_ = sess.sendFrame(chat.ErrorFrame("message could not be delivered"))
	}
}

// sendHistory hydrates a fresh connection with the full message log.
func (h *Handlers) sendHistory(ctx context.Context, sess *Session) {
	messages, err := h.history.ListAll(ctx)
	if err != nil {
		h.logger.Error("failed to load history for hydration", "error", err)
		_ = sess.sendFrame(chat.ErrorFrame("history unavailable"))
		return
	}

	_ = sess.sendFrame(chat.Frame{
		Type:     chat.FrameHistory,
		Messages: messages,
	})
}

// teardown removes the connection and, when this was the identity's last
// live connection, announces the departure. Unregister is idempotent, so
// the presence event fires at most once per handle.
func (h *Handlers) teardown(handle string) {
	username, wentOffline, ok := h.reg.Unregister(handle)
	if !ok {
		return
	}
	if wentOffline {
		h.notifier.UserLeft(username, handle)
	}
}

// presenceNotifier announces online-set membership transitions.
type presenceNotifier interface {
	UserJoined(username, originHandle string)
	UserLeft(username, originHandle string)
}

// busNotifier publishes presence transitions on the event bus.
type busNotifier struct {
	bus    mono.EventBus
	logger *slog.Logger
}

func (n *busNotifier) UserJoined(username, originHandle string) {
	if n.bus == nil {
		n.logger.Warn("event bus not wired, dropping presence event", "username", username)
		return
	}
	event := events.PresenceEvent{
		Username:     username,
		OriginHandle: originHandle,
		Timestamp:    time.Now(),
	}
	if err := events.PresenceJoinedV1.Publish(n.bus, event, nil); err != nil {
		n.logger.Error("failed to publish presence event", "username", username, "error", err)
	}
}

func (n *busNotifier) UserLeft(username, originHandle string) {
	if n.bus == nil {
		n.logger.Warn("event bus not wired, dropping presence event", "username", username)
		return
	}
	event := events.PresenceEvent{
		Username:     username,
		OriginHandle: originHandle,
		Timestamp:    time.Now(),
	}
	if err := events.PresenceLeftV1.Publish(n.bus, event, nil); err != nil {
		n.logger.Error("failed to publish presence event", "username", username, "error", err)
	}
}

func (h *Handlers) closeWith(c *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = c.Close()
}
