package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"

	chat "github.com/burkekuskin-afk/Duckcord/domain/chat"
	"github.com/burkekuskin-afk/Duckcord/modules/registry"
)

// job is one frame awaiting fan-out. excludeHandle names a connection to
// skip ("" delivers to everyone).
type job struct {
	data          []byte
	excludeHandle string
}

// Hub fans frames out to live connections. A single run loop drains a FIFO
// queue, so frames reach every recipient in enqueue order; enqueueing under
// the router's ordering lock is what makes broadcast order match message ID
// order.
type Hub struct {
	reg    *registry.Registry
	queue  chan job
	done   chan struct{}
	logger *slog.Logger
}

// NewHub creates a Hub over the connection registry.
func NewHub(reg *registry.Registry) *Hub {
	return &Hub{
		reg:    reg,
		queue:  make(chan job, 256),
		done:   make(chan struct{}),
		logger: slog.Default(),
	}
}

// Run drains the queue until the context is cancelled. It must run in its
// own goroutine; delivery happens only here.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-h.queue:
			h.deliver(j)
		}
	}
}

// Wait blocks until the run loop has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Enqueue queues a frame for fan-out. It preserves arrival order and never
// drops a frame while the hub is running.
func (h *Hub) Enqueue(frame chat.Frame, excludeHandle string) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("failed to marshal frame", "type", frame.Type, "error", err)
		return
	}

	select {
	case h.queue <- job{data: data, excludeHandle: excludeHandle}:
	case <-h.done:
		h.logger.Warn("hub stopped, dropping frame", "type", frame.Type)
	}
}

// deliver sends one frame to a snapshot of the live connections. The
// registry lock is released before any send; a failed or mid-close
// recipient is skipped and never aborts delivery to the rest.
func (h *Hub) deliver(j job) {
	for _, conn := range h.reg.Snapshot() {
		if conn.Handle == j.excludeHandle {
			continue
		}
		if err := conn.Send(j.data); err != nil {
			h.logger.Warn("delivery failed, skipping recipient",
				"handle", conn.Handle,
				"username", conn.Username,
				"error", err)
		}
	}
}

// QueueDepth returns the number of frames awaiting delivery.
func (h *Hub) QueueDepth() int {
	return len(h.queue)
}
