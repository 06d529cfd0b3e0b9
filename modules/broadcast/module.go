package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	chat "github.com/burkekuskin-afk/Duckcord/domain/chat"
	"github.com/burkekuskin-afk/Duckcord/events"
	"github.com/burkekuskin-afk/Duckcord/modules/registry"
)

// Module owns the fan-out hub and the message router. It consumes presence
// and typing events from the bus and relays them to every connection except
// the one that caused them.
type Module struct {
	hub     *Hub
	router  *Router
	reg     *registry.Registry
	cancel  context.CancelFunc
	started bool
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the broadcast module over the shared connection
// registry and the message log.
func NewModule(reg *registry.Registry, msgLog Appender) *Module {
	hub := NewHub(reg)
	return &Module{
		hub:    hub,
		router: NewRouter(msgLog, hub),
		reg:    reg,
	}
}

func (m *Module) Name() string {
	return "broadcast"
}

// Router exposes the message router for the gateway's session handlers.
func (m *Module) Router() *Router {
	return m.router
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.router.setEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TypingStartedV1.ToBase(),
	}
}

// RegisterEventConsumers subscribes to presence and typing events.
func (m *Module) RegisterEventConsumers(reg mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(reg, events.PresenceJoinedV1, m.handlePresenceJoined, m); err != nil {
		return fmt.Errorf("failed to register PresenceJoined consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(reg, events.PresenceLeftV1, m.handlePresenceLeft, m); err != nil {
		return fmt.Errorf("failed to register PresenceLeft consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(reg, events.TypingStartedV1, m.handleTypingStarted, m); err != nil {
		return fmt.Errorf("failed to register TypingStarted consumer: %w", err)
	}

	log.Printf("[broadcast] Registered event consumers: PresenceJoined, PresenceLeft, TypingStarted")
	return nil
}

func (m *Module) handlePresenceJoined(_ context.Context, event events.PresenceEvent, _ *mono.Msg) error {
	m.hub.Enqueue(chat.Frame{
		Type:      chat.FramePresenceJoined,
		Username:  event.Username,
		Timestamp: &event.Timestamp,
	}, event.OriginHandle)
	return nil
}

func (m *Module) handlePresenceLeft(_ context.Context, event events.PresenceEvent, _ *mono.Msg) error {
	m.hub.Enqueue(chat.Frame{
		Type:      chat.FramePresenceLeft,
		Username:  event.Username,
		Timestamp: &event.Timestamp,
	}, event.OriginHandle)
	return nil
}

func (m *Module) handleTypingStarted(_ context.Context, event events.TypingEvent, _ *mono.Msg) error {
	m.hub.Enqueue(chat.Frame{
		Type:     chat.FrameTyping,
		Username: event.Username,
	}, event.OriginHandle)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.started = true
	go m.hub.Run(runCtx)

	log.Println("[broadcast] Module started - fan-out loop running")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
		m.hub.Wait()
	}
	m.started = false

	log.Println("[broadcast] Module stopped")
	return nil
}

func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if !m.started {
		return mono.HealthStatus{
			Healthy: false,
			Message: "fan-out loop not running",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "broadcast module operational",
		Details: map[string]any{
			"connections": m.reg.Count(),
			"queue_depth": m.hub.QueueDepth(),
		},
	}
}
