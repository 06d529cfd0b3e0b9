// Package gateway is the client-facing edge: REST endpoints for login,
// logout, and history, plus the WebSocket endpoint that binds an
// authenticated identity to a live connection.
package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/burkekuskin-afk/Duckcord/events"
	"github.com/burkekuskin-afk/Duckcord/modules/broadcast"
	"github.com/burkekuskin-afk/Duckcord/modules/identity"
	"github.com/burkekuskin-afk/Duckcord/modules/registry"
)

// Module implements the session gateway over the Fiber framework.
type Module struct {
	app      *fiber.App
	addr     string
	reg      *registry.Registry
	bcast    *broadcast.Module
	history  HistorySource
	auth     identity.AuthPort
	eventBus mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the gateway module.
func NewModule(addr string, reg *registry.Registry, bcast *broadcast.Module, history HistorySource) *Module {
	return &Module{
		addr:    addr,
		reg:     reg,
		bcast:   bcast,
		history: history,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "gateway"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"identity"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "identity":
		m.auth = identity.NewAuthAdapter(container)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.PresenceJoinedV1.ToBase(),
		events.PresenceLeftV1.ToBase(),
	}
}

// Start initializes and starts the HTTP server.
func (m *Module) Start(_ context.Context) error {
	if m.auth == nil {
		return fmt.Errorf("identity dependency not set")
	}

	m.app = fiber.New(fiber.Config{
		AppName:               "Duckcord",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))

	allowedOrigins := os.Getenv("DUCKCORD_CORS_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:8080"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	handlers := NewHandlers(m.auth, m.history, m.reg, m.bcast.Router(), m.eventBus)
	m.registerRoutes(handlers)

	// Startup errors (port in use, bad addr) surface immediately;
	// anything later is logged by the goroutine.
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return fmt.Errorf("gateway failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[gateway] HTTP server started on %s", m.addr)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[gateway] Shutting down HTTP server...")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr":        m.addr,
			"connections": m.reg.Count(),
		},
	}
}

// registerRoutes sets up all HTTP and WebSocket routes.
func (m *Module) registerRoutes(handlers *Handlers) {
	m.app.Get("/health", handlers.HealthCheck)

	// WebSocket upgrade middleware
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(handlers.HandleWebSocket))

	v1 := m.app.Group("/api/v1")
	v1.Post("/auth/login", handlers.Login)

	protected := v1.Group("")
	protected.Use(AuthMiddleware(m.auth))
	protected.Post("/auth/logout", handlers.Logout)
	protected.Get("/history", handlers.History)
	protected.Get("/online", handlers.Online)
}

// errorHandler handles Fiber errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
