package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/burkekuskin-afk/Duckcord/modules/broadcast"
	"github.com/burkekuskin-afk/Duckcord/modules/gateway"
	"github.com/burkekuskin-afk/Duckcord/modules/identity"
	"github.com/burkekuskin-afk/Duckcord/modules/msglog"
	"github.com/burkekuskin-afk/Duckcord/modules/registry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Duckcord - Real-Time Group Chat ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	addr := os.Getenv("DUCKCORD_ADDR")
	if addr == "" {
		addr = ":3000"
	}

	// The connection registry is shared state between broadcast (fan-out
	// snapshots) and gateway (register/unregister), so it is injected
	// directly rather than exposed via ServiceContainer.
	reg := registry.New()

	identityModule := identity.NewModule()
	msglogModule := msglog.NewModule()
	broadcastModule := broadcast.NewModule(reg, msglogModule)
	gatewayModule := gateway.NewModule(addr, reg, broadcastModule, msglogModule)

	// Order: independent modules first, then modules with dependencies.
	app.Register(identityModule)  // auth services (login, logout, validate-token)
	app.Register(msglogModule)    // append-only message log
	app.Register(broadcastModule) // fan-out hub + event consumer
	app.Register(gatewayModule)   // HTTP/WebSocket edge, depends on identity

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(addr)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(addr string) {
	dbPath := os.Getenv("DUCKCORD_DB_PATH")
	if dbPath == "" {
		dbPath = "duckcord.db"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Persistence: SQLite via GORM")
	log.Printf("  - Database: %s", dbPath)
	if redisAddr := os.Getenv("DUCKCORD_REDIS_ADDR"); redisAddr != "" {
		log.Printf("  - History cache: Redis at %s", redisAddr)
	}
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost%s):", addr)
	log.Println("  GET    /health               - Health check")
	log.Println("  POST   /api/v1/auth/login    - Login (registers unseen usernames)")
	log.Println("  POST   /api/v1/auth/logout   - Logout (revokes the session token)")
	log.Println("  GET    /api/v1/history       - Full message history")
	log.Println("  GET    /api/v1/online        - Currently online usernames")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost%s/ws):", addr)
	log.Println("  Connect with: ws://localhost:3000/ws?token=<access_token>")
	log.Println("  Frame types: message, typing, leave")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
