package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"drawboard/internal/api"
	"drawboard/internal/archive"
	"drawboard/internal/config"
	"drawboard/internal/hub"
	"drawboard/internal/router"
	"drawboard/internal/store"
	"drawboard/internal/websocket"
	"drawboard/pkg/database"
)

// Application coordinates all system components
// Clean dependency injection pattern with proper initialization order
type Application struct {
	config        *config.Config
	store         *store.RedisStore
	registry      *websocket.Registry
	messageRouter *router.Router
	messageHub    *hub.Hub
	apiServer     *api.Server
	archiver      *archive.Archiver
	httpServer    *http.Server
}

// NewApplication creates a new application instance with all components initialized
// Component initialization follows strict dependency order:
// Store → Registry → Router → Hub → API → Archive → HTTP
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// Validate configuration before component initialization
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// STEP 1: Initialize the state store (foundation layer)
	// An unreachable store at boot is fatal; a dead store mid-flight is not
	storeConfig := &store.Config{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	}

	stateStore, err := store.NewRedisStore(storeConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state store: %w", err)
	}

	// STEP 2: Initialize WebSocket registry for connection tracking
	registry := websocket.NewRegistry()

	// STEP 3: Initialize message router with dependencies
	messageRouter := router.NewRouter(registry, stateStore, cfg.WebSocket.RateLimitPerMinute, cfg.Redis.CheckpointTTL)

	// STEP 4: Initialize message hub for coordination
	messageHub := hub.NewHub(registry, messageRouter)

	// STEP 5: Initialize API server with all business dependencies
	apiServer := api.NewServer(messageRouter, stateStore, registry)

	// STEP 6: Initialize the snapshot archiver if configured
	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		dbConfig := &database.Config{
			DatabasePath:    cfg.Archive.DatabasePath,
			MaxConnections:  10,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 10 * time.Minute,
		}
		archiver, err = archive.NewArchiver(dbConfig, stateStore, cfg.Archive.Interval)
		if err != nil {
			stateStore.Close()
			return nil, fmt.Errorf("failed to initialize archiver: %w", err)
		}
	}

	// STEP 7: Initialize WebSocket handler
	wsHandler := websocket.NewHandler(registry, messageHub, cfg.WebSocket.PingInterval, cfg.WebSocket.ReadTimeout)

	// STEP 8: Setup HTTP server with both API and WebSocket endpoints
	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws/", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:        cfg,
		store:         stateStore,
		registry:      registry,
		messageRouter: messageRouter,
		messageHub:    messageHub,
		apiServer:     apiServer,
		archiver:      archiver,
		httpServer:    httpServer,
	}, nil
}

// Start begins application execution
// Startup coordination ensures all components ready before serving
// Hub starts first to handle messages, then HTTP server accepts connections
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting Drawboard application on %s", app.httpServer.Addr)

	// STEP 1: Start message hub (background message processing)
	if err := app.messageHub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start message hub: %w", err)
	}

	// STEP 2: Start the archive sweep loop
	if app.archiver != nil {
		app.archiver.Start(ctx)
	}

	// STEP 3: Start HTTP server (accepts connections)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Verify server is ready before returning
	select {
	case err := <-serverErrCh:
		// Cleanup on startup failure
		app.messageHub.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		// Server started successfully
		log.Printf("Drawboard application started successfully")
		return nil
	case <-ctx.Done():
		// Context cancelled during startup
		app.messageHub.Stop()
		return ctx.Err()
	}
}

// Stop gracefully shuts down the application
// Reverse dependency order: HTTP → Hub → Archive → Store
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down Drawboard application")

	// STEP 1: Stop accepting new connections
	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// STEP 2: Stop message processing and drain connections
	if err := app.messageHub.Stop(); err != nil {
		log.Printf("Message hub shutdown error: %v", err)
	}

	// STEP 3: Flush and close the archiver
	if app.archiver != nil {
		if err := app.archiver.Close(); err != nil {
			log.Printf("Archiver shutdown error: %v", err)
		}
	}

	// STEP 4: Close the state store connection
	if err := app.store.Close(); err != nil {
		log.Printf("State store shutdown error: %v", err)
	}

	log.Printf("Drawboard application shutdown complete")
	return nil
}

// GetAddr returns the server address for external connections
func (app *Application) GetAddr() string {
	return app.httpServer.Addr
}
