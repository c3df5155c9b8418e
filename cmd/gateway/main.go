package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	_ "github.com/mattn/go-sqlite3"

	"wa-gateway/auth"
	"wa-gateway/internal"
	"wa-gateway/notify"
	"wa-gateway/observability"
	"wa-gateway/runtime"
	"wa-gateway/runtime/workers"
	"wa-gateway/server"
	"wa-gateway/services"
	"wa-gateway/storage"
	"wa-gateway/waengine"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Gateway terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// The pattern keeps every defer (database close, credential store close) on the exit path
// and keeps initialization testable outside the process entry point.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx := context.Background()

	// 2. Database (BadgerDB): tenant records plus the message cache
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}

	if logger.Enabled(ctx, slog.LevelDebug) {
		debugPort := 8081
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", debugPort, endpoint))
		database.StartDebugServer(db, debugPort, endpoint, CacheMapper)
	}

	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Protocol engine factory on top of the sqlite credential store
	cache := storage.NewMessageCache(db, logger)
	stores := storage.NewStores(db, logger)

	factory, err := waengine.NewFactory(ctx, logger, config.DeviceStoreDSN, cache)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		logger.Info("Closing device store...")
		_ = factory.Close()
	}()

	// 4. Session orchestration
	registry := runtime.NewRegistry()
	tracker := runtime.NewTracker()
	webhook := notify.NewWebhook(logger, config.QRWebhookURL, config.LoginWebhookURL,
		config.NotifyTimeout, config.NotifyBufferSize)
	orchestrator := runtime.NewOrchestrator(logger, registry, tracker, factory, stores, webhook)
	reader := runtime.NewChatReader(logger, registry, tracker, orchestrator)

	monitor := observability.NewMonitor(logger).Register(func(stats *observability.GatewayStats) {
		stats.SessionsReady = registry.Len()
		stats.SessionsInitializing = tracker.Count()
		stats.NotificationsQueued = webhook.QueueDepth()
		stats.NotificationsDropped = webhook.Dropped()
	})

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Background workers under supervision
	sup := workers.NewSupervisor(logger)
	sup.Add(
		webhook,
		storage.NewSyncWorker(logger, db, config.SyncInterval),
		workers.NewTelemetryWorker(logger, monitor, config.TelemetryInterval),
	)
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	// 7. HTTP API
	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	service := services.NewGatewayService(orchestrator, reader, registry)
	api := server.NewServer(logger, service, monitor, tokens)

	httpServer := &http.Server{
		Addr:              config.Addr(),
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", config.Addr(), "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 9. Final Cleanup (Graceful Shutdown)
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	sup.Stop()
	<-supDone
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

// CacheMapper renders cached messages readable in the Badger inspector.
func CacheMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)

	var msg storage.CachedMessage
	if err := json.Unmarshal(val, &msg); err == nil && msg.ChatJID != "" {
		row.Type = "MESSAGE"
		row.EntityID = msg.ChatJID
		row.Detail = msg.Body
		return row
	}

	var meta storage.ChatMeta
	if err := json.Unmarshal(val, &meta); err == nil && meta.JID != "" {
		row.Type = "CHAT"
		row.EntityID = meta.JID
		row.Detail = meta.Name
	}
	return row
}
