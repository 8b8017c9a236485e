/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse flags/environment
  2. Initialize structured logger
  3. Initialize SQLite store
  4. Create API handler and router
  5. Start the nightly recalculation scheduler
  6. Start server with graceful shutdown

CONFIGURATION:
  -a / LEAVE_ADDR           listen address (default :8080)
  -d / LEAVE_DB_PATH        SQLite path, ":memory:" for ephemeral
  -recalc / LEAVE_RECALC_CRON  cron spec for the expiry sweep
  -cors / LEAVE_CORS_ORIGINS   allowed CORS origins

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/warp/leave-ledger/api"
	"github.com/warp/leave-ledger/config"
	"github.com/warp/leave-ledger/logger"
	"github.com/warp/leave-ledger/store/sqlite"
)

func main() {
	// A missing .env is fine; environment and flags still apply.
	_ = godotenv.Load()

	cfg, err := config.Parse()
	if err != nil {
		panic(err)
	}

	log := logger.Must(logger.New())
	defer log.Sync()

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	handler := api.NewHandler(store, logger.Named(log, "api"))
	router := api.NewRouter(handler, cfg.CORSOrigins)

	scheduler := api.NewScheduler(store, cfg.RecalcSpec, logger.Named(log, "scheduler"))
	if err := scheduler.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.String("addr", cfg.Addr),
			zap.String("db", cfg.DatabasePath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("forced shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
