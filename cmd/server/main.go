/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Schedule 1 pay calculation server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Seed governed rate tables from YAML (first run only)
  4. Build policy provider, calculator, and timesheet service
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: schedule1.db)
           Use ":memory:" for in-memory database
  -rates   Optional YAML rate catalogue to seed the store with.
           Seeding only runs when the rate tables are empty; without
           a seeded table the engine falls back to its embedded
           default catalogue.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database and governed rates
  ./server -db="./data/schedule1.db" -rates="./rates.yaml"

  # Run with in-memory database on the embedded catalogue
  ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - factory/rates.go: YAML catalogue loading
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/casualpay/schedule1-engine/api"
	"github.com/casualpay/schedule1-engine/factory"
	"github.com/casualpay/schedule1-engine/schedule1"
	"github.com/casualpay/schedule1-engine/store/sqlite"
	"github.com/casualpay/schedule1-engine/timesheet"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "schedule1.db", "SQLite database path")
	ratesPath := flag.String("rates", "", "YAML rate catalogue to seed on first run")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Seed governed rate tables
	if *ratesPath != "" {
		if err := seedRates(ctx, store, *ratesPath, logger); err != nil {
			logger.Fatal("failed to seed rate catalogue", zap.Error(err))
		}
	}

	// Wire the engine
	provider := schedule1.NewPolicyProvider(ctx, store, logger)
	calc := schedule1.NewCalculator(provider)
	service := timesheet.NewService(store, calc, logger)
	handler := api.NewHandler(calc, service, logger)

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.Int("port", *port),
			zap.String("db", *dbPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// seedRates loads the YAML catalogue into the store, but only when the
// rate tables are empty. Re-running the server against a seeded database
// keeps the governed figures already on disk.
func seedRates(ctx context.Context, store *sqlite.Store, path string, logger *zap.Logger) error {
	count, err := store.CountRateCodes(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info("rate tables already seeded, skipping",
			zap.Int("rate_codes", count))
		return nil
	}

	catalogue, err := factory.LoadCatalogue(path)
	if err != nil {
		return err
	}
	if err := catalogue.Seed(ctx, store); err != nil {
		return err
	}
	logger.Info("seeded rate catalogue",
		zap.String("path", path),
		zap.Int("rate_codes", len(catalogue.Seeds)))
	return nil
}
