// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/application/container"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/presentation/http/server"
	"github.com/Financial-Times/session-user-data-service-sub000/pkg/config"
)

// Initialize performs the complete startup sequence and blocks until
// shutdown completes.
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	// Step 1: Channeled logging
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Startup().Info("Starting session user data service")

	// Step 2: Dependency injection container
	logger.Startup().Info("Initializing dependency injection container...")
	appContainer, err := container.NewContainer(logger)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 3: Warm the document-store connection. The connection provider
	// establishes lazily; a failure here is logged, not fatal, because the
	// service still serves through its upstreams.
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), config.DBConnectTimeout)
	if err := appContainer.Documents.Warm(warmCtx); err != nil {
		logger.Startup().Warn("Document store not reachable at startup, continuing without cache",
			"error", err.Error())
	} else {
		logger.Startup().Info("Document store connection established")
	}
	cancelWarm()

	// Step 4: HTTP server
	logger.Startup().Info("Starting HTTP server...")
	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+config.Port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", config.Port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Closing document store connections...")
	if err := appContainer.Documents.Close(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error closing document store", "error", err.Error())
	} else {
		logger.Shutdown().Info("Document store connections closed")
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
