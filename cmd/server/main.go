package main

import (
	"alcyxob/training-planner/internal/api"
	"alcyxob/training-planner/internal/app"
	"alcyxob/training-planner/internal/config"
	"alcyxob/training-planner/internal/logger"
	"alcyxob/training-planner/internal/observability"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// @title Training Planner API
// @version 1.0
// @description Coaching plans with scoped, propagating edits across microcycles.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("FATAL: jwt.secret (JWT_SECRET) must be set")
	}

	appLog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("FATAL: Could not build logger: %v", err)
	}
	defer appLog.Sync()
	appLog.Info("Starting training planner server", "driver", cfg.Database.Driver, "sessions", cfg.Session.Backend)

	ctx := context.Background()

	// --- Tracing ---
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, appLog)
	if err != nil {
		appLog.Fatal("Could not initialize tracing", "error", err)
	}

	// --- Store, engine, services ---
	application, err := app.New(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatal("Could not initialize application", "error", err)
	}

	// --- Router ---
	router := api.NewRouter(cfg.Server.Mode, cfg.Tracing.ServiceName, appLog)
	api.SetupRoutes(router, cfg.JWT.Secret, application.PlanService, application.Sessions, appLog)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful Shutdown ---
	go func() {
		appLog.Info("Server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("ListenAndServe failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		appLog.Error("Server forced to shutdown", "error", err)
	}
	if err := application.Close(ctxShutdown); err != nil {
		appLog.Error("Failed to close application resources", "error", err)
	}
	if err := shutdownTracing(ctxShutdown); err != nil {
		appLog.Error("Failed to flush traces", "error", err)
	}
	appLog.Info("Server exiting.")
}
