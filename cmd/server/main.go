package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/api"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/app"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/config"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	orch := pipeline.NewOrchestrator(cfg, components.Ingestor, log)
	orch.Start(ctx)

	var collections api.CollectionAdmin
	if components.Weaviate != nil {
		collections = components.Weaviate
	}
	srv := api.NewServer(orch, collections, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting docingest", "port", cfg.Port, "workers", cfg.WorkerCount, "collection", cfg.WeaviateCollection)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
