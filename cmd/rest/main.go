package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-screenwriting-be/internal/bootstrap"
	"ai-screenwriting-be/internal/config"
	"ai-screenwriting-be/internal/server"
	"ai-screenwriting-be/internal/tracer"
	"ai-screenwriting-be/pkg/database"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load configuration
	cfg := config.Load()

	// 2. Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, database.Options{Verbose: !cfg.IsProduction()})
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Dependencies
	container, err := bootstrap.NewContainer(gormDB, cfg)
	if err != nil {
		log.Panicf("Unable to build container: %v", err)
	}
	defer container.Close()

	shutdownTracer := tracer.Init(ctx, cfg.Tracing, container.Logger)
	defer shutdownTracer(context.Background())

	srv := server.New(cfg, container)
	g, gctx := errgroup.WithContext(ctx)

	// 4. Background services
	g.Go(func() error {
		container.WebSocketHub.Run(gctx)
		return nil
	})
	for _, consumer := range container.Consumers {
		if err := consumer.Consume(gctx); err != nil {
			log.Panicf("Unable to start consumer: %v", err)
		}
	}
	if container.ActivityService != nil {
		if err := container.ActivityService.Start(gctx); err != nil {
			container.Logger.Warn("Main", "Activity relay not started", map[string]interface{}{"error": err.Error()})
		}
	}

	// 5. HTTP
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(
			srv.Shutdown(shutdownCtx),
			container.AgentService.Shutdown(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		container.Logger.Error("Main", "Server stopped with error", map[string]interface{}{"error": err.Error()})
		return
	}
	container.Logger.Info("Main", "Server stopped", nil)
}
