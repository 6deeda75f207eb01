package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/adeoluwa-dev/chatdocs/internal/app"
	"github.com/adeoluwa-dev/chatdocs/internal/config"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown.
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	cfg := config.LoadConfig()
	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	// Background workers re-ingest documents left in needs_embedding.
	application.Ingestor.Start(ctx, 2)

	go application.Server.Start()

	slog.Info("chatdocs is running")
	<-ctx.Done()

	if err := application.Server.Shutdown(context.Background()); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
