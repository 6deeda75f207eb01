package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/adeoluwa-dev/chatdocs/internal/api/handlers"
	appMiddleware "github.com/adeoluwa-dev/chatdocs/internal/api/middlewares"
	"github.com/adeoluwa-dev/chatdocs/internal/chat"
	"github.com/adeoluwa-dev/chatdocs/internal/config"
	"github.com/adeoluwa-dev/chatdocs/internal/core"
	"github.com/adeoluwa-dev/chatdocs/internal/ingest"
	"github.com/adeoluwa-dev/chatdocs/internal/retrieval"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, obj core.ObjectClient, ing *ingest.DocumentIngestor, retriever *retrieval.Coordinator, gateway *chat.Gateway) *Server {
	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	docHandler := handlers.NewDocumentHandler(db, obj, ing, cfg)
	chatHandler := handlers.NewChatHandler(retriever, gateway)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))
			// Upload runs ingestion synchronously and chat streams tokens;
			// neither tolerates the usual short request timeout.
			protected.Post("/upload", docHandler.Upload)
			protected.Get("/files", docHandler.List)
			protected.Delete("/files", docHandler.Delete)
			protected.Post("/chat", chatHandler.Stream)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
