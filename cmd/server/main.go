// biaBot - client intake API server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/biabot/internal/api"
	"github.com/ashureev/biabot/internal/auth"
	"github.com/ashureev/biabot/internal/chat"
	"github.com/ashureev/biabot/internal/config"
	"github.com/ashureev/biabot/internal/llm"
	"github.com/ashureev/biabot/internal/middleware"
	"github.com/ashureev/biabot/internal/monday"
	"github.com/ashureev/biabot/internal/service"
	"github.com/ashureev/biabot/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "env", cfg.AppEnv, "store", cfg.Store.Backend, "sessions", cfg.Sessions.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := openRepository(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	if cfg.Store.SeedSample {
		if err := store.Seed(ctx, repo); err != nil {
			slog.Error("Failed to seed sample data", "error", err)
			os.Exit(1)
		}
	}

	sessions, closeSessions, err := openSessions(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize chat sessions", "error", err)
		os.Exit(1)
	}
	defer closeSessions()

	transcripts, err := chat.NewTranscriptLogger(chat.TranscriptLogConfig{
		Enabled:   cfg.Transcript.Enabled,
		Dir:       cfg.Transcript.Dir,
		QueueSize: cfg.Transcript.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := transcripts.Close(); closeErr != nil {
			slog.Warn("Failed to flush transcripts", "error", closeErr)
		}
	}()

	columns, err := monday.ParseColumnMap(cfg.Monday.ColumnMapJSON)
	if err != nil {
		slog.Warn("Invalid MONDAY_COLUMN_MAP_JSON, using default columns", "error", err)
	}
	board := monday.New(monday.Config{
		APIURL:    cfg.Monday.APIURL,
		APIToken:  cfg.Monday.APIToken,
		BoardID:   cfg.Monday.BoardID,
		MockMode:  cfg.Monday.MockMode,
		ColumnMap: columns,
	}, logger)
	slog.Info("Board client ready", "mock_mode", board.MockMode(), "board_id", cfg.Monday.BoardID)

	summarizer, err := llm.New(llm.Config{
		Provider:     cfg.AI.Provider,
		APIKey:       cfg.AI.APIKey,
		BaseURL:      cfg.AI.BaseURL,
		Model:        cfg.AI.Model,
		SystemPrompt: cfg.AI.SystemPrompt,
		Timeout:      cfg.AI.Timeout,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize summary model", "error", err)
		os.Exit(1)
	}
	slog.Info("Summary model", "provider", cfg.AI.Provider, "enabled", summarizer.Enabled())

	// Initialize services.
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)
	intakeSvc := service.New(repo, issuer, summarizer, board, service.Config{Logger: logger})
	adminSvc := service.NewAdmin(repo, board, cfg.Auth.AdminSecret, logger)
	controller := chat.NewController(service.NewLocalBackend(intakeSvc), sessions, chat.ControllerConfig{
		Transcript: transcripts,
		Logger:     logger,
	})

	authLimiter := middleware.NewRateLimiter(cfg.Auth.RateLimit, cfg.Auth.RateWindow)
	authLimiter.StartEviction(ctx)

	origins := middleware.ParseOrigins(cfg.CORSOrigins)
	h := api.NewHandler(api.Deps{
		Intake:         intakeSvc,
		Admin:          adminSvc,
		Chat:           controller,
		Repo:           repo,
		Issuer:         issuer,
		AdminSecret:    cfg.Auth.AdminSecret,
		AuthLimiter:    authLimiter,
		AllowedOrigins: origins,
		IsDev:          cfg.IsDevelopment(),
	})

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(origins))

	h.RegisterRoutes(r)

	// Chat turns may wait on the summary model, so writes get a generous timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func openRepository(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DBPath)
	case "postgres":
		return store.NewPostgres(ctx, store.PostgresConfig{
			DSN:      cfg.Store.DatabaseURL,
			MaxConns: int32(cfg.Store.MaxConns),
		})
	case "memory":
		slog.Warn("Using in-memory store, data is lost on restart")
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// openSessions returns the chat session store and its cleanup. The in-memory
// store is swept by a TTL worker; Redis expires keys itself.
func openSessions(ctx context.Context, cfg *config.Config) (chat.SessionStore, func(), error) {
	if cfg.Sessions.Backend == "redis" {
		rs, err := chat.NewRedisSessionStore(ctx, cfg.Sessions.RedisURL, cfg.Sessions.TTL)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Chat sessions stored in Redis", "ttl", cfg.Sessions.TTL)
		return rs, func() {
			if err := rs.Close(); err != nil {
				slog.Warn("Failed to close redis session store", "error", err)
			}
		}, nil
	}

	ms := chat.NewMemorySessionStore()
	ms.StartSweeper(ctx, cfg.Sessions.TTL)
	slog.Info("Session TTL worker started", "session_ttl", cfg.Sessions.TTL)
	return ms, func() {}, nil
}
