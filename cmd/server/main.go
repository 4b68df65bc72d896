package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hoclieu/examgen/internal/ai"
	"github.com/hoclieu/examgen/internal/bank"
	"github.com/hoclieu/examgen/internal/build"
	"github.com/hoclieu/examgen/internal/exam"
	"github.com/hoclieu/examgen/internal/matrix"
	"github.com/hoclieu/examgen/internal/platform/cache"
	"github.com/hoclieu/examgen/internal/platform/config"
	"github.com/hoclieu/examgen/internal/platform/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	srv, cleanup, err := newServer(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// newServer wires templates, bank, stores and the AI router. The
// database and cache are optional: without them builds still work, they
// just live in memory for the life of the process.
func newServer(ctx context.Context, cfg *config.Config) (*server, func(), error) {
	templates, err := matrix.NewLoader(cfg.Paths.Templates, cfg.Exam.TotalPoints, cfg.Exam.PointStep)
	if err != nil {
		return nil, nil, fmt.Errorf("load templates: %w", err)
	}
	slog.Info("templates loaded", "count", len(templates.Names()))

	srv := &server{cfg: cfg, templates: templates}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns); err != nil {
		slog.Warn("database unavailable, builds will not be persisted", "error", err)
	} else {
		srv.db = db
		cleanups = append(cleanups, db.Close)
	}

	srv.bank, err = loadBank(ctx, cfg, srv.db)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("load question bank: %w", err)
	}
	slog.Info("question bank loaded", "questions", srv.bank.Len())

	var store build.Store
	if srv.db != nil {
		pgStore, err := build.NewPostgresStore(srv.db.Pool)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if err := pgStore.EnsureSchema(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		store = pgStore
	} else {
		store = build.NewMemoryStore()
	}

	if cfg.Cache.Enabled {
		if c, err := cache.New(ctx, cfg.Cache.URL); err != nil {
			slog.Warn("cache unavailable, serving builds from the store", "error", err)
		} else {
			srv.cache = c
			cleanups = append(cleanups, func() { c.Close() })
			store = build.NewCachedStore(store, c.Client)
		}
	}
	srv.store = store

	var synth *ai.Synthesizer
	router := newAIRouter(cfg)
	if router.HasProvider() {
		synth = ai.NewSynthesizer(router, "")
	} else {
		slog.Info("no AI provider configured, synthesis disabled")
	}

	srv.builder = build.NewBuilder(build.Config{Synth: synth, Store: store})
	return srv, cleanup, nil
}

// loadBank prefers a bank file when configured, then the database, then
// an empty bank so the server can still report coverage and templates.
func loadBank(ctx context.Context, cfg *config.Config, db *database.DB) (*exam.Bank, error) {
	if cfg.Paths.Bank != "" {
		return bank.LoadFile(cfg.Paths.Bank)
	}
	if db != nil {
		store, err := bank.NewPostgresStore(db.Pool)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store.Load(ctx)
	}
	return exam.NewBank(nil)
}

func newAIRouter(cfg *config.Config) *ai.Router {
	router := ai.NewRouter()
	if key := cfg.AI.OpenAI.APIKey; key != "" {
		router.Register("openai", ai.NewOpenAIProvider(key))
	}
	if key := cfg.AI.DeepSeek.APIKey; key != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(key))
	}
	if key := cfg.AI.Google.APIKey; key != "" {
		router.Register("gemini", ai.NewGoogleProvider(key))
	}
	return router
}
