// Package internal wires configuration into the vault commands and the HTTP server.
package internal

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
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultlens/internal/api"
	"github.com/starford/vaultlens/internal/apperr"
	"github.com/starford/vaultlens/internal/backup"
	"github.com/starford/vaultlens/internal/embedding"
	"github.com/starford/vaultlens/internal/index"
	"github.com/starford/vaultlens/internal/mcpserver"
	"github.com/starford/vaultlens/internal/noteservice"
	"github.com/starford/vaultlens/internal/notify"
	"github.com/starford/vaultlens/internal/pipeline"
	"github.com/starford/vaultlens/internal/sse"
	"github.com/starford/vaultlens/internal/storage"
	"github.com/starford/vaultlens/internal/ui"
)

const indexDir = ".search_index"

// App is the composed application. Every command runs against one App.
type App struct {
	cfg      *Config
	logger   *slog.Logger
	out      *ui.Printer
	client   *http.Client
	version  string
	fs       *storage.FS
	store    index.Store
	provider embedding.Provider
	svc      *noteservice.Service

	progress func(done, total int)
}

// New composes the application. It fails only for a missing config or an
// unusable vault root; absent credentials disable the semantic features.
func New(opts ...Option) (*App, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
		slog.SetDefault(logger)
	}
	out := app.out
	if out == nil {
		out = os.Stdout
	}
	client := app.httpClient
	if client == nil {
		client = &http.Client{}
	}

	fs, err := storage.NewFS(cfg.Vault.Path, cfg.Vault.Ignore)
	if err != nil {
		return nil, fmt.Errorf("init vault: %w", err)
	}

	indexPath := cfg.Index.Location(fs.Root())
	logger.Info("Configuration loaded",
		slog.String("vault_path", fs.Root()),
		slog.String("index_backend", cfg.Index.Backend),
		slog.String("index_path", indexPath),
		slog.String("embedding_provider", cfg.Embedding.Provider),
		slog.String("log_level", cfg.App.LogLevel.String()))

	provider := app.provider
	if provider == nil {
		provider, err = embedding.New(cfg.Embedding.Options(), client, logger)
		if err != nil {
			return nil, fmt.Errorf("init embedding: %w", err)
		}
	}
	if !embedding.Enabled(provider) {
		logger.Warn("embedding: provider not configured, semantic features disabled")
	} else if !cfg.Embedding.Configured() {
		logger.Info("embedding: using injected provider", slog.String("provider", provider.Name()))
	}

	store, err := index.OpenStore(cfg.Index.Backend, indexPath)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		out:      ui.NewPrinter(out),
		client:   client,
		version:  app.version,
		fs:       fs,
		store:    store,
		provider: provider,
	}

	buildOpts := cfg.Index.BuildOptions()
	buildOpts.Progress = func(done, total int) {
		if a.progress != nil {
			a.progress(done, total)
		}
	}
	builder := index.NewBuilder(provider, store, buildOpts, logger)
	searcher := index.NewSearcher(provider, store)
	a.svc = noteservice.NewService(fs, cfg.Vault.Exempt, builder, searcher, logger)
	return a, nil
}

// Close releases the index store.
func (a *App) Close() error {
	return a.store.Close()
}

// Service returns the shared use-case layer.
func (a *App) Service() *noteservice.Service {
	return a.svc
}

// Health prints the vault health report.
func (a *App) Health(ctx context.Context) error {
	r, err := a.svc.Health(ctx)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	a.out.Health(r)
	return nil
}

// Build brings the embedding index up to date and prints a summary.
func (a *App) Build(ctx context.Context) error {
	a.progress = a.out.Progress
	defer func() { a.progress = nil }()

	stats, err := a.svc.BuildIndex(ctx)
	a.out.EndProgress()
	switch {
	case errors.Is(err, apperr.ErrConfigMissing):
		a.out.Warn("embedding provider not configured; set embedding.api_key to build the index")
		return nil
	case errors.Is(err, apperr.ErrIndexLocked):
		a.out.Warn("another build is running; try again later")
		return nil
	case err != nil:
		return fmt.Errorf("build: %w", err)
	}
	a.out.BuildSummary(a.store.Path(), stats)
	return nil
}

// Search prints the top k notes for query. Missing credentials, a missing
// index or a provider failure print a warning instead of failing.
func (a *App) Search(ctx context.Context, query string, k int) error {
	results, err := a.svc.Search(ctx, query, k)
	switch {
	case errors.Is(err, apperr.ErrConfigMissing):
		a.out.Warn("embedding provider not configured; set embedding.api_key to search")
		return nil
	case errors.Is(err, apperr.ErrIndexMissing):
		a.out.Warn("no index found; run the build command first")
		return nil
	case apperr.IsProviderError(err):
		a.logger.Warn("search: query embedding failed", slog.String("error", err.Error()))
		a.out.Warn(apperr.Public(err))
		return nil
	case err != nil:
		return fmt.Errorf("search: %w", err)
	}
	a.out.SearchResults(query, results)
	return nil
}

// RunPipeline runs health, index build and backup once, then notifies.
func (a *App) RunPipeline(ctx context.Context) error {
	var bc backup.Client
	if a.cfg.Backup.Enabled {
		bc = backup.NewGit(a.fs.Root(), a.cfg.Backup.Remote, a.cfg.Backup.Timeout)
	}

	n := notify.New(a.cfg.Notify.WebhookURL, a.cfg.Notify.Timeout, a.client, a.logger)

	steps := []pipeline.Step{
		pipeline.HealthStep(a.svc),
		pipeline.IndexStep(a.svc),
		pipeline.BackupStep(bc, a.logger),
	}
	sum := pipeline.Run(ctx, steps, n, a.logger)
	a.out.Steps(sum.RunID, sum.Executed, sum.Skipped, sum.Failed)
	return nil
}

// ServeMCP serves the MCP tools over stdio until the client disconnects.
func (a *App) ServeMCP(_ context.Context) error {
	return mcpserver.New(a.svc, a.version).ServeStdio()
}

func (a *App) watchOptions(onChange func(ctx context.Context, paths []string)) index.WatchOptions {
	return index.WatchOptions{
		Root: a.fs.Root(),
		Ignored: func(name string) bool {
			return name == indexDir || a.fs.Ignored(name)
		},
		OnChange: onChange,
	}
}

// Watch rebuilds the index whenever notes change, until ctx is cancelled.
func (a *App) Watch(ctx context.Context) error {
	if !embedding.Enabled(a.provider) {
		a.out.Warn("embedding provider not configured; nothing to watch for")
		return nil
	}
	if err := a.Build(ctx); err != nil {
		return err
	}
	opts := a.watchOptions(func(ctx context.Context, paths []string) {
		stats, err := a.svc.BuildIndex(ctx)
		if err != nil {
			a.logger.Warn("watch: rebuild failed", slog.String("error", err.Error()))
			return
		}
		a.logger.Info("watch: index updated",
			slog.Int("changed", len(paths)),
			slog.Int("updated", stats.Updated),
			slog.Int("pruned", stats.Pruned))
	})
	if err := index.Watch(ctx, opts, a.logger); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

// Serve runs the HTTP API, the SSE broker and the vault watcher until ctx is
// cancelled or a shutdown signal arrives.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.cfg
	logger := a.logger

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(a.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := os.Stat(a.fs.Root()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"vault unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		opts := a.watchOptions(func(ctx context.Context, paths []string) {
			if !embedding.Enabled(a.provider) {
				broker.PublishChange(paths, nil, nil)
				return
			}
			stats, err := a.svc.BuildIndex(ctx)
			if err != nil {
				logger.Warn("serve: rebuild failed", slog.String("error", err.Error()))
				broker.PublishChange(paths, nil, err)
				return
			}
			broker.PublishChange(paths, stats, nil)
		})
		if err := index.Watch(gCtx, opts, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// Run composes the application and serves the HTTP API.
func Run(ctx context.Context, opts ...Option) error {
	a, err := New(opts...)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Serve(ctx)
}
