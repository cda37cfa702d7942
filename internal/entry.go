// Package internal provides the application initialization and runtime
// logic behind each command.
package internal

import (
	"context"
	"encoding/json"
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

	"github.com/starford/issueblog/internal/api"
	"github.com/starford/issueblog/internal/content"
	"github.com/starford/issueblog/internal/mcpserver"
	"github.com/starford/issueblog/internal/playlist"
	"github.com/starford/issueblog/internal/posts"
	"github.com/starford/issueblog/internal/postservice"
	"github.com/starford/issueblog/internal/publish"
	"github.com/starford/issueblog/internal/scaffold"
	"github.com/starford/issueblog/internal/sse"
	"github.com/starford/issueblog/internal/storage"
	"github.com/starford/issueblog/internal/tracker"
)

// components is everything a command may need, wired from the config.
type components struct {
	store     storage.Provider
	publisher *publish.Publisher
	service   *postservice.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{
		version: "dev",
		stdout:  os.Stdout,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = NewLogger(os.Stderr, app.config.App)
	}
	return app, nil
}

// openStore roots storage at the posts directory, creating it only when
// create is set. Sync never creates it: an empty tree closes every issue.
func (a *application) openStore(create bool) (storage.Provider, error) {
	dir := a.config.Blog.PostsDir
	if create {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create posts dir: %w", err)
		}
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return store, nil
}

func (a *application) openTracker(ctx context.Context) (tracker.Tracker, error) {
	t := a.tracker
	if t == nil {
		gh := a.config.GitHub
		if err := gh.Validate(); err != nil {
			return nil, err
		}
		client, err := tracker.NewGitHubClient(ctx, gh.Token, gh.APIURL)
		if err != nil {
			return nil, err
		}
		repo, err := tracker.NewGitHub(ctx, client, gh.Repository)
		if err != nil {
			return nil, err
		}
		t = repo
	}
	if a.dryRun {
		a.logger.Info("dry run: tracker mutations are logged, not sent")
		t = tracker.NewDryRun(t, a.logger)
	}
	return t, nil
}

func (a *application) build(ctx context.Context, createDir bool, svcOpts ...postservice.Option) (*components, error) {
	cfg := a.config
	store, err := a.openStore(createDir)
	if err != nil {
		return nil, err
	}
	t, err := a.openTracker(ctx)
	if err != nil {
		return nil, err
	}

	loader := posts.NewLoader(store, cfg.Blog.IndexFile, a.logger)
	transformer := content.NewTransformer(cfg.GitHub.RawHost, cfg.GitHub.Repository, cfg.GitHub.Branch, cfg.Blog.RepoPath)
	pub := publish.New(t, loader, transformer, cfg.TOC.Options(), a.logger)
	sc := scaffold.New(store, cfg.Blog.IndexFile, cfg.Scaffold.DefaultLabel, a.logger)

	return &components{
		store:     store,
		publisher: pub,
		service:   postservice.NewService(store, pub, sc, transformer, cfg.Blog.IndexFile, svcOpts...),
	}, nil
}

func (c *components) syncPass(ctx context.Context) error {
	_, err := c.service.Sync(ctx)
	return err
}

// Sync runs one publishing pass, or keeps running passes as the posts tree
// changes when watching is enabled.
func Sync(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger
	logger.Info("Configuration loaded",
		slog.String("posts_dir", app.config.Blog.PostsDir),
		slog.String("repository", app.config.GitHub.Repository),
		slog.Bool("dry_run", app.dryRun),
		slog.Bool("watch", app.watch))

	c, err := app.build(ctx, false)
	if err != nil {
		return err
	}

	if !app.watch {
		report, err := c.publisher.Run(ctx)
		if err != nil {
			return err
		}
		return printJSON(app, report)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return publish.Watch(ctx, c.store.Root(), app.debounce, logger, c.syncPass)
}

// NewPost scaffolds a post directory. It needs no tracker credentials.
func NewPost(req scaffold.Request, opts ...Option) (*scaffold.Created, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	store, err := app.openStore(true)
	if err != nil {
		return nil, err
	}
	cfg := app.config
	return scaffold.New(store, cfg.Blog.IndexFile, cfg.Scaffold.DefaultLabel, app.logger).Create(req)
}

// DownloadPlaylist runs the playlist downloader with the playlist section.
func DownloadPlaylist(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return playlist.NewDownloader(app.logger, app.download...).Download(ctx, app.config.Playlist)
}

// ServeMCP serves the MCP tools on stdin/stdout.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := app.build(ctx, true)
	if err != nil {
		return err
	}
	app.logger.Info("MCP server starting on stdio", slog.String("posts_dir", app.config.Blog.PostsDir))
	return mcpserver.New(c.service, app.version).ServeStdio()
}

// Serve starts the HTTP trigger service, and the watcher when enabled.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("posts_dir", cfg.Blog.PostsDir),
		slog.String("repository", cfg.GitHub.Repository),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.Bool("watch", app.watch))

	events := sse.NewBroker()
	defer events.Close()

	c, err := app.build(ctx, true, postservice.WithNotifier(events))
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newRouter(c.service, cfg.Auth, events),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if app.watch {
		g.Go(func() error {
			return publish.Watch(gCtx, c.store.Root(), app.debounce, logger, c.syncPass)
		})
	}

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

		// Event streams never finish on their own.
		events.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func newRouter(svc *postservice.Service, auth AuthConfig, events http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", health)
	r.Get("/health/ready", health)

	r.Mount("/api", api.NewRouter(svc, auth.AuthEnabled(), auth.Token, events))
	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func printJSON(app *application, v any) error {
	enc := json.NewEncoder(app.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
