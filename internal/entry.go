// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/api"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/metrics"
	"github.com/starford/quire/internal/post"
	"github.com/starford/quire/internal/postservice"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", stdout: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// content opens the posts root and, when it exists, the images root.
func content(cfg *Config, logger *slog.Logger) (*storage.FS, *storage.FS, error) {
	posts, err := storage.NewFS(cfg.Content.PostsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("init posts storage: %w", err)
	}
	if cfg.Content.ImagesPath == "" {
		return posts, nil, nil
	}
	images, err := storage.NewFS(cfg.Content.ImagesPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("images directory missing, thumbnails disabled",
				slog.String("images_path", cfg.Content.ImagesPath))
			return posts, nil, nil
		}
		return nil, nil, fmt.Errorf("init images storage: %w", err)
	}
	return posts, images, nil
}

func loader(cfg *Config, posts, images *storage.FS, logger *slog.Logger) postservice.Loader {
	opts := []post.LoadOption{
		post.WithLogger(logger),
		post.WithImagesURLPrefix(cfg.Content.ImagesURLPrefix),
		post.WithLocales(cfg.Site.DefaultLocale, cfg.Site.Locales...),
	}
	if cfg.Content.DirectoryOrder {
		opts = append(opts, post.WithDirectoryOrder())
	}
	// A nil *storage.FS must not become a non-nil Provider.
	var imgs storage.Provider
	if images != nil {
		imgs = images
	}
	return func() (*post.Repository, error) {
		return post.Load(posts, imgs, opts...)
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(cfg, os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("posts_path", cfg.Content.PostsPath),
		slog.String("images_path", cfg.Content.ImagesPath),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("default_locale", cfg.Site.DefaultLocale),
		slog.Any("locales", cfg.Site.Locales),
		slog.Bool("watch", cfg.Content.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	posts, images, err := content(cfg, logger)
	if err != nil {
		return err
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	svc, err := postservice.New(loader(cfg, posts, images, logger),
		postservice.WithIndex(db),
		postservice.WithMetrics(collector),
		postservice.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("load posts: %w", err)
	}
	repo := svc.Repository()
	logger.Info("Posts loaded", slog.Int("posts", repo.Len()), slog.Any("locales", repo.Locales()))

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(svc, api.RouterConfig{
		AuthEnabled:  cfg.Auth.AuthEnabled(),
		Token:        cfg.Auth.Token,
		Events:       broker,
		Images:       images,
		ImagesPrefix: cfg.Content.ImagesURLPrefix,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware(collector))

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !svc.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"loading"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler(reg))

	r.Mount("/", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Content.Watch {
		roots := []string{posts.Root()}
		if images != nil {
			roots = append(roots, images.Root())
		}
		g.Go(func() error {
			return index.Watch(gCtx, roots, cfg.Content.WatchDebounce, logger, func() {
				changes, err := svc.Reload(gCtx)
				if err != nil {
					return
				}
				api.Publish(broker, changes)
			})
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

		logger.Info("Shutting down server...")

		// Open SSE streams only end when the broker closes.
		broker.Close()

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

// RunMCP serves the MCP tools on stdio. Logs go to stderr because stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stderr)

	posts, images, err := content(cfg, logger)
	if err != nil {
		return err
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	svc, err := postservice.New(loader(cfg, posts, images, logger),
		postservice.WithIndex(db),
		postservice.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("load posts: %w", err)
	}

	logger.Info("MCP server starting", slog.Int("posts", svc.Repository().Len()))
	return mcpserver.New(svc, app.version).ServeStdio()
}

// Check loads the corpus once and writes a per-locale report. It fails when
// any post cannot be loaded.
func Check(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stderr)

	posts, images, err := content(cfg, logger)
	if err != nil {
		return err
	}
	repo, err := loader(cfg, posts, images, logger)()
	if err != nil {
		return fmt.Errorf("load posts: %w", err)
	}

	w := app.stdout
	for _, loc := range repo.Locales() {
		c := repo.In(loc)
		variants, undated := 0, 0
		for _, p := range c.All() {
			if p.Locale == loc {
				variants++
			}
			if p.PublishedAt == post.InvalidTimestamp {
				undated++
			}
		}
		fmt.Fprintf(w, "%s\tposts=%d\tvariants=%d\tundated=%d\ttags=%d\n",
			loc, c.Len(), variants, undated, len(c.Tags()))
	}
	return nil
}
