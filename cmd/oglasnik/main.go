package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/oglasnik/internal/api"
	"github.com/erazemk/oglasnik/internal/backend"
	"github.com/erazemk/oglasnik/internal/baas"
	"github.com/erazemk/oglasnik/internal/catalog"
	"github.com/erazemk/oglasnik/internal/config"
	"github.com/erazemk/oglasnik/internal/db"
	"github.com/erazemk/oglasnik/internal/i18n"
	"github.com/erazemk/oglasnik/internal/listing"
	"github.com/erazemk/oglasnik/internal/logging"
	"github.com/erazemk/oglasnik/internal/media"
	"github.com/erazemk/oglasnik/internal/pgsource"
	"github.com/erazemk/oglasnik/internal/session"
	"github.com/erazemk/oglasnik/internal/store"
	"github.com/erazemk/oglasnik/internal/web"
)

// purgeInterval is how often expired revoked tokens are deleted.
const purgeInterval = time.Hour

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(os.Args[1:], os.LookupEnv, os.Stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// INFO/WARN → stdout, ERROR → stderr, optionally a log file and Fluent Bit.
	logger, closeLog, err := logging.Setup(logging.Options{
		Path:       cfg.LogPath,
		Level:      level,
		FluentHost: cfg.FluentHost,
		FluentPort: cfg.FluentPort,
		FluentTag:  "oglasnik",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := session.NewHub()
	defer hub.Close()
	go auditSessions(hub, logger)

	b, mediaHandler, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to set up backend", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}
	defer closeBackend()

	source := listing.Source(b.Listings)
	if cfg.DatabaseURL != "" {
		pool, err := pgsource.Open(ctx, cfg.DatabaseURL, pgsource.DefaultMaxConns)
		if err != nil {
			slog.Error("failed to connect to listing database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		source = pgsource.New(pool)
		slog.Info("reading listings directly from database")
	}

	bundle, err := loadLocales(ctx, cfg.LocalesDir)
	if err != nil {
		slog.Error("failed to load translations", "error", err)
		os.Exit(1)
	}

	cat := catalog.Default()
	loader := &listing.Loader{Source: source, Catalog: cat}
	resolver := &media.Resolver{Bucket: b.Images.Bucket(), PublicURL: b.Images.PublicURL}

	// Set up routers.
	apiRouter := api.NewRouter(api.Deps{
		Backend:        b,
		Loader:         loader,
		Catalog:        cat,
		Resolver:       resolver,
		Hub:            hub,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	webRouter, err := web.NewRouter(web.Deps{
		Backend:  b,
		Loader:   loader,
		Catalog:  cat,
		Resolver: resolver,
		Bundle:   bundle,
		Hub:      hub,
		BaseURL:  cfg.BaseURL,
	})
	if err != nil {
		slog.Error("failed to set up web router", "error", err)
		os.Exit(1)
	}

	// Combine: API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/functions/", apiRouter)
	if mediaHandler != nil {
		mux.Handle(backend.MediaPrefix, mediaHandler)
	}
	mux.Handle("/", webRouter)

	handler := api.LoggingMiddleware(mux)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "backend", b.Name, "url", cfg.BaseURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// openBackend builds the configured backend. For the local backend it also
// returns the handler serving uploaded images.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend.Backend, http.Handler, func(), error) {
	if cfg.Backend == config.BackendRemote {
		opts := []baas.Option{baas.WithTimeout(cfg.HTTPTimeout)}
		if cfg.BaaSServiceKey != "" {
			opts = append(opts, baas.WithServiceKey(cfg.BaaSServiceKey))
		}
		client, err := baas.New(cfg.BaaSURL, cfg.BaaSAnonKey, opts...)
		if err != nil {
			return nil, nil, nil, err
		}
		if !client.HasServiceKey() {
			slog.Warn("no service key configured, admin password reset is disabled")
		}
		slog.Info("using hosted backend", "url", cfg.BaaSURL, "bucket", cfg.Bucket)
		return backend.Remote(client, cfg.Bucket), nil, func() {}, nil
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, nil, nil, fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	// Load JWT secret from database (auto-generated on first run).
	secret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, nil, fmt.Errorf("loading JWT secret: %w", err)
	}

	bucket, err := backend.NewDiskBucket(cfg.MediaDir, cfg.Bucket)
	if err != nil {
		database.Close()
		return nil, nil, nil, err
	}

	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				n, err := store.PurgeRevokedTokens(ctx, database, now)
				if err != nil {
					slog.Warn("failed to purge revoked tokens", "error", err)
				} else if n > 0 {
					slog.Info("purged revoked tokens", "count", n)
				}
			}
		}
	}()

	b := backend.Local(backend.LocalConfig{
		DB:        database,
		JWTSecret: secret,
		Media:     bucket,
		BaseURL:   cfg.BaseURL,
		Logger:    logger,
	})
	return b, bucket.Handler(), func() { database.Close() }, nil
}

// loadLocales uses the embedded translations, or dir with hot reload when set.
func loadLocales(ctx context.Context, dir string) (*i18n.Bundle, error) {
	if dir == "" {
		return i18n.Load(i18n.Embedded(), i18n.DefaultPrimary)
	}
	b, err := i18n.Load(os.DirFS(dir), i18n.DefaultPrimary)
	if err != nil {
		return nil, err
	}
	if err := i18n.Watch(ctx, dir, b); err != nil {
		return nil, err
	}
	slog.Info("translations loaded", "dir", dir, "locales", b.Locales())
	return b, nil
}

// auditSessions logs every auth state change until the hub is closed.
func auditSessions(hub *session.Hub, logger *slog.Logger) {
	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	for e := range events {
		logger.Info("auth event", "kind", string(e.Kind), "user", e.UserID, "email", e.Email, "at", e.At)
	}
}
