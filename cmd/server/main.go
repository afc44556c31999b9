package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tmorioka/sharefood/assets"
	"github.com/tmorioka/sharefood/internal"
	"github.com/tmorioka/sharefood/internal/auth"
	authdb "github.com/tmorioka/sharefood/internal/auth/db"
	"github.com/tmorioka/sharefood/internal/db"
	"github.com/tmorioka/sharefood/internal/db/migrate"
	"github.com/tmorioka/sharefood/internal/email"
	"github.com/tmorioka/sharefood/internal/email/postmark"
	"github.com/tmorioka/sharefood/internal/email/view"
	"github.com/tmorioka/sharefood/internal/item"
	itemdb "github.com/tmorioka/sharefood/internal/item/db"
	"github.com/tmorioka/sharefood/internal/session"
	"github.com/tmorioka/sharefood/internal/web"
	"github.com/tmorioka/sharefood/migrations"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env file is fine, all config has defaults or comes
	// from the real environment.
	_ = godotenv.Load()

	os.Exit(run(ctx, os.Stderr))
}

func run(ctx context.Context, w io.Writer) int {
	logger := slog.New(slog.NewTextHandler(w, nil))

	cfg, err := configFromEnv()
	if err != nil {
		logger.Error("failed to get config from environment", "error", err)
		return 1
	}

	sqlDB, err := db.OpenSQLite(cfg.dbFile, true)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return 1
	}

	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	migrated, err := migrate.RunFS(migrateCtx, sqlDB, migrations.FS, migrate.Metadata{
		AppVersion: internal.BuildRevision,
		Timestamp:  internal.BuildRevisionTime,
	})
	if err != nil {
		logger.Error("failed to run migrations", "error", err)
		return 1
	}

	for _, m := range migrated {
		logger.Info("ran migration", "sequence", m.Sequence, "filename", m.Filename)
	}

	var sender email.Sender = email.NewLogSender(logger)
	if cfg.email.driver == "postmark" {
		sender = postmark.NewSender(&http.Client{Timeout: time.Second * 10}, postmark.Settings{
			APIURL:        cfg.email.postmarkURL,
			ServerToken:   cfg.email.postmarkToken,
			MessageStream: cfg.email.messageStream,
		})
	}

	emailSvc := email.NewService(view.NewFSRenderer(assets.EmailFS), sender, email.ServiceConfig{
		From:    cfg.email.from,
		BaseURL: cfg.baseURL,
	})

	authSvc, err := auth.NewService(authdb.New(sqlDB), emailSvc, func(err error) {
		logger.Error("auth service error", "error", err)
	}, auth.ServiceConfig{
		TokenExpiry: cfg.tokenExpiry,
	})
	if err != nil {
		logger.Error("failed to create auth service", "error", err)
		return 1
	}

	issuer, err := session.NewIssuer(session.Config{
		SigningKey: cfg.signingKey,
		Issuer:     cfg.tokenIssuer,
		AccessTTL:  cfg.accessTTL,
		RefreshTTL: cfg.refreshTTL,
	})
	if err != nil {
		logger.Error("failed to create session issuer", "error", err)
		return 1
	}

	itemSvc := item.NewService(itemdb.New(sqlDB))

	srv := &http.Server{
		Addr:         cfg.http.addr,
		ReadTimeout:  cfg.http.readTimeout,
		WriteTimeout: cfg.http.writeTimeout,
		IdleTimeout:  cfg.http.idleTimeout,
		Handler: web.NewServer(&web.ServerDeps{
			Logger:      logger,
			AuthService: authSvc,
			ItemService: itemSvc,
			Sessions:    issuer,
		}),
	}

	// We need to run two tasks concurrently:
	// - Listen and serving of the HTTP server.
	// - Waiting for a signal to stop the server.

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"addr", cfg.http.addr,
			"buildRevision", internal.BuildRevision,
			"buildRevisionTime", internal.BuildRevisionTime,
			"buildLocalModified", internal.BuildLocalModified,
		)
		// ListenAndServe always returns a non-nil error,
		// g will cancel gCtx when an error is returned, so
		// this will also stop the other goroutine.
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("stopping http server")

		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.http.shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutCtx)
	})

	err = g.Wait()
	if err != nil && err != http.ErrServerClosed {
		logger.Error("http server stopped with error", "error", err)
		return 1
	}

	logger.Info("http server stopped successfully")

	return 0
}
