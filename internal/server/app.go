// Package server initializes and runs the document server: it opens the
// catalog database, applies migrations, connects the object store, wires the
// core services together, and drives the HTTP endpoint with graceful
// shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/pdfvault/pdfvault/internal/logging"
	"github.com/pdfvault/pdfvault/internal/server/config"
	"github.com/pdfvault/pdfvault/internal/server/docview"
	"github.com/pdfvault/pdfvault/internal/server/objstore"
	"github.com/pdfvault/pdfvault/internal/server/repositories/repomanager"
	"github.com/pdfvault/pdfvault/internal/server/resolve"
	"github.com/pdfvault/pdfvault/internal/server/rest"
	"github.com/pdfvault/pdfvault/internal/server/transfer"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	rest   *rest.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := objstore.NewS3Store(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	controller := transfer.NewController(db, repos, store, logger, cfg.MaxUploadBytes)
	view := docview.NewView(db, repos, store, logger)
	resolver := resolve.NewResolver(db, repos, store, logger)

	srv := rest.NewServer(cfg, logger, controller, view, resolver)

	return &App{config: cfg, logger: logger, db: db, rest: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.rest.Run(ctx)
	})

	err := g.Wait()

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close error", "err", cerr)
	}

	return err
}
