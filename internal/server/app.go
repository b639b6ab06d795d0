// Package server wires configuration, storage, services and transports
// together and runs the alert registry until it is told to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/alertkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/alertkeeper/internal/dbx"
	"github.com/dmitrijs2005/alertkeeper/internal/filex"
	"github.com/dmitrijs2005/alertkeeper/internal/logging"
	"github.com/dmitrijs2005/alertkeeper/internal/server/config"
	"github.com/dmitrijs2005/alertkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/alertkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/alertkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/alertkeeper/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	flushLog   func()
	db         *sql.DB
	httpServer *httpapi.Server
	grpcServer *gs.GRPCServer
}

// NewApp validates c, opens and migrates the database and builds both
// servers. Logs go to stdout.
func NewApp(c *config.Config) (*App, error) {
	return newApp(context.Background(), c, os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, flush, err := logging.New(c.LogBackend, logOut)
	if err != nil {
		return nil, err
	}

	dialect, err := dbx.ParseDialect(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}

	if dialect == dbx.DialectSQLite {
		if path := dbx.SQLiteFile(c.DatabaseDSN); path != "" {
			if err := filex.EnsureParentDir(path, 0o750); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open(dialect.DriverName(), c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if dialect == dbx.DialectSQLite {
		// modernc sqlite serialises writers; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewSQLRepositoryManager(dialect, logger)
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	us := services.NewUserService(db, m, c)
	as, err := services.NewAlertService(db, m, c.AlertCacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	opts := httpapi.Options{
		Title:           "alertkeeper",
		Version:         buildinfo.Version,
		RequestTimeout:  c.RequestTimeout,
		ShutdownTimeout: c.ShutdownTimeout,
	}

	app := &App{
		config:     c,
		logger:     logger,
		flushLog:   flush,
		db:         db,
		httpServer: httpapi.NewServer(c.EndpointAddrHTTP, logger, us, as, opts),
	}
	if c.EndpointAddrGRPC != "" {
		app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, logger)
	}
	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server error", "error", err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	app.grpcServer.SetServing(true)
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server error", "error", err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a termination signal arrives or one of
// the servers fails. The database is closed before Run returns.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "version", buildinfo.Version)

	stopSignals := app.initSignalHandler(cancelFunc)
	defer stopSignals()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.grpcServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
	app.logger.Info(context.Background(), "App stopped")
	app.flushLog()
}
