// Package server wires the backend together: storage backend selection,
// migrations, services, the REST API and the gRPC health endpoint, plus
// signal-driven graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/yieldvault/internal/logging"
	"github.com/dmitrijs2005/yieldvault/internal/server/config"
	"github.com/dmitrijs2005/yieldvault/internal/server/httpapi"
	"github.com/dmitrijs2005/yieldvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/yieldvault/internal/server/services"

	gs "github.com/dmitrijs2005/yieldvault/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	rm     repomanager.RepositoryManager
	http   *httpapi.Server
	health *gs.GRPCServer
}

// openPostgres is a seam for tests.
var openPostgres = repomanager.OpenPostgres

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(c.LogLevel))

	app := &App{config: c, logger: logger}

	switch c.Storage {
	case config.StorageMemory:
		app.rm = repomanager.NewMemoryRepositoryManager()
	case config.StoragePostgres:
		db, err := openPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.db = db
		app.rm = repomanager.NewPostgresRepositoryManager()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.Storage)
	}

	if err := app.rm.RunMigrations(ctx, app.db); err != nil {
		app.close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	profiles := services.NewProfileService(app.db, app.rm)
	auth := services.NewAuthService(app.db, app.rm, c)
	exports := services.NewExportService(c)

	app.http = httpapi.NewServer(c.EndpointAddrHTTP, logger, profiles, auth, exports)

	var probe gs.Probe
	if app.db != nil {
		probe = app.db.PingContext
	}
	app.health = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, probe)

	return app, nil
}

func (app *App) close() {
	if app.db != nil {
		_ = app.db.Close()
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves both endpoints until a signal arrives or either server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		defer wg.Done()
		if err := fn(ctx); err != nil {
			app.logger.Error(ctx, "server failed", "server", name, "error", err)
			cancelFunc()
		}
	}

	wg.Add(2)
	go run("http", app.http.Run)
	go run("grpc", app.health.Run)
	wg.Wait()

	app.close()
	app.logger.Info(ctx, "Stopped")
}
