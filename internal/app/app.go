package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"

	"hotelops/internal/config"
	"hotelops/internal/db"
	"hotelops/internal/engine"
	"hotelops/internal/logging"
	"hotelops/internal/migrate"
)

// App bundles what every command needs: config, connection and engine.
type App struct {
	Config *config.Config
	DB     *sql.DB
	Engine engine.Engine
	Logger *slog.Logger
}

// Open configures logging and error reporting, opens and migrates the
// database, seeds the directory and builds the engine.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.Configure(logging.Options{Format: cfg.Logging.Format, Level: cfg.Logging.Level})
	if err := logging.InitSentry(cfg.Sentry.DSN, cfg.Sentry.Environment); err != nil {
		return nil, err
	}

	conn, err := db.Open(db.Config{
		Driver:    cfg.Database.Driver,
		DSN:       cfg.Database.DSN,
		Workspace: cfg.Database.Workspace,
	})
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, goerr.Wrap(err, "ping database", goerr.V("driver", cfg.Database.Driver))
	}
	if err := migrate.Migrate(conn, cfg.Database.Driver); err != nil {
		conn.Close()
		return nil, err
	}

	eng := engine.New(conn, cfg)
	if err := Seed(ctx, eng, cfg); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Debug("database ready", "driver", cfg.Database.Driver, "sync_mode", cfg.Sync.Mode)
	return &App{Config: cfg, DB: conn, Engine: eng, Logger: logger}, nil
}

// Close waits for in-flight syncs, flushes error reports and closes the pool.
func (a *App) Close() error {
	a.Engine.WaitSync()
	logging.Flush()
	return a.DB.Close()
}

// Seed creates the rooms and supervisors listed in the config. Entries that
// already exist are left untouched, so it is safe on every start.
func Seed(ctx context.Context, eng engine.Engine, cfg *config.Config) error {
	for _, r := range cfg.Seed.Rooms {
		_, err := eng.CreateRoom(ctx, engine.RoomCreateOptions{Number: r.Number, Tower: r.Tower, Floor: r.Floor})
		if err != nil && !errors.Is(err, engine.ErrConflict) {
			return goerr.Wrap(err, "seed room", goerr.V("number", r.Number))
		}
	}
	for _, s := range cfg.Seed.Supervisors {
		_, err := eng.CreateSupervisor(ctx, engine.SupervisorCreateOptions{ID: s.ID, Name: s.Name, Email: s.Email, Role: s.Role})
		if err != nil && !errors.Is(err, engine.ErrConflict) {
			return goerr.Wrap(err, "seed supervisor", goerr.V("supervisor_id", s.ID))
		}
	}
	return nil
}
