// Package cli is a small interactive stand-in for the mobile UI: it wires
// the store, monitor, sync engine and services together and exposes them as
// REPL commands.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/ptms/syncore/internal/client/api"
	"github.com/ptms/syncore/internal/client/config"
	"github.com/ptms/syncore/internal/client/models"
	"github.com/ptms/syncore/internal/client/monitor"
	"github.com/ptms/syncore/internal/client/services"
	"github.com/ptms/syncore/internal/client/session"
	"github.com/ptms/syncore/internal/client/store"
	syncengine "github.com/ptms/syncore/internal/client/sync"
	"github.com/ptms/syncore/internal/filex"
	"github.com/ptms/syncore/internal/logging"
)

type App struct {
	config *config.Config
	log    logging.Logger

	db      *sql.DB
	repos   *store.Repositories
	apiC    *api.HTTPClient
	monitor *monitor.Monitor
	engine  *syncengine.Engine
	auth    *services.AuthService
	records *services.RecordService

	session *services.Session
	reader  *bufio.Reader
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.NewSlogLogger(slog.Default())

	repos, db, err := store.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("initializing local store: %w", err)
	}

	mediaDir, err := filex.EnsureSubDir(cfg.MediaDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing media directory: %w", err)
	}

	apiC := api.NewHTTPClient(cfg.ServerBaseURL, cfg.DataTimeout, log)
	mon := monitor.NewMonitor(apiC, monitor.Config{
		FastThreshold: cfg.ProbeFastThreshold,
		HardTimeout:   cfg.ProbeHardTimeout,
	}, log)

	engine := syncengine.NewEngine(
		apiC,
		repos.Reports, repos.Notes, repos.Reference, repos.Metadata,
		session.NewCoordinator(), mon,
		models.DefaultKeyPolicy(), cfg.ReportWindow(),
		log,
	)

	return &App{
		config:  cfg,
		log:     log,
		db:      db,
		repos:   repos,
		apiC:    apiC,
		monitor: mon,
		engine:  engine,
		auth:    services.NewAuthService(apiC, repos.Metadata, mon, engine, log),
		records: services.NewRecordService(repos.Reports, repos.Notes, repos.Reference, mediaDir, log),
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.db.Close()

	go a.monitor.Watch(ctx, a.config.OnlineCheckInterval)
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool { return a.session != nil }

// status renders the prompt suffix, e.g. "(u@x.io online, 2 pending)".
func (a *App) status(ctx context.Context) string {
	s := ""
	if a.session != nil {
		s = a.session.Profile.Email + " "
	}
	s += string(a.monitor.Mode())
	if n, err := a.records.PendingCount(ctx); err == nil && n > 0 {
		s += fmt.Sprintf(", %d pending", n)
	}
	return "(" + s + ")"
}
