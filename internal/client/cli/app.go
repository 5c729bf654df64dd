package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/healthsync/internal/client/cache"
	"github.com/dmitrijs2005/healthsync/internal/client/client"
	"github.com/dmitrijs2005/healthsync/internal/client/config"
	"github.com/dmitrijs2005/healthsync/internal/client/netstatus"
	"github.com/dmitrijs2005/healthsync/internal/client/queue"
	"github.com/dmitrijs2005/healthsync/internal/client/services"
	"github.com/dmitrijs2005/healthsync/internal/client/storage"
	"github.com/dmitrijs2005/healthsync/internal/filex"
	"github.com/dmitrijs2005/healthsync/internal/logging"
)

type App struct {
	config      *config.Config
	log         logging.Logger
	db          *sql.DB
	authService services.AuthService
	resources   *services.ResourceService
	coordinator *services.Coordinator
	queue       *queue.Queue
	cache       *cache.Cache
	net         *netstatus.Observer
	userName    string
	reader      *bufio.Reader
	out         io.Writer
}

// NewApp opens the local database (sealing it when a passphrase is
// configured), builds the configured transport and wires the services.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	if _, err := filex.EnsureParentDir(cfg.DBPath); err != nil {
		return nil, err
	}

	db, err := storage.InitDatabase(ctx, cfg.DBPath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", cfg.DBPath, "error", err)
		return nil, err
	}

	var store storage.Store = storage.NewSQLiteStore(db)
	if cfg.Passphrase != "" {
		sealed, err := storage.NewSealed(ctx, store, []byte(cfg.Passphrase))
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open encrypted storage: %w", err)
		}
		store = sealed
	}

	api, err := client.New(cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := newApp(cfg, store, api, log)
	a.db = db
	return a, nil
}

func newApp(cfg *config.Config, store storage.Store, api client.Client, log logging.Logger) *App {
	obs := netstatus.New(api, cfg.OnlineCheckInterval, log)
	q := queue.New(store, log)
	ch := cache.New(store, log)

	return &App{
		config:      cfg,
		log:         log.With("module", "cli"),
		authService: services.NewAuthService(api, store, log),
		resources:   services.NewResourceService(api, ch, q, obs, log),
		coordinator: services.NewCoordinator(api, ch, q, obs, cfg.MaxRetries, cfg.DrainInterval, log),
		queue:       q,
		cache:       ch,
		net:         obs,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}
}

// Run starts the REPL and releases all resources when it returns.
func (a *App) Run(ctx context.Context) {
	defer a.Close(ctx)
	a.Root(ctx)
}

func (a *App) Close(ctx context.Context) {
	if err := a.authService.Close(ctx); err != nil {
		a.log.Warn(ctx, "closing client", "error", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn(ctx, "closing database", "error", err)
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	s = s + string(a.net.Status())
	return fmt.Sprintf("(%s)", s)
}
