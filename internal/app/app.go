package app

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/multistream/internal/events"
	"github.com/desertthunder/multistream/internal/grid"
	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/repositories"
	"github.com/desertthunder/multistream/internal/services"
	"github.com/desertthunder/multistream/internal/session"
	"github.com/desertthunder/multistream/internal/shared"
	"github.com/desertthunder/multistream/internal/tasks"
)

// App is the explicit application state shared by every view.
type App struct {
	Config    *shared.Config
	Logger    *log.Logger
	Bus       *events.Bus
	Helix     services.TwitchAPI
	Session   *session.Manager
	Grid      *grid.Controller
	Directory *tasks.Directory
	Scheduler *tasks.Scheduler
	Searcher  *tasks.Searcher
	Snapshots *repositories.RedisSnapshotCache // nil unless a redis URL is configured

	db     *sql.DB
	ctx    context.Context
	cancel context.CancelFunc
	unsubs []func()

	mu      sync.Mutex
	views   map[string]bool // view id → visible
	offline bool
	active  bool
}

// Deps holds the collaborators [New] wires together. Config, Helix, Entries and Tokens are
// required.
type Deps struct {
	Config  *shared.Config
	Logger  *log.Logger
	Clock   shared.Clock
	Helix   services.TwitchAPI
	Entries models.EntryStore
	Tokens  models.TokenStore
	Cache   tasks.SnapshotCache
}

// New builds the component graph and subscribes the cross-component reactions.
func New(deps Deps) *App {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	if deps.Clock == nil {
		deps.Clock = shared.RealClock{}
	}
	cfg := deps.Config
	logger := deps.Logger

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		Config: cfg,
		Logger: logger,
		Bus:    events.New(shared.WithLogger(logger, "component", "bus")),
		Helix:  deps.Helix,
		ctx:    ctx,
		cancel: cancel,
		views:  map[string]bool{},
	}

	a.Session = session.NewManager(session.Opts{
		API:         deps.Helix,
		Tokens:      deps.Tokens,
		Bus:         a.Bus,
		Logger:      shared.WithLogger(logger, "component", "session"),
		ClientID:    cfg.Twitch.ClientID,
		RedirectURL: cfg.Twitch.RedirectURI,
		AuthURL:     cfg.Twitch.AuthURL,
		Scopes:      cfg.Twitch.Scopes,
	})
	a.Grid = grid.NewController(grid.ControllerOpts{
		Store:  deps.Entries,
		Bus:    a.Bus,
		Clock:  deps.Clock,
		Logger: shared.WithLogger(logger, "component", "grid"),
	})
	a.Directory = tasks.NewDirectory(tasks.DirectoryOpts{
		API:      deps.Helix,
		Source:   a.Session,
		Bus:      a.Bus,
		Cache:    deps.Cache,
		Clock:    deps.Clock,
		Logger:   shared.WithLogger(logger, "component", "directory"),
		PageSize: cfg.Refresh.OfflinePageSize,
	})
	a.Scheduler = tasks.NewScheduler(tasks.SchedulerOpts{
		Refresher: a.Directory,
		Clock:     deps.Clock,
		Gate:      a.gate,
		Interval:  cfg.Refresh.Interval(),
		Backoff:   cfg.Refresh.Backoff(),
		Logger:    shared.WithLogger(logger, "component", "scheduler"),
	})
	a.Searcher = tasks.NewSearcher(tasks.SearcherOpts{
		API:       deps.Helix,
		Source:    a.Session,
		Bus:       a.Bus,
		Clock:     deps.Clock,
		Logger:    shared.WithLogger(logger, "component", "search"),
		Debounce:  cfg.Search.Debounce(),
		MinLength: cfg.Search.MinQueryLength,
		Limit:     cfg.Search.Limit,
	})

	a.unsubs = append(a.unsubs,
		a.Bus.Subscribe(a.onAuthChanged, events.AuthChanged),
		a.Bus.Subscribe(a.onAddRequested, events.AddChannelRequested, events.AddTypedRequested),
	)
	return a
}

// Open opens the database and optional redis cache described by cfg and builds the app on top.
func Open(cfg *shared.Config, logger *log.Logger) (*App, error) {
	db, err := shared.OpenMigrated(cfg.Database)
	if err != nil {
		return nil, err
	}

	kv := repositories.NewKVRepository(db)
	helix := services.NewHelixClient(services.HelixOpts{
		BaseURL:           cfg.Twitch.APIURL,
		ClientID:          cfg.Twitch.ClientID,
		RequestsPerSecond: cfg.Twitch.RequestsPerSecond,
	})

	deps := Deps{
		Config:  cfg,
		Logger:  logger,
		Helix:   helix,
		Entries: repositories.NewEntryRepository(kv),
		Tokens:  repositories.NewTokenRepository(kv),
	}

	var snapshots *repositories.RedisSnapshotCache
	if cfg.Cache.RedisURL != "" {
		snapshots, err = repositories.NewRedisSnapshotCache(cfg.Cache.RedisURL, cfg.Twitch.ClientID, cfg.Cache.TTL())
		if err != nil {
			logger.Warn("snapshot cache disabled", "error", err)
			snapshots = nil
		} else {
			deps.Cache = snapshots
		}
	}

	a := New(deps)
	a.db = db
	a.Snapshots = snapshots
	return a, nil
}

// Start loads the persisted grid and settles the session from the stored credential.
func (a *App) Start(ctx context.Context) {
	a.Grid.Load()
	if err := a.Session.Bootstrap(ctx, ""); err != nil {
		a.Logger.Debug("session bootstrap", "error", err)
	}
}

// Close stops background work and releases the database and cache.
func (a *App) Close() error {
	for _, unsub := range a.unsubs {
		unsub()
	}
	a.Scheduler.Stop()
	a.cancel()

	var errs []error
	if a.Snapshots != nil {
		errs = append(errs, a.Snapshots.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

// SetVisible records whether view is on screen. The refresh loop runs while at least one view
// is visible and the network is reachable.
func (a *App) SetVisible(view string, visible bool) {
	a.mu.Lock()
	a.views[view] = visible
	a.mu.Unlock()
	a.reconcileLoop(visible)
}

// RemoveView forgets a closed view.
func (a *App) RemoveView(view string) {
	a.mu.Lock()
	delete(a.views, view)
	a.mu.Unlock()
	a.reconcileLoop(false)
}

// SetOnline records network reachability reported by a view.
func (a *App) SetOnline(online bool) {
	a.mu.Lock()
	a.offline = !online
	a.mu.Unlock()
	a.reconcileLoop(online)
}

// reconcileLoop starts the loop when it becomes eligible, or when restart is set while
// eligible, and stops it when it becomes ineligible.
func (a *App) reconcileLoop(restart bool) {
	a.mu.Lock()
	eligible := !a.offline && a.anyVisibleLocked()
	changed := eligible != a.active
	a.active = eligible
	a.mu.Unlock()

	switch {
	case eligible && (changed || restart):
		a.Scheduler.Start()
	case !eligible && changed:
		a.Scheduler.Stop()
	}
}

func (a *App) anyVisibleLocked() bool {
	for _, v := range a.views {
		if v {
			return true
		}
	}
	return false
}

// gate is the scheduler's per-cycle check.
func (a *App) gate() bool {
	a.mu.Lock()
	eligible := !a.offline && a.anyVisibleLocked()
	a.mu.Unlock()
	return eligible && a.Session.Authenticated()
}

// RefreshNow runs a directory refresh in the background, as the refresh button does.
func (a *App) RefreshNow() {
	go func() {
		if err := a.Directory.Refresh(a.ctx); err != nil && !errors.Is(err, shared.ErrSuperseded) {
			a.Logger.Debug("manual refresh failed", "error", err)
		}
	}()
}

func (a *App) onAuthChanged(e events.Event) {
	payload, _ := e.Data.(events.AuthPayload)
	if !payload.Authenticated {
		a.Directory.Cancel()
		if err := a.Directory.Refresh(a.ctx); err != nil && !errors.Is(err, shared.ErrSuperseded) {
			a.Logger.Debug("demo directory refresh failed", "error", err)
		}
	}

	a.mu.Lock()
	eligible := a.active
	a.mu.Unlock()
	if eligible {
		a.Scheduler.Start()
	}
}

func (a *App) onAddRequested(e events.Event) {
	channel, _ := e.Data.(string)
	if _, err := a.Grid.Add(channel); err != nil {
		a.Bus.Notify(events.LevelError, NoticeFor(err))
	}
}

// NoticeFor returns the user-facing message for a grid validation error.
func NoticeFor(err error) string {
	switch {
	case errors.Is(err, shared.ErrEmptyChannel):
		return "Please enter a channel name"
	case errors.Is(err, shared.ErrDuplicateChannel):
		return "This stream is already added"
	default:
		return err.Error()
	}
}
