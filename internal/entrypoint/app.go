package entrypoint

import (
	"fmt"
	"log"

	"github.com/mrlokans/readtrack/internal/activity"
	"github.com/mrlokans/readtrack/internal/audit"
	"github.com/mrlokans/readtrack/internal/catalog"
	"github.com/mrlokans/readtrack/internal/clock"
	"github.com/mrlokans/readtrack/internal/config"
	"github.com/mrlokans/readtrack/internal/database"
	auditRepo "github.com/mrlokans/readtrack/internal/database/audit"
	"github.com/mrlokans/readtrack/internal/database/keyvalue"
	"github.com/mrlokans/readtrack/internal/document"
	"github.com/mrlokans/readtrack/internal/ledger"
	"github.com/mrlokans/readtrack/internal/metrics"
	"github.com/mrlokans/readtrack/internal/progress"
	"github.com/mrlokans/readtrack/internal/reader"
	"github.com/mrlokans/readtrack/internal/session"
	"github.com/mrlokans/readtrack/internal/settingsstore"
	"github.com/mrlokans/readtrack/internal/stats"
	"github.com/mrlokans/readtrack/internal/store"
	"github.com/mrlokans/readtrack/internal/store/pebblestore"
)

// App holds the tracking core wired against one store. The HTTP server and
// the CLI commands share it.
type App struct {
	Config *config.Config

	DB      *database.Database
	Store   store.Store
	Updater *store.Updater
	Metrics *metrics.Metrics
	Audit   *audit.Service
	Clock   clock.Clock

	Index       *activity.Index
	Ledger      *ledger.Repository
	Catalog     *catalog.Manager
	Tracker     *progress.Tracker
	Reading     *session.ReadingClock
	AppClock    *session.AppClock
	Stats       *stats.Aggregator
	Reader      *reader.Surface
	Preferences *settingsstore.SettingsStore

	closeStore func() error
}

// NewApp opens the database and the configured store backend and builds
// every component on top of them.
func NewApp(cfg *config.Config) (*App, error) {
	return NewAppWithClock(cfg, clock.System{})
}

// NewAppWithClock is NewApp with an explicit time source, used by the demo
// generator to replay sessions on past days.
func NewAppWithClock(cfg *config.Config, clk clock.Clock) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	s, closeStore, err := openStore(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	updater := store.NewUpdater(s, cfg.Tracking.UpdateAttempts)
	updater.OnConflict = m.VersionConflict

	auditService := audit.NewService(auditRepo.NewRepository(db.DB))

	index := activity.NewIndex(s, updater, clk, m)
	ledgerRepo := ledger.NewRepository(s, updater)
	manager := catalog.NewManager(catalog.ManagerConfig{
		Store:            s,
		Updater:          updater,
		Cascade:          cfg.Tracking.CascadeDelete,
		DeleteConfirmTTL: cfg.Tracking.DeleteConfirmTTL,
		Clock:            clk,
		Audit:            auditService,
		Metrics:          m,
	})
	tracker := progress.NewTracker(progress.TrackerConfig{
		Store:     s,
		Updater:   updater,
		Books:     manager,
		Finished:  index,
		Clock:     clk,
		Monotonic: cfg.Tracking.MonotonicProgress,
	})
	manager.SetProgressSource(tracker)
	manager.SetPurger(tracker)

	reading := session.NewReadingClock(clk, ledgerRepo, index, m)

	return &App{
		Config:      cfg,
		DB:          db,
		Store:       s,
		Updater:     updater,
		Metrics:     m,
		Audit:       auditService,
		Clock:       clk,
		Index:       index,
		Ledger:      ledgerRepo,
		Catalog:     manager,
		Tracker:     tracker,
		Reading:     reading,
		AppClock:    session.NewAppClock(clk, ledgerRepo, m),
		Stats:       stats.NewAggregator(ledgerRepo, index, tracker),
		Reader:      reader.NewSurface(manager, document.NewLoader(0), tracker, reading),
		Preferences: settingsstore.New(s, cfg.Preferences),
		closeStore:  closeStore,
	}, nil
}

func openStore(cfg *config.Config, db *database.Database) (store.Store, func() error, error) {
	switch cfg.Database.Backend {
	case config.StoreBackendPebble:
		dir := cfg.Database.PebbleDir
		if dir == "" {
			dir = config.DefaultPebbleDir
		}
		ps, err := pebblestore.Open(dir)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Store: pebble at %s", dir)
		return ps, ps.Close, nil
	case config.StoreBackendSQLite, "":
		log.Printf("Store: sqlite at %s", cfg.Database.Path)
		return keyvalue.NewRepository(db.DB), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Database.Backend)
	}
}

// Close waits for pending audit writes and closes the store and database.
func (a *App) Close() error {
	a.Audit.Wait()

	var firstErr error
	if err := a.closeStore(); err != nil {
		firstErr = err
	}
	if err := a.DB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Backend names the store implementation in use.
func (a *App) Backend() string {
	if a.Config.Database.Backend == "" {
		return string(config.StoreBackendSQLite)
	}
	return string(a.Config.Database.Backend)
}
