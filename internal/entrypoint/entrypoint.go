package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readtrack/internal/config"
	http_controllers "github.com/mrlokans/readtrack/internal/http"
	"github.com/mrlokans/readtrack/internal/inbox"
	"github.com/mrlokans/readtrack/internal/scheduler"
	"github.com/mrlokans/readtrack/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the listener so in-flight requests can
	// still enqueue.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting readtrack v%s", version)

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}()

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// Foreground app time starts counting as soon as the server is up.
	appClockDone := make(chan struct{})
	go func() {
		defer close(appClockDone)
		app.AppClock.Run(bgCtx, cfg.Tracking.AppFlushInterval)
	}()

	var taskClient *tasks.Client
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewPurgeBookQueue(app.Tracker, app.Catalog, app.Audit),
			tasks.NewRebuildIndexQueue(app.Index, app.Audit),
			tasks.NewCleanupAuditEventsQueue(app.Audit),
		)
		go taskClient.Start(bgCtx)

		// Purges now run on the queue instead of inside ConfirmDelete.
		app.Catalog.SetPurger(tasks.NewQueuePurger(taskClient))
	}

	var reconciler *scheduler.IndexReconciler
	if cfg.Reconcile.Enabled {
		rc := scheduler.ReconcilerConfig{
			Schedule:           cfg.Reconcile.Schedule,
			Index:              app.Index,
			Audit:              app.Audit,
			AuditRetentionDays: cfg.Audit.RetentionDays,
		}
		if taskClient != nil {
			rc.Queue = taskClient
		}
		reconciler = scheduler.NewIndexReconciler(rc)
		if err := reconciler.Start(bgCtx); err != nil {
			log.Printf("WARNING: index reconciler not started: %v", err)
		}
	}

	var watcher *inbox.Watcher
	if cfg.Inbox.Dir != "" {
		watcher, err = inbox.NewWatcher(inbox.Config{
			Dir:      cfg.Inbox.Dir,
			Debounce: cfg.Inbox.Debounce,
			Importer: app.Catalog,
		})
		if err != nil {
			log.Fatalf("Failed to initialize inbox: %v", err)
		}
		if err := watcher.Start(bgCtx); err != nil {
			log.Fatalf("Failed to start inbox: %v", err)
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database:     app.DB,
		StoreBackend: app.Backend(),
		Version:      version,
		Catalog:      app.Catalog,
		Cascade:      string(app.Catalog.Cascade()),
		Progress:     app.Tracker,
		Annotations:  app.Tracker,
		Reader:       app.Reader,
		SessionState: app.Reading,
		App:          app.AppClock,
		Calendar:     app.Index,
		Stats:        app.Stats,
		Preferences:  app.Preferences,
		AuditLog:     app.Audit,
		NoteAuditor:  app.Audit,
		MetricsPath:  cfg.Metrics.Path,
		DemoMode:     cfg.Demo.Enabled,
	}
	if taskClient != nil {
		routerCfg.TaskQueue = taskClient
	}
	if app.Metrics != nil {
		routerCfg.MetricsHandler = app.Metrics.Handler()
	}

	if cfg.Demo.Enabled {
		log.Printf("Demo mode enabled - write operations will be blocked")
	}
	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if _, err := app.Reading.Blur(ctx); err == nil {
			log.Printf("Closed reading session on shutdown")
		}
		if watcher != nil {
			if err := watcher.Stop(); err != nil {
				log.Printf("Error stopping inbox: %v", err)
			}
		}
		if reconciler != nil {
			reconciler.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		bgCancel()
		<-appClockDone
	}

	Serve(router, cfg, onShutdown)
}
