package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readtrack/internal/demo"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.StoreBackend, cfg.Version)
	booksController := NewBooksController(cfg.Catalog, cfg.Progress)
	favouritesController := NewFavouritesController(cfg.Catalog)
	deleteController := NewDeleteController(cfg.Catalog, cfg.Cascade)
	annotationsController := NewAnnotationsController(cfg.Catalog, cfg.Annotations)
	readerController := NewReaderController(cfg.Reader, cfg.SessionState)
	appController := NewAppController(cfg.App)
	calendarController := NewCalendarController(cfg.Calendar, cfg.NoteAuditor)
	statsController := NewStatsController(cfg.Stats)
	preferencesController := NewPreferencesController(cfg.Preferences)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	api := router.Group("/api")
	if cfg.DemoMode {
		api.Use(demo.NewMiddleware(true).Handler())
	}

	// Catalog
	api.GET("/books", booksController.GetAllBooks)
	api.POST("/books", booksController.ImportBook)
	api.GET("/books/:id", booksController.GetBook)
	api.GET("/books/:id/progress", booksController.GetProgress)
	api.POST("/books/:id/favourite", favouritesController.ToggleFavourite)
	api.POST("/books/:id/delete", deleteController.RequestDelete)
	api.POST("/books/delete/:token/confirm", deleteController.ConfirmDelete)
	api.DELETE("/books/delete/:token", deleteController.CancelDelete)

	// Bookmarks and notes
	api.GET("/books/:id/bookmarks", annotationsController.GetBookmarks)
	api.POST("/books/:id/bookmarks", annotationsController.AddBookmark)
	api.GET("/books/:id/notes", annotationsController.GetNotes)
	api.POST("/books/:id/notes", annotationsController.AddNote)

	// Reading surface and session clocks
	api.POST("/reader/:id/open", readerController.Open)
	api.POST("/reader/:id/scroll", readerController.Scroll)
	api.POST("/reader/close", readerController.Close)
	api.GET("/reader/session", readerController.Session)
	api.GET("/app", appController.Status)
	api.POST("/app/foreground", appController.Foreground)
	api.POST("/app/background", appController.Background)

	// Calendar and stats
	api.GET("/calendar/:year/:month", calendarController.Month)
	api.GET("/calendar/days/:date", calendarController.Day)
	api.PUT("/calendar/days/:date/note", calendarController.SetNote)
	api.GET("/stats", statsController.GetStats)

	api.GET("/preferences", preferencesController.GetPreferences)
	api.PUT("/preferences", preferencesController.UpdatePreferences)

	if cfg.AuditLog != nil {
		auditController := NewAuditController(cfg.AuditLog)
		api.GET("/audit", auditController.GetAuditEvents)
		api.GET("/audit/:entity_type/:id", auditController.GetHistory)
	}

	if cfg.TaskQueue != nil {
		tasksController := NewTasksController(cfg.TaskQueue)
		api.GET("/tasks/types", tasksController.ListTaskTypes)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
		api.POST("/tasks/:type/run", tasksController.RunTask)
	}

	return router
}
