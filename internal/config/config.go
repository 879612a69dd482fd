package config

import (
	"time"

	"github.com/spf13/viper"
)

type StoreBackend string

const (
	StoreBackendSQLite StoreBackend = "sqlite" // gorm + sqlite kv_entries table (default)
	StoreBackendPebble StoreBackend = "pebble" // cockroachdb/pebble directory
)

type CascadePolicy string

const (
	CascadeRetain CascadePolicy = "retain" // Leave progress/annotations behind (default)
	CascadePurge  CascadePolicy = "purge"  // Remove derived state no other book references
)

type (
	Config struct {
		HTTP
		Global
		Database
		Tracking
		Audit
		Tasks
		Reconcile
		Inbox
		Preferences
		Metrics
		Demo
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path      string
		Backend   StoreBackend
		PebbleDir string
	}
	Tracking struct {
		UpdateAttempts    int           // Compare-and-swap attempts per read-modify-write
		DeleteConfirmTTL  time.Duration // How long a delete request stays confirmable
		CascadeDelete     CascadePolicy
		MonotonicProgress bool          // Keep the maximum fraction instead of the latest
		AppFlushInterval  time.Duration // How often foreground app time is checkpointed
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 30)
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Reconcile struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Inbox struct {
		Dir      string        // Watched directory; empty disables the watcher
		Debounce time.Duration // Quiet period before a new file is imported
	}
	Preferences struct {
		Theme           string
		BackgroundImage string
	}
	Metrics struct {
		Enabled bool
		Path    string
	}
	Demo struct {
		Enabled bool // Read-only API except for reading sessions
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_backend", string(StoreBackendSQLite))
	v.SetDefault("pebble_dir", DefaultPebbleDir)
	v.SetDefault("audit_retention_days", 30)

	// Tracking defaults
	v.SetDefault("tracking_update_attempts", 5)
	v.SetDefault("tracking_delete_confirm_ttl", "5m")
	v.SetDefault("tracking_cascade_delete", string(CascadeRetain))
	v.SetDefault("tracking_monotonic_progress", false)
	v.SetDefault("tracking_app_flush_interval", "5s")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	v.SetDefault("index_reconcile_enabled", true)
	v.SetDefault("index_reconcile_schedule", "0 3 * * *") // Daily at 03:00

	v.SetDefault("inbox_dir", "")
	v.SetDefault("inbox_debounce", "500ms")

	v.SetDefault("default_theme", DefaultTheme)
	v.SetDefault("default_background_image", "")

	v.SetDefault("metrics_enabled", true)
	v.SetDefault("metrics_path", "/metrics")

	v.SetDefault("demo_mode", false)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path:      v.GetString("DATABASE_PATH"),
			Backend:   StoreBackend(v.GetString("DATABASE_BACKEND")),
			PebbleDir: v.GetString("PEBBLE_DIR"),
		},
		Tracking: Tracking{
			UpdateAttempts:    v.GetInt("TRACKING_UPDATE_ATTEMPTS"),
			DeleteConfirmTTL:  v.GetDuration("TRACKING_DELETE_CONFIRM_TTL"),
			CascadeDelete:     CascadePolicy(v.GetString("TRACKING_CASCADE_DELETE")),
			MonotonicProgress: v.GetBool("TRACKING_MONOTONIC_PROGRESS"),
			AppFlushInterval:  v.GetDuration("TRACKING_APP_FLUSH_INTERVAL"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Reconcile: Reconcile{
			Enabled:  v.GetBool("INDEX_RECONCILE_ENABLED"),
			Schedule: v.GetString("INDEX_RECONCILE_SCHEDULE"),
		},
		Inbox: Inbox{
			Dir:      v.GetString("INBOX_DIR"),
			Debounce: v.GetDuration("INBOX_DEBOUNCE"),
		},
		Preferences: Preferences{
			Theme:           v.GetString("DEFAULT_THEME"),
			BackgroundImage: v.GetString("DEFAULT_BACKGROUND_IMAGE"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
		Demo: Demo{
			Enabled: v.GetBool("DEMO_MODE"),
		},
	}
}
