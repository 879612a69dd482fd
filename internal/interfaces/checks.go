package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/readtrack/internal/activity"
	"github.com/mrlokans/readtrack/internal/audit"
	"github.com/mrlokans/readtrack/internal/catalog"
	"github.com/mrlokans/readtrack/internal/clock"
	"github.com/mrlokans/readtrack/internal/database"
	"github.com/mrlokans/readtrack/internal/database/keyvalue"
	"github.com/mrlokans/readtrack/internal/document"
	"github.com/mrlokans/readtrack/internal/http"
	"github.com/mrlokans/readtrack/internal/inbox"
	"github.com/mrlokans/readtrack/internal/ledger"
	"github.com/mrlokans/readtrack/internal/progress"
	"github.com/mrlokans/readtrack/internal/reader"
	"github.com/mrlokans/readtrack/internal/scheduler"
	"github.com/mrlokans/readtrack/internal/session"
	"github.com/mrlokans/readtrack/internal/settingsstore"
	"github.com/mrlokans/readtrack/internal/stats"
	"github.com/mrlokans/readtrack/internal/store"
	"github.com/mrlokans/readtrack/internal/store/pebblestore"
	"github.com/mrlokans/readtrack/internal/tasks"
)

// =============================================================================
// Persistent Store
// =============================================================================

var _ store.Store = (*keyvalue.Repository)(nil)
var _ store.Store = (*pebblestore.Store)(nil)

var _ clock.Clock = clock.System{}
var _ clock.Clock = (*clock.Manual)(nil)

// =============================================================================
// Catalog and Progress
// =============================================================================

var _ catalog.ProgressSource = (*progress.Tracker)(nil)
var _ catalog.Purger = (*progress.Tracker)(nil)
var _ catalog.Purger = (*tasks.QueuePurger)(nil)
var _ catalog.AuditRecorder = (*audit.Service)(nil)

var _ progress.BookResolver = (*catalog.Manager)(nil)
var _ progress.FinishRecorder = (*activity.Index)(nil)

// =============================================================================
// Session Clocks and Daily Index
// =============================================================================

var _ session.LedgerWriter = (*ledger.Repository)(nil)
var _ session.AppLedger = (*ledger.Repository)(nil)
var _ session.DailyWriter = (*activity.Index)(nil)

var _ stats.LedgerReader = (*ledger.Repository)(nil)
var _ stats.DaysReader = (*activity.Index)(nil)
var _ stats.ReadBooksReader = (*progress.Tracker)(nil)

// =============================================================================
// Reader Surface
// =============================================================================

var _ reader.BookSource = (*catalog.Manager)(nil)
var _ reader.DocumentLoader = (*document.Loader)(nil)
var _ reader.ProgressStore = (*progress.Tracker)(nil)
var _ reader.SessionClock = (*session.ReadingClock)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.IndexRebuilder = (*activity.Index)(nil)
var _ tasks.ReconcileAuditor = (*audit.Service)(nil)
var _ tasks.PurgeAuditor = (*audit.Service)(nil)
var _ tasks.BookLister = (*catalog.Manager)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ inbox.Importer = (*catalog.Manager)(nil)

// =============================================================================
// HTTP Layer
// =============================================================================

var _ http.Pinger = (*database.Database)(nil)
var _ http.Catalog = (*catalog.Manager)(nil)
var _ http.ProgressReader = (*progress.Tracker)(nil)
var _ http.Annotations = (*progress.Tracker)(nil)
var _ http.ReaderSurface = (*reader.Surface)(nil)
var _ http.SessionState = (*session.ReadingClock)(nil)
var _ http.AppLifecycle = (*session.AppClock)(nil)
var _ http.DailyIndex = (*activity.Index)(nil)
var _ http.NoteAuditor = (*audit.Service)(nil)
var _ http.StatsSource = (*stats.Aggregator)(nil)
var _ http.PreferencesStore = (*settingsstore.SettingsStore)(nil)
var _ http.AuditLog = (*audit.Service)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
