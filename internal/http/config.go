package http

import (
	"net/http"
)

// RouterConfig carries every dependency the router wires into controllers.
// Optional components are skipped when nil.
type RouterConfig struct {
	Database     Pinger
	StoreBackend string
	Version      string

	Catalog     Catalog
	Cascade     string
	Progress    ProgressReader
	Annotations Annotations

	Reader       ReaderSurface
	SessionState SessionState
	App          AppLifecycle

	Calendar    DailyIndex
	Stats       StatsSource
	Preferences PreferencesStore

	AuditLog    AuditLog    // optional
	NoteAuditor NoteAuditor // optional
	TaskQueue   TaskQueue   // optional

	MetricsPath    string
	MetricsHandler http.Handler // optional

	// DemoMode rejects writes other than reading sessions.
	DemoMode bool
}
