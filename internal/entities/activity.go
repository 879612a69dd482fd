package entities

import "time"

// DateLayout is the ISO calendar date used in date-keyed store entries.
const DateLayout = "2006-01-02"

// TimeLedger holds the process-wide time counters.
type TimeLedger struct {
	TotalAppSeconds     uint64     `json:"total_app_seconds"`
	TotalReadingSeconds uint64     `json:"total_reading_seconds"`
	LastSessionEnd      *time.Time `json:"last_session_end,omitempty"`
}

// DailyEntry is the aggregated activity of one calendar day. Only Note is
// user-authored; everything else is derived from other keys.
type DailyEntry struct {
	Date            string   `json:"date"`
	ReadingSeconds  uint64   `json:"reading_seconds"`
	FinishedBookIDs []string `json:"finished_book_ids"`
	Note            string   `json:"note"`

	// HasTimeRecord is true when a non-empty per-day time record exists,
	// even if it holds zero.
	HasTimeRecord bool `json:"-"`
}

// HasActivity reports whether the day should carry an activity marker.
func (e DailyEntry) HasActivity() bool {
	return e.Note != "" || e.ReadingSeconds > 0 || len(e.FinishedBookIDs) > 0
}
