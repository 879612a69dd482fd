package store

import "strings"

// Key names shared by all components.
const (
	KeyBooks           = "books"
	KeyBooksLastID     = "booksLastId"
	KeyProgress        = "progress"
	KeyReadBooks       = "readBooks"
	KeyAppTime         = "appTime"
	KeyReadingTime     = "readingTime"
	KeyLastSession     = "lastSession"
	KeyBackgroundImage = "backgroundImage"
	KeyTheme           = "theme"
)

// Prefixes of the per-date and per-locator key families.
const (
	PrefixDailyReadingTime = "readingTime_"
	PrefixDailyReadBooks   = "readBooks_"
	PrefixDailyNote        = "note_"
	PrefixBookmarks        = "bookmarks-"
	PrefixNotes            = "notes-"
	PrefixPosition         = "position-"
)

func DailyReadingTimeKey(date string) string { return PrefixDailyReadingTime + date }
func DailyReadBooksKey(date string) string   { return PrefixDailyReadBooks + date }
func DailyNoteKey(date string) string        { return PrefixDailyNote + date }
func BookmarksKey(locator string) string     { return PrefixBookmarks + locator }
func NotesKey(locator string) string         { return PrefixNotes + locator }
func PositionKey(locator string) string      { return PrefixPosition + locator }

// SplitDateKey returns the date suffix and true if key belongs to the given
// date-keyed family. A bare prefix without a date does not match.
func SplitDateKey(key, prefix string) (string, bool) {
	if !strings.HasPrefix(key, prefix) || len(key) == len(prefix) {
		return "", false
	}
	return key[len(prefix):], true
}
