// Package activity maintains the per-day view of reading activity: seconds
// read, books finished and the user's note for each calendar date.
//
// The store is the source of truth. Index keeps an in-memory copy that is
// updated on every write it performs, so calendar reads do not scan the key
// space. Rebuild recomputes that copy with a full O(n) scan over all keys
// and is run on first use and by the scheduled reconciler.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mrlokans/readtrack/internal/clock"
	"github.com/mrlokans/readtrack/internal/entities"
	"github.com/mrlokans/readtrack/internal/ledger"
	"github.com/mrlokans/readtrack/internal/metrics"
	"github.com/mrlokans/readtrack/internal/store"
)

var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

type Index struct {
	store   store.Store
	updater *store.Updater
	clock   clock.Clock
	metrics *metrics.Metrics

	mu     sync.RWMutex
	cache  map[string]entities.DailyEntry
	loaded bool
}

func NewIndex(s store.Store, updater *store.Updater, clk clock.Clock, m *metrics.Metrics) *Index {
	return &Index{
		store:   s,
		updater: updater,
		clock:   clk,
		metrics: m,
		cache:   make(map[string]entities.DailyEntry),
	}
}

// DateOf formats t as a calendar date in t's location.
func DateOf(t time.Time) string {
	return t.Format(entities.DateLayout)
}

// ValidateDate checks that date is a real YYYY-MM-DD calendar date.
func ValidateDate(date string) error {
	t, err := time.Parse(entities.DateLayout, date)
	if err != nil || t.Format(entities.DateLayout) != date {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

// Today returns the current date according to the index clock.
func (i *Index) Today() string {
	return DateOf(i.clock.Now())
}

// Rebuild scans every key in the store, assembles all daily entries and
// replaces the cached copy with the result.
//
// The write lock is held from the scan to the swap, so a write that lands
// meanwhile patches the fresh copy instead of the discarded one.
func (i *Index) Rebuild(ctx context.Context) (map[string]entities.DailyEntry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	start := time.Now()

	keys, err := i.store.GetAllKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	var dated []string
	for _, key := range keys {
		if _, _, ok := splitDailyKey(key); ok {
			dated = append(dated, key)
		}
	}

	values, err := i.store.MultiGet(ctx, dated)
	if err != nil {
		return nil, fmt.Errorf("failed to read daily keys: %w", err)
	}

	entries := make(map[string]entities.DailyEntry)
	for _, kv := range values {
		if !kv.Present {
			continue
		}
		prefix, date, _ := splitDailyKey(kv.Key)
		entry := entries[date]
		entry.Date = date
		if err := applyValue(&entry, prefix, kv.Value); err != nil {
			log.Printf("Daily index: skipping %s: %v", kv.Key, err)
			continue
		}
		entries[date] = entry
	}

	i.cache = entries
	i.loaded = true

	i.metrics.IndexRebuilt(time.Since(start).Seconds())
	log.Printf("Daily index: rebuilt %d days from %d keys in %v", len(entries), len(keys), time.Since(start))

	return copyEntries(entries), nil
}

// Days returns every known daily entry, loading the index on first use.
func (i *Index) Days(ctx context.Context) (map[string]entities.DailyEntry, error) {
	if err := i.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return copyEntries(i.cache), nil
}

// Entry reads one day straight from the store. Unknown dates yield a zero
// entry.
func (i *Index) Entry(ctx context.Context, date string) (entities.DailyEntry, error) {
	if err := ValidateDate(date); err != nil {
		return entities.DailyEntry{}, err
	}

	keys := []string{
		store.DailyReadingTimeKey(date),
		store.DailyReadBooksKey(date),
		store.DailyNoteKey(date),
	}
	values, err := i.store.MultiGet(ctx, keys)
	if err != nil {
		return entities.DailyEntry{}, fmt.Errorf("failed to read day %s: %w", date, err)
	}

	entry := entities.DailyEntry{Date: date}
	for _, kv := range values {
		if !kv.Present {
			continue
		}
		prefix, _, _ := splitDailyKey(kv.Key)
		if err := applyValue(&entry, prefix, kv.Value); err != nil {
			log.Printf("Daily index: ignoring %s: %v", kv.Key, err)
		}
	}
	return entry, nil
}

// SetNote stores the note for date verbatim. It touches only that day.
func (i *Index) SetNote(ctx context.Context, date, text string) error {
	if err := ValidateDate(date); err != nil {
		return err
	}
	if err := i.store.Set(ctx, store.DailyNoteKey(date), store.EncodeString(text)); err != nil {
		return err
	}

	i.patch(date, func(e *entities.DailyEntry) { e.Note = text })
	return nil
}

// AddReadingSeconds adds to the per-day time record for date.
func (i *Index) AddReadingSeconds(ctx context.Context, date string, seconds uint64) error {
	if err := ValidateDate(date); err != nil {
		return err
	}

	var total uint64
	err := i.updater.Update(ctx, store.DailyReadingTimeKey(date), func(current string, _ bool) (string, error) {
		total = ledger.DecodeCounter(current) + seconds
		return fmt.Sprintf("%d", total), nil
	})
	if err != nil {
		return err
	}

	i.patch(date, func(e *entities.DailyEntry) {
		e.ReadingSeconds = total
		e.HasTimeRecord = true
	})
	return nil
}

// MarkFinished records that bookID was finished on date. Repeated calls for
// the same book and day are no-ops.
func (i *Index) MarkFinished(ctx context.Context, date, bookID string) error {
	if err := ValidateDate(date); err != nil {
		return err
	}

	var finished []string
	err := store.UpdateJSON(ctx, i.updater, store.DailyReadBooksKey(date), func(ids *[]string) error {
		for _, id := range *ids {
			if id == bookID {
				finished = *ids
				return store.ErrNoChange
			}
		}
		*ids = append(*ids, bookID)
		finished = *ids
		return nil
	})
	if err != nil {
		return err
	}

	i.patch(date, func(e *entities.DailyEntry) {
		e.FinishedBookIDs = append([]string(nil), finished...)
	})
	return nil
}

// CalendarDay is one cell of a month view.
type CalendarDay struct {
	Date        string              `json:"date"`
	Entry       entities.DailyEntry `json:"entry"`
	HasActivity bool                `json:"has_activity"`
	IsToday     bool                `json:"is_today"`
}

// Month returns one CalendarDay per day of the given month.
func (i *Index) Month(ctx context.Context, year int, month time.Month) ([]CalendarDay, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	days, err := i.Days(ctx)
	if err != nil {
		return nil, err
	}

	today := i.Today()
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	result := make([]CalendarDay, 0, 31)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		date := DateOf(d)
		entry, ok := days[date]
		if !ok {
			entry = entities.DailyEntry{Date: date}
		}
		result = append(result, CalendarDay{
			Date:        date,
			Entry:       entry,
			HasActivity: entry.HasActivity(),
			IsToday:     date == today,
		})
	}
	return result, nil
}

func (i *Index) ensureLoaded(ctx context.Context) error {
	i.mu.RLock()
	loaded := i.loaded
	i.mu.RUnlock()
	if loaded {
		return nil
	}
	_, err := i.Rebuild(ctx)
	return err
}

// patch updates the cached entry only once the cache is loaded; before that
// the first Rebuild picks the write up from the store.
func (i *Index) patch(date string, fn func(*entities.DailyEntry)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.loaded {
		return
	}
	entry := i.cache[date]
	entry.Date = date
	fn(&entry)
	i.cache[date] = entry
}

func splitDailyKey(key string) (prefix, date string, ok bool) {
	for _, p := range []string{store.PrefixDailyReadingTime, store.PrefixDailyReadBooks, store.PrefixDailyNote} {
		if d, found := store.SplitDateKey(key, p); found && ValidateDate(d) == nil {
			return p, d, true
		}
	}
	return "", "", false
}

func applyValue(entry *entities.DailyEntry, prefix, raw string) error {
	switch prefix {
	case store.PrefixDailyReadingTime:
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		entry.ReadingSeconds = ledger.DecodeCounter(raw)
		entry.HasTimeRecord = true
	case store.PrefixDailyReadBooks:
		if raw == "" {
			return nil
		}
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return err
		}
		entry.FinishedBookIDs = ids
	case store.PrefixDailyNote:
		entry.Note = store.DecodeString(raw)
	}
	return nil
}

func copyEntries(src map[string]entities.DailyEntry) map[string]entities.DailyEntry {
	dst := make(map[string]entities.DailyEntry, len(src))
	for k, v := range src {
		v.FinishedBookIDs = append([]string(nil), v.FinishedBookIDs...)
		dst[k] = v
	}
	return dst
}

// SortedDates returns the keys of entries in ascending date order.
func SortedDates(entries map[string]entities.DailyEntry) []string {
	dates := make([]string, 0, len(entries))
	for date := range entries {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}
