// Package progress turns scroll metrics into a per-book completion fraction
// and persists it, together with the per-locator reading annotations.
package progress

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/mrlokans/readtrack/internal/clock"
	"github.com/mrlokans/readtrack/internal/entities"
	"github.com/mrlokans/readtrack/internal/store"
)

// BookResolver looks up catalog entries by id.
type BookResolver interface {
	GetBook(ctx context.Context, id string) (entities.Book, error)
}

// FinishRecorder receives the date on which a book reached 100%.
type FinishRecorder interface {
	MarkFinished(ctx context.Context, date, bookID string) error
}

type TrackerConfig struct {
	Store    store.Store
	Updater  *store.Updater
	Books    BookResolver
	Finished FinishRecorder // optional
	Clock    clock.Clock

	// Monotonic keeps the highest fraction ever recorded instead of the
	// latest one.
	Monotonic bool
}

type Tracker struct {
	store     store.Store
	updater   *store.Updater
	books     BookResolver
	finished  FinishRecorder
	clock     clock.Clock
	monotonic bool
}

func NewTracker(cfg TrackerConfig) *Tracker {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.System{}
	}
	return &Tracker{
		store:     cfg.Store,
		updater:   cfg.Updater,
		books:     cfg.Books,
		finished:  cfg.Finished,
		clock:     clk,
		monotonic: cfg.Monotonic,
	}
}

// ComputeFraction maps a scroll offset onto [0, 100]. Content that fits in
// the viewport has no scrollable range and yields 0.
func ComputeFraction(scrollOffset, contentHeight, viewportHeight float64) float64 {
	scrollable := contentHeight - viewportHeight
	if scrollable <= 0 {
		return 0
	}
	return Clamp(scrollOffset / scrollable * 100)
}

// Clamp bounds f to [0, 100]. NaN becomes 0.
func Clamp(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 100:
		return 100
	default:
		return f
	}
}

// RecordProgress stores the fraction for bookID and returns the value that
// ended up persisted, which differs from fraction only in monotonic mode.
func (t *Tracker) RecordProgress(ctx context.Context, bookID string, fraction float64) (float64, error) {
	book, err := t.books.GetBook(ctx, bookID)
	if err != nil {
		return 0, err
	}
	fraction = Clamp(fraction)

	stored := fraction
	err = store.UpdateJSON(ctx, t.updater, store.KeyProgress, func(record *entities.ProgressRecord) error {
		if *record == nil {
			*record = entities.ProgressRecord{}
		}
		previous, seen := (*record)[bookID]
		stored = fraction
		if t.monotonic && seen && previous > fraction {
			stored = previous
		}
		if seen && previous == stored {
			return store.ErrNoChange
		}
		(*record)[bookID] = stored
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record progress for book %s: %w", bookID, err)
	}

	if err := t.markRead(ctx, book.Locator); err != nil {
		return stored, err
	}

	if stored >= 100 && t.finished != nil {
		date := t.clock.Now().Format(entities.DateLayout)
		if err := t.finished.MarkFinished(ctx, date, bookID); err != nil {
			log.Printf("Progress: failed to mark book %s finished on %s: %v", bookID, date, err)
		}
	}
	return stored, nil
}

// GetProgress returns the stored fraction, 0 when none was recorded.
func (t *Tracker) GetProgress(ctx context.Context, bookID string) (float64, error) {
	record, err := t.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return record[bookID], nil
}

// Snapshot returns the whole progress map.
func (t *Tracker) Snapshot(ctx context.Context) (entities.ProgressRecord, error) {
	record, err := store.GetJSON[entities.ProgressRecord](ctx, t.store, store.KeyProgress)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = entities.ProgressRecord{}
	}
	return record, nil
}

// ReadBooks returns the set of locators that ever had progress recorded.
func (t *Tracker) ReadBooks(ctx context.Context) ([]string, error) {
	return store.GetJSON[[]string](ctx, t.store, store.KeyReadBooks)
}

func (t *Tracker) markRead(ctx context.Context, locator string) error {
	err := store.UpdateJSON(ctx, t.updater, store.KeyReadBooks, func(locators *[]string) error {
		for _, l := range *locators {
			if l == locator {
				return store.ErrNoChange
			}
		}
		*locators = append(*locators, locator)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark %s as read: %w", locator, err)
	}
	return nil
}

// Purge removes the derived state of a deleted book. Locator-keyed state is
// kept when another catalog entry still points at the same locator.
func (t *Tracker) Purge(ctx context.Context, book entities.Book, locatorShared bool) error {
	err := store.UpdateJSON(ctx, t.updater, store.KeyProgress, func(record *entities.ProgressRecord) error {
		if _, ok := (*record)[book.ID]; !ok {
			return store.ErrNoChange
		}
		delete(*record, book.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to purge progress for book %s: %w", book.ID, err)
	}

	if locatorShared {
		log.Printf("Progress: locator %s still referenced, keeping annotations", book.Locator)
		return nil
	}

	for _, key := range []string{
		store.PositionKey(book.Locator),
		store.BookmarksKey(book.Locator),
		store.NotesKey(book.Locator),
	} {
		if err := t.store.Remove(ctx, key); err != nil {
			return err
		}
	}

	err = store.UpdateJSON(ctx, t.updater, store.KeyReadBooks, func(locators *[]string) error {
		kept := (*locators)[:0]
		for _, l := range *locators {
			if l != book.Locator {
				kept = append(kept, l)
			}
		}
		if len(kept) == len(*locators) {
			return store.ErrNoChange
		}
		*locators = kept
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to purge read mark for %s: %w", book.Locator, err)
	}

	log.Printf("Progress: purged derived state of book %s (%s)", book.ID, book.Locator)
	return nil
}
