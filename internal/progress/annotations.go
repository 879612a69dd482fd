package progress

import (
	"context"

	"github.com/mrlokans/readtrack/internal/store"
)

// SavePosition stores the last scroll offset for a locator.
func (t *Tracker) SavePosition(ctx context.Context, locator string, offset float64) error {
	return store.SetJSON(ctx, t.store, store.PositionKey(locator), offset)
}

// Position returns the saved scroll offset, 0 when none.
func (t *Tracker) Position(ctx context.Context, locator string) (float64, error) {
	return store.GetJSON[float64](ctx, t.store, store.PositionKey(locator))
}

// AddBookmark appends a scroll offset to the locator's bookmarks.
func (t *Tracker) AddBookmark(ctx context.Context, locator string, offset float64) ([]float64, error) {
	var result []float64
	err := store.UpdateJSON(ctx, t.updater, store.BookmarksKey(locator), func(offsets *[]float64) error {
		*offsets = append(*offsets, offset)
		result = *offsets
		return nil
	})
	return result, err
}

func (t *Tracker) Bookmarks(ctx context.Context, locator string) ([]float64, error) {
	offsets, err := store.GetJSON[[]float64](ctx, t.store, store.BookmarksKey(locator))
	if offsets == nil {
		offsets = []float64{}
	}
	return offsets, err
}

// AddNote appends free text to the locator's notes.
func (t *Tracker) AddNote(ctx context.Context, locator, text string) ([]string, error) {
	var result []string
	err := store.UpdateJSON(ctx, t.updater, store.NotesKey(locator), func(notes *[]string) error {
		*notes = append(*notes, text)
		result = *notes
		return nil
	})
	return result, err
}

func (t *Tracker) Notes(ctx context.Context, locator string) ([]string, error) {
	notes, err := store.GetJSON[[]string](ctx, t.store, store.NotesKey(locator))
	if notes == nil {
		notes = []string{}
	}
	return notes, err
}
