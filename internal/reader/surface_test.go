package reader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readtrack/internal/activity"
	"github.com/mrlokans/readtrack/internal/catalog"
	"github.com/mrlokans/readtrack/internal/clock"
	"github.com/mrlokans/readtrack/internal/database"
	"github.com/mrlokans/readtrack/internal/database/keyvalue"
	"github.com/mrlokans/readtrack/internal/document"
	"github.com/mrlokans/readtrack/internal/ledger"
	"github.com/mrlokans/readtrack/internal/progress"
	"github.com/mrlokans/readtrack/internal/session"
	"github.com/mrlokans/readtrack/internal/store"
)

type fixture struct {
	surface *Surface
	catalog *catalog.Manager
	tracker *progress.Tracker
	ledger  *ledger.Repository
	index   *activity.Index
	clock   *clock.Manual
	reading *session.ReadingClock
	store   store.Store
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := keyvalue.NewRepository(db.DB)
	u := store.NewUpdater(s, 5)
	clk := clock.NewManual(time.Date(2026, 5, 12, 20, 0, 0, 0, time.UTC))
	idx := activity.NewIndex(s, u, clk, nil)
	l := ledger.NewRepository(s, u)

	cat := catalog.NewManager(catalog.ManagerConfig{Store: s, Updater: u, Clock: clk})
	tracker := progress.NewTracker(progress.TrackerConfig{Store: s, Updater: u, Books: cat, Finished: idx, Clock: clk})
	reading := session.NewReadingClock(clk, l, idx, nil)

	return fixture{
		surface: NewSurface(cat, document.NewLoader(0), tracker, reading),
		catalog: cat,
		tracker: tracker,
		ledger:  l,
		index:   idx,
		clock:   clk,
		reading: reading,
		store:   s,
	}
}

func writeBook(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return "file://" + path
}

func TestSurface_ReadingScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	book, err := f.catalog.ImportBook(ctx, writeBook(t, "book-A.txt", []byte("It was a dark and stormy night.")), "book-A", "api")
	require.NoError(t, err)

	books, err := f.catalog.Books(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)

	opened, err := f.surface.Open(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "It was a dark and stormy night.", opened.Document.Text)
	assert.Zero(t, opened.Progress)
	assert.Equal(t, session.Running, f.reading.State())

	scrolled, err := f.surface.Scroll(ctx, book.ID, Viewport{Offset: 400, ContentHeight: 1000, ViewportHeight: 200})
	require.NoError(t, err)
	assert.Equal(t, 50.0, scrolled.Fraction)

	p, err := f.tracker.GetProgress(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, p)

	f.clock.Advance(125 * time.Second)
	closedAt := f.clock.Now()
	closed, err := f.surface.Close(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(125), closed.AccumulatedSeconds)

	l, err := f.ledger.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(125), l.TotalReadingSeconds)
	require.NotNil(t, l.LastSessionEnd)
	assert.True(t, closedAt.Equal(*l.LastSessionEnd))

	today, err := f.index.Entry(ctx, f.index.Today())
	require.NoError(t, err)
	assert.Equal(t, uint64(125), today.ReadingSeconds)
}

func TestSurface_ReopenRestoresPosition(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	book, err := f.catalog.ImportBook(ctx, writeBook(t, "b.txt", []byte("text")), "b.txt", "api")
	require.NoError(t, err)

	_, err = f.surface.Open(ctx, book.ID)
	require.NoError(t, err)
	_, err = f.surface.Scroll(ctx, book.ID, Viewport{Offset: 150, ContentHeight: 700, ViewportHeight: 100})
	require.NoError(t, err)
	_, err = f.surface.Close(ctx)
	require.NoError(t, err)

	opened, err := f.surface.Open(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 150.0, opened.Position)
	assert.Equal(t, 25.0, opened.Progress)
}

func TestSurface_DecodeFailureLeavesStateUntouched(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	book, err := f.catalog.ImportBook(ctx, writeBook(t, "broken.pdf", []byte("not really a pdf")), "broken.pdf", "api")
	require.NoError(t, err)

	keysBefore, err := f.store.GetAllKeys(ctx)
	require.NoError(t, err)

	_, err = f.surface.Open(ctx, book.ID)
	assert.ErrorIs(t, err, document.ErrDecode)
	assert.Equal(t, session.Idle, f.reading.State())

	keysAfter, err := f.store.GetAllKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, keysBefore, keysAfter)
}

func TestSurface_UnknownBook(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.surface.Open(ctx, "42")
	assert.ErrorIs(t, err, catalog.ErrBookNotFound)

	_, err = f.surface.Scroll(ctx, "42", Viewport{})
	assert.ErrorIs(t, err, catalog.ErrBookNotFound)
}

func TestSurface_CloseWithoutOpen(t *testing.T) {
	f := setup(t)

	_, err := f.surface.Close(context.Background())
	assert.ErrorIs(t, err, session.ErrNotRunning)
}
