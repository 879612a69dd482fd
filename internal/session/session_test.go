package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readtrack/internal/activity"
	"github.com/mrlokans/readtrack/internal/clock"
	"github.com/mrlokans/readtrack/internal/database"
	"github.com/mrlokans/readtrack/internal/database/keyvalue"
	"github.com/mrlokans/readtrack/internal/ledger"
	"github.com/mrlokans/readtrack/internal/store"
)

type fixture struct {
	clock   *clock.Manual
	ledger  *ledger.Repository
	index   *activity.Index
	reading *ReadingClock
	app     *AppClock
}

func setup(t *testing.T, start time.Time) fixture {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := keyvalue.NewRepository(db.DB)
	u := store.NewUpdater(s, 5)
	clk := clock.NewManual(start)
	l := ledger.NewRepository(s, u)
	idx := activity.NewIndex(s, u, clk, nil)

	return fixture{
		clock:   clk,
		ledger:  l,
		index:   idx,
		reading: NewReadingClock(clk, l, idx, nil),
		app:     NewAppClock(clk, l, nil),
	}
}

var noon = time.Date(2026, 5, 12, 12, 0, 0, 0, time.UTC)

func TestReadingClock_StateMachine(t *testing.T) {
	f := setup(t, noon)
	ctx := context.Background()

	assert.Equal(t, Idle, f.reading.State())
	_, err := f.reading.Blur(ctx)
	assert.ErrorIs(t, err, ErrNotRunning)

	s := f.reading.Focus(ctx, "1")
	assert.Equal(t, Running, f.reading.State())
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "running", f.reading.State().String())

	_, err = f.reading.Blur(ctx)
	require.NoError(t, err)
	assert.Equal(t, Idle, f.reading.State())
	assert.Equal(t, "idle", Idle.String())
}

func TestReadingClock_FlushesOnBlur(t *testing.T) {
	f := setup(t, noon)
	ctx := context.Background()

	f.reading.Focus(ctx, "1")
	f.clock.Advance(125*time.Second + 700*time.Millisecond)

	live, ok := f.reading.Current()
	require.True(t, ok)
	assert.Equal(t, uint64(125), live.AccumulatedSeconds)

	closed, err := f.reading.Blur(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(125), closed.AccumulatedSeconds)

	got, err := f.ledger.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(125), got.TotalReadingSeconds)
	require.NotNil(t, got.LastSessionEnd)
	assert.True(t, got.LastSessionEnd.Equal(noon.Add(125*time.Second).Truncate(time.Second)))

	day, err := f.index.Entry(ctx, "2026-05-12")
	require.NoError(t, err)
	assert.Equal(t, uint64(125), day.ReadingSeconds)

	_, ok = f.reading.Current()
	assert.False(t, ok)
}

func TestReadingClock_FlushesExactlyOnce(t *testing.T) {
	f := setup(t, noon)
	ctx := context.Background()

	f.reading.Focus(ctx, "1")
	f.clock.Advance(60 * time.Second)
	_, err := f.reading.Blur(ctx)
	require.NoError(t, err)
	_, err = f.reading.Blur(ctx)
	assert.ErrorIs(t, err, ErrNotRunning)

	got, err := f.ledger.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), got.TotalReadingSeconds)
}

func TestReadingClock_RefocusSameBookIsNoop(t *testing.T) {
	f := setup(t, noon)
	ctx := context.Background()

	first := f.reading.Focus(ctx, "1")
	f.clock.Advance(30 * time.Second)
	again := f.reading.Focus(ctx, "1")
	assert.Equal(t, first.ID, again.ID)

	f.clock.Advance(30 * time.Second)
	closed, err := f.reading.Blur(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), closed.AccumulatedSeconds)
}

func TestReadingClock_SwitchingBooksClosesPrevious(t *testing.T) {
	f := setup(t, noon)
	ctx := context.Background()

	f.reading.Focus(ctx, "1")
	f.clock.Advance(40 * time.Second)
	second := f.reading.Focus(ctx, "2")
	assert.Equal(t, "2", second.BookID)

	got, err := f.ledger.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), got.TotalReadingSeconds)

	f.clock.Advance(20 * time.Second)
	_, err = f.reading.Blur(ctx)
	require.NoError(t, err)

	got, err = f.ledger.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), got.TotalReadingSeconds)
}

func TestReadingClock_SessionAcrossMidnight(t *testing.T) {
	start := time.Date(2026, 5, 12, 23, 58, 30, 0, time.UTC)
	f := setup(t, start)
	ctx := context.Background()

	f.reading.Focus(ctx, "1")
	f.clock.Advance(5 * time.Minute)
	_, err := f.reading.Blur(ctx)
	require.NoError(t, err)

	before, err := f.index.Entry(ctx, "2026-05-12")
	require.NoError(t, err)
	after, err := f.index.Entry(ctx, "2026-05-13")
	require.NoError(t, err)
	assert.Equal(t, uint64(90), before.ReadingSeconds)
	assert.Equal(t, uint64(210), after.ReadingSeconds)

	got, err := f.ledger.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.ReadingSeconds+after.ReadingSeconds, got.TotalReadingSeconds)
}

func TestReadingClock_ZeroLengthSessionWritesNoDay(t *testing.T) {
	f := setup(t, noon)
	ctx := context.Background()

	f.reading.Focus(ctx, "1")
	f.clock.Advance(400 * time.Millisecond)
	_, err := f.reading.Blur(ctx)
	require.NoError(t, err)

	day, err := f.index.Entry(ctx, "2026-05-12")
	require.NoError(t, err)
	assert.False(t, day.HasTimeRecord)

	got, err := f.ledger.Get(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got.LastSessionEnd)
}

func TestSplitByDay(t *testing.T) {
	start := time.Date(2026, 1, 30, 23, 0, 0, 500_000_000, time.UTC)
	end := start.Add(49 * time.Hour)

	spans := SplitByDay(start, end)
	require.Len(t, spans, 4)
	assert.Equal(t, "2026-01-30", spans[0].Date)
	assert.Equal(t, "2026-01-31", spans[1].Date)
	assert.Equal(t, "2026-02-01", spans[2].Date)
	assert.Equal(t, "2026-02-02", spans[3].Date)
	assert.Equal(t, uint64(86400), spans[1].Seconds)

	var total uint64
	for _, s := range spans {
		total += s.Seconds
	}
	assert.Equal(t, uint64(49*3600), total)
}

type failingLedger struct {
	mu    sync.Mutex
	calls int
}

func (l *failingLedger) AddReadingSeconds(context.Context, uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return errors.New("disk full")
}

func (l *failingLedger) SetLastSession(context.Context, time.Time) error { return nil }

type recordingDaily struct {
	days map[string]uint64
}

func (d *recordingDaily) AddReadingSeconds(_ context.Context, date string, seconds uint64) error {
	d.days[date] += seconds
	return nil
}

func TestReadingClock_LedgerFailureSkipsDailyWrite(t *testing.T) {
	clk := clock.NewManual(noon)
	l := &failingLedger{}
	daily := &recordingDaily{days: map[string]uint64{}}
	c := NewReadingClock(clk, l, daily, nil)
	ctx := context.Background()

	c.Focus(ctx, "1")
	clk.Advance(time.Minute)
	closed, err := c.Blur(ctx)

	require.NoError(t, err)
	assert.Equal(t, uint64(60), closed.AccumulatedSeconds)
	assert.Equal(t, 1, l.calls)
	assert.Empty(t, daily.days)
}

func TestAppClock_CarriesSubSecondRemainder(t *testing.T) {
	f := setup(t, noon)
	ctx := context.Background()

	f.app.Foreground()
	assert.True(t, f.app.IsForeground())

	f.clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, uint64(1), f.app.Checkpoint(ctx))

	f.clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, uint64(2), f.app.Checkpoint(ctx))

	f.clock.Advance(700 * time.Millisecond)
	assert.Equal(t, uint64(0), f.app.Background(ctx))
	assert.False(t, f.app.IsForeground())

	got, err := f.ledger.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.TotalAppSeconds)
}

func TestAppClock_IgnoresTimeInBackground(t *testing.T) {
	f := setup(t, noon)
	ctx := context.Background()

	f.app.Foreground()
	f.clock.Advance(10 * time.Second)
	assert.Equal(t, uint64(10), f.app.Background(ctx))

	f.clock.Advance(time.Hour)
	assert.Equal(t, uint64(0), f.app.Checkpoint(ctx))

	f.app.Foreground()
	f.app.Foreground()
	f.clock.Advance(5 * time.Second)
	assert.Equal(t, uint64(5), f.app.Checkpoint(ctx))

	got, err := f.ledger.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), got.TotalAppSeconds)
}

func TestAppClock_IndependentOfReadingFocus(t *testing.T) {
	f := setup(t, noon)
	ctx := context.Background()

	f.app.Foreground()
	f.clock.Advance(10 * time.Second)
	f.reading.Focus(ctx, "1")
	f.clock.Advance(20 * time.Second)
	_, err := f.reading.Blur(ctx)
	require.NoError(t, err)
	f.app.Background(ctx)

	got, err := f.ledger.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), got.TotalAppSeconds)
	assert.Equal(t, uint64(20), got.TotalReadingSeconds)
}

func TestAppClock_RunFlushesOnCancel(t *testing.T) {
	f := setup(t, noon)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.app.Run(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, f.app.IsForeground, time.Second, 5*time.Millisecond)
	f.clock.Advance(42 * time.Second)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	got, err := f.ledger.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got.TotalAppSeconds)
	assert.False(t, f.app.IsForeground())
}
