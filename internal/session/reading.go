// Package session accrues reading time and foreground app time.
//
// Time is measured from focus transition timestamps rather than a periodic
// tick: a reading session is the span between Focus and Blur, and it is
// flushed to the ledger and the daily index exactly once when it ends.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/readtrack/internal/clock"
	"github.com/mrlokans/readtrack/internal/entities"
	"github.com/mrlokans/readtrack/internal/metrics"
)

var ErrNotRunning = errors.New("no reading session is running")

type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Session is one continuous span of reading focus.
type Session struct {
	ID                 string    `json:"id"`
	BookID             string    `json:"book_id"`
	StartedAt          time.Time `json:"started_at"`
	EndedAt            time.Time `json:"ended_at,omitempty"`
	AccumulatedSeconds uint64    `json:"accumulated_seconds"`
}

// LedgerWriter is the part of the time ledger a reading session writes to.
type LedgerWriter interface {
	AddReadingSeconds(ctx context.Context, seconds uint64) error
	SetLastSession(ctx context.Context, at time.Time) error
}

// DailyWriter records per-day reading seconds.
type DailyWriter interface {
	AddReadingSeconds(ctx context.Context, date string, seconds uint64) error
}

type ReadingClock struct {
	clock   clock.Clock
	ledger  LedgerWriter
	daily   DailyWriter
	metrics *metrics.Metrics

	mu      sync.Mutex
	current *Session
}

func NewReadingClock(clk clock.Clock, ledger LedgerWriter, daily DailyWriter, m *metrics.Metrics) *ReadingClock {
	return &ReadingClock{clock: clk, ledger: ledger, daily: daily, metrics: m}
}

func (c *ReadingClock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Idle
	}
	return Running
}

// Current returns the running session with its live accumulated time.
func (c *ReadingClock) Current() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Session{}, false
	}
	s := *c.current
	s.AccumulatedSeconds = wholeSeconds(c.clock.Now().Sub(s.StartedAt))
	return s, true
}

// Focus starts a session for bookID. Focusing the book that is already
// being read is a no-op; focusing a different one ends that session first.
func (c *ReadingClock) Focus(ctx context.Context, bookID string) Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		if c.current.BookID == bookID {
			return *c.current
		}
		c.closeLocked(ctx)
	}

	c.current = &Session{
		ID:        uuid.NewString(),
		BookID:    bookID,
		StartedAt: c.clock.Now(),
	}
	c.metrics.SessionStarted()
	log.Printf("Session clock: started session %s for book %s", c.current.ID, bookID)
	return *c.current
}

// Blur ends the running session and flushes it.
func (c *ReadingClock) Blur(ctx context.Context) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return Session{}, ErrNotRunning
	}
	return c.closeLocked(ctx), nil
}

func (c *ReadingClock) closeLocked(ctx context.Context) Session {
	s := *c.current
	c.current = nil

	s.EndedAt = c.clock.Now()
	if s.EndedAt.Before(s.StartedAt) {
		// Wall clock moved backwards; count nothing rather than underflow.
		s.EndedAt = s.StartedAt
	}
	s.AccumulatedSeconds = wholeSeconds(s.EndedAt.Sub(s.StartedAt))

	c.flush(ctx, s)
	c.metrics.SessionClosed(s.AccumulatedSeconds)
	log.Printf("Session clock: closed session %s for book %s after %ds", s.ID, s.BookID, s.AccumulatedSeconds)
	return s
}

// flush writes the ledger before the daily records so that the ledger total
// is never behind the sum of the days. Failures are logged and dropped.
func (c *ReadingClock) flush(ctx context.Context, s Session) {
	if err := c.ledger.AddReadingSeconds(ctx, s.AccumulatedSeconds); err != nil {
		log.Printf("Session clock: dropped %ds of reading time: %v", s.AccumulatedSeconds, err)
		c.metrics.WriteFailed("session")
		return
	}
	if err := c.ledger.SetLastSession(ctx, s.EndedAt); err != nil {
		log.Printf("Session clock: failed to stamp last session: %v", err)
		c.metrics.WriteFailed("session")
	}

	for _, span := range SplitByDay(s.StartedAt, s.EndedAt) {
		if span.Seconds == 0 {
			continue
		}
		if err := c.daily.AddReadingSeconds(ctx, span.Date, span.Seconds); err != nil {
			log.Printf("Session clock: failed to record %ds for %s: %v", span.Seconds, span.Date, err)
			c.metrics.WriteFailed("session")
		}
	}
}

// DaySpan is the part of a session that fell on one calendar date.
type DaySpan struct {
	Date    string
	Seconds uint64
}

// SplitByDay divides [start, end) at local midnights. The seconds of all
// spans add up to the whole seconds of the full interval.
func SplitByDay(start, end time.Time) []DaySpan {
	if !end.After(start) {
		return []DaySpan{{Date: start.Format(entities.DateLayout)}}
	}

	var spans []DaySpan
	var counted uint64
	cursor := start
	for {
		y, m, d := cursor.Date()
		midnight := time.Date(y, m, d+1, 0, 0, 0, 0, cursor.Location())
		date := cursor.Format(entities.DateLayout)

		if !midnight.Before(end) {
			spans = append(spans, DaySpan{Date: date, Seconds: wholeSeconds(end.Sub(start)) - counted})
			return spans
		}

		upTo := wholeSeconds(midnight.Sub(start))
		spans = append(spans, DaySpan{Date: date, Seconds: upTo - counted})
		counted = upTo
		cursor = midnight
	}
}

func wholeSeconds(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d / time.Second)
}
