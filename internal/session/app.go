package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/readtrack/internal/clock"
	"github.com/mrlokans/readtrack/internal/metrics"
)

// DefaultFlushInterval is used by Run when no positive interval is given.
const DefaultFlushInterval = 5 * time.Second

// AppLedger receives foreground app time.
type AppLedger interface {
	AddAppSeconds(ctx context.Context, seconds uint64) error
}

// AppClock accumulates foreground time independently of reading focus.
// Whole seconds are flushed on every checkpoint; the sub-second remainder
// carries over to the next one.
type AppClock struct {
	clock   clock.Clock
	ledger  AppLedger
	metrics *metrics.Metrics

	mu         sync.Mutex
	foreground bool
	since      time.Time
	carry      time.Duration
}

func NewAppClock(clk clock.Clock, ledger AppLedger, m *metrics.Metrics) *AppClock {
	return &AppClock{clock: clk, ledger: ledger, metrics: m}
}

func (a *AppClock) IsForeground() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.foreground
}

// Foreground starts counting. Calling it while already foregrounded is a
// no-op.
func (a *AppClock) Foreground() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.foreground {
		return
	}
	a.foreground = true
	a.since = a.clock.Now()
}

// Background flushes the pending span and stops counting.
func (a *AppClock) Background(ctx context.Context) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	flushed := a.checkpointLocked(ctx)
	a.foreground = false
	return flushed
}

// Checkpoint flushes the time accumulated since the last checkpoint and
// returns the number of whole seconds written.
func (a *AppClock) Checkpoint(ctx context.Context) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.checkpointLocked(ctx)
}

func (a *AppClock) checkpointLocked(ctx context.Context) uint64 {
	if !a.foreground {
		return 0
	}
	now := a.clock.Now()
	span := a.carry
	if now.After(a.since) {
		span += now.Sub(a.since)
	}
	a.since = now

	seconds := wholeSeconds(span)
	a.carry = span - time.Duration(seconds)*time.Second
	if seconds == 0 {
		return 0
	}

	if err := a.ledger.AddAppSeconds(ctx, seconds); err != nil {
		log.Printf("App clock: dropped %ds of app time: %v", seconds, err)
		a.metrics.WriteFailed("app_clock")
		return 0
	}
	a.metrics.AppSecondsFlushed(seconds)
	return seconds
}

// Run foregrounds the clock and checkpoints every interval until ctx is
// done, then flushes the remainder and backgrounds it.
func (a *AppClock) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	a.Foreground()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.Checkpoint(ctx)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			a.Background(flushCtx)
			cancel()
			return
		}
	}
}
