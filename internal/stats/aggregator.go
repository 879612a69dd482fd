// Package stats composes the time ledger, the daily index and the read-book
// set into the summary shown on the stats dashboard.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/mrlokans/readtrack/internal/entities"
)

type LedgerReader interface {
	Get(ctx context.Context) (entities.TimeLedger, error)
}

type DaysReader interface {
	Days(ctx context.Context) (map[string]entities.DailyEntry, error)
}

type ReadBooksReader interface {
	ReadBooks(ctx context.Context) ([]string, error)
}

type Summary struct {
	TotalAppSeconds            uint64     `json:"total_app_seconds"`
	TotalReadingSeconds        uint64     `json:"total_reading_seconds"`
	LastSessionEnd             *time.Time `json:"last_session_end"`
	FinishedBookCount          int        `json:"finished_book_count"`
	AverageDailyReadingSeconds float64    `json:"average_daily_reading_seconds"`
	DaysWithReadingRecord      int        `json:"days_with_reading_record"`
}

type Aggregator struct {
	ledger    LedgerReader
	days      DaysReader
	readBooks ReadBooksReader
}

func NewAggregator(ledger LedgerReader, days DaysReader, readBooks ReadBooksReader) *Aggregator {
	return &Aggregator{ledger: ledger, days: days, readBooks: readBooks}
}

func (a *Aggregator) Summary(ctx context.Context) (Summary, error) {
	l, err := a.ledger.Get(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read ledger: %w", err)
	}
	days, err := a.days.Days(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read daily index: %w", err)
	}
	read, err := a.readBooks.ReadBooks(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read finished books: %w", err)
	}

	avg, counted := AverageDailyReading(days)
	return Summary{
		TotalAppSeconds:            l.TotalAppSeconds,
		TotalReadingSeconds:        l.TotalReadingSeconds,
		LastSessionEnd:             l.LastSessionEnd,
		FinishedBookCount:          len(read),
		AverageDailyReadingSeconds: avg,
		DaysWithReadingRecord:      counted,
	}, nil
}

// AverageDailyReading averages reading seconds over the days that have a
// per-day time record. Days without one are not counted, even if they carry
// a note or a finished book.
func AverageDailyReading(days map[string]entities.DailyEntry) (float64, int) {
	var total uint64
	var count int
	for _, d := range days {
		if !d.HasTimeRecord {
			continue
		}
		total += d.ReadingSeconds
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return float64(total) / float64(count), count
}

// FormatDuration renders seconds as "1h 5m", "2m 3s" or "9s".
func FormatDuration(seconds uint64) string {
	hrs := seconds / 3600
	mins := (seconds % 3600) / 60
	secs := seconds % 60
	switch {
	case hrs > 0:
		return fmt.Sprintf("%dh %dm", hrs, mins)
	case mins > 0:
		return fmt.Sprintf("%dm %ds", mins, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
