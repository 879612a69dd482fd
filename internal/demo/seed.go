// Package demo builds a sample library with a few weeks of reading history
// and guards the API when the server runs as a public demo.
package demo

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mrlokans/readtrack/internal/clock"
	"github.com/mrlokans/readtrack/internal/entities"
	"github.com/mrlokans/readtrack/internal/inbox"
	"github.com/mrlokans/readtrack/internal/reader"
	"github.com/mrlokans/readtrack/internal/session"
)

// SampleBook is a public domain excerpt written to disk and imported.
type SampleBook struct {
	FileName  string
	Text      string
	Favourite bool
}

var Library = []SampleBook{
	{
		FileName:  "Pride and Prejudice.txt",
		Text:      "It is a truth universally acknowledged, that a single man in possession of a good fortune, must be in want of a wife.",
		Favourite: true,
	},
	{
		FileName: "Moby Dick.txt",
		Text:     "Call me Ishmael. Some years ago, never mind how long precisely, having little or no money in my purse, I thought I would sail about a little and see the watery part of the world.",
	},
	{
		FileName:  "Anna Karenina.txt",
		Text:      "Happy families are all alike; every unhappy family is unhappy in its own way.",
		Favourite: true,
	},
	{
		FileName: "A Tale of Two Cities.txt",
		Text:     "It was the best of times, it was the worst of times, it was the age of wisdom, it was the age of foolishness.",
	},
}

// Simulated page geometry; three sessions scroll a book to the end.
const (
	contentHeight    = 1000.0
	viewportHeight   = 100.0
	sessionsPerBook  = 3
	eveningStartHour = 20
)

type Catalog interface {
	ImportBook(ctx context.Context, locator, displayName, source string) (entities.Book, error)
	ToggleFavorite(ctx context.Context, id string) (entities.Book, error)
}

type Reader interface {
	Open(ctx context.Context, bookID string) (*reader.OpenResult, error)
	Scroll(ctx context.Context, bookID string, vp reader.Viewport) (reader.ScrollResult, error)
	Close(ctx context.Context) (session.Session, error)
}

type AppLifecycle interface {
	Foreground()
	Background(ctx context.Context) uint64
}

type Notes interface {
	SetNote(ctx context.Context, date, text string) error
}

type Seeder struct {
	Catalog Catalog
	Reader  Reader
	App     AppLifecycle
	Notes   Notes
	Clock   *clock.Manual
	Dir     string // where the sample files are written
}

type Result struct {
	Books          []entities.Book
	Sessions       int
	ReadingSeconds uint64
	Notes          int
}

// Seed imports the sample library and replays evening reading sessions over
// the last days days, skipping every fourth day. The clock is restored when
// it returns.
func (s *Seeder) Seed(ctx context.Context, days int) (Result, error) {
	var res Result
	if s.Clock == nil {
		return res, fmt.Errorf("demo seeding needs a manual clock")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return res, fmt.Errorf("create sample dir: %w", err)
	}

	now := s.Clock.Now()
	defer s.Clock.Set(now)

	for _, sample := range Library {
		path, err := filepath.Abs(filepath.Join(s.Dir, sample.FileName))
		if err != nil {
			return res, err
		}
		if err := os.WriteFile(path, []byte(sample.Text+"\n"), 0o644); err != nil {
			return res, fmt.Errorf("write %s: %w", sample.FileName, err)
		}

		book, err := s.Catalog.ImportBook(ctx, inbox.Locator(path), sample.FileName, "demo")
		if err != nil {
			return res, fmt.Errorf("import %s: %w", sample.FileName, err)
		}
		if sample.Favourite {
			if book, err = s.Catalog.ToggleFavorite(ctx, book.ID); err != nil {
				return res, err
			}
		}
		res.Books = append(res.Books, book)
	}

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	sessionsByBook := make(map[string]int)

	for day := days; day >= 1; day-- {
		if day%4 == 0 {
			continue
		}
		date := today.AddDate(0, 0, -day)
		book := res.Books[res.Sessions%len(res.Books)]
		minutes := 10 + (res.Sessions*13)%35
		start := date.Add(eveningStartHour*time.Hour + time.Duration(res.Sessions*7)*time.Minute)

		read, err := s.replaySession(ctx, book, start, minutes, sessionsByBook[book.ID])
		if err != nil {
			return res, err
		}
		sessionsByBook[book.ID]++
		res.Sessions++
		res.ReadingSeconds += read

		if day%5 == 0 {
			text := fmt.Sprintf("Read %s for %d minutes.", book.Title, minutes)
			if err := s.Notes.SetNote(ctx, date.Format(entities.DateLayout), text); err != nil {
				return res, err
			}
			res.Notes++
		}
	}

	log.Printf("Demo: seeded %d books, %d sessions, %ds of reading", len(res.Books), res.Sessions, res.ReadingSeconds)
	return res, nil
}

func (s *Seeder) replaySession(ctx context.Context, book entities.Book, start time.Time, minutes, done int) (uint64, error) {
	s.Clock.Set(start)
	s.App.Foreground()
	defer s.App.Background(ctx)

	if _, err := s.Reader.Open(ctx, book.ID); err != nil {
		return 0, fmt.Errorf("open %s: %w", book.Title, err)
	}

	scrollable := contentHeight - viewportHeight
	half := time.Duration(minutes) * time.Minute / 2
	for step, offset := range []float64{
		scrollable * (float64(done) + 0.5) / sessionsPerBook,
		scrollable * float64(done+1) / sessionsPerBook,
	} {
		s.Clock.Advance(half)
		if step == 1 {
			s.Clock.Advance(time.Duration(minutes)*time.Minute - 2*half)
		}
		vp := reader.Viewport{Offset: min(offset, scrollable), ContentHeight: contentHeight, ViewportHeight: viewportHeight}
		if _, err := s.Reader.Scroll(ctx, book.ID, vp); err != nil {
			return 0, fmt.Errorf("scroll %s: %w", book.Title, err)
		}
	}

	sess, err := s.Reader.Close(ctx)
	if err != nil {
		return 0, err
	}
	return sess.AccumulatedSeconds, nil
}
