// Package reader wires the reading pane to the tracking core: it decodes the
// book, restores its position, turns scroll metrics into progress and runs
// the session clock while the pane has focus.
package reader

import (
	"context"
	"fmt"
	"log"

	"github.com/mrlokans/readtrack/internal/document"
	"github.com/mrlokans/readtrack/internal/entities"
	"github.com/mrlokans/readtrack/internal/progress"
	"github.com/mrlokans/readtrack/internal/session"
)

type BookSource interface {
	GetBook(ctx context.Context, id string) (entities.Book, error)
}

type DocumentLoader interface {
	Load(ctx context.Context, locator string, format entities.BookFormat) (*document.Document, error)
}

type ProgressStore interface {
	RecordProgress(ctx context.Context, bookID string, fraction float64) (float64, error)
	GetProgress(ctx context.Context, bookID string) (float64, error)
	SavePosition(ctx context.Context, locator string, offset float64) error
	Position(ctx context.Context, locator string) (float64, error)
}

type SessionClock interface {
	Focus(ctx context.Context, bookID string) session.Session
	Blur(ctx context.Context) (session.Session, error)
}

// Viewport carries the scroll metrics reported by the rendering layer.
type Viewport struct {
	Offset         float64 `json:"offset"`
	ContentHeight  float64 `json:"content_height"`
	ViewportHeight float64 `json:"viewport_height"`
}

type OpenResult struct {
	Book     entities.Book      `json:"book"`
	Document *document.Document `json:"document"`
	Position float64            `json:"position"`
	Progress float64            `json:"progress"`
	Session  session.Session    `json:"session"`
}

type ScrollResult struct {
	Fraction float64 `json:"fraction"`
	Progress float64 `json:"progress"`
}

type Surface struct {
	books    BookSource
	loader   DocumentLoader
	progress ProgressStore
	clock    SessionClock
}

func NewSurface(books BookSource, loader DocumentLoader, p ProgressStore, clock SessionClock) *Surface {
	return &Surface{books: books, loader: loader, progress: p, clock: clock}
}

// Open decodes the book and starts a reading session. A decode failure is
// returned before anything is written or any session starts.
func (s *Surface) Open(ctx context.Context, bookID string) (*OpenResult, error) {
	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	doc, err := s.loader.Load(ctx, book.Locator, book.Format)
	if err != nil {
		log.Printf("Reader: cannot open book %s: %v", book.ID, err)
		return nil, err
	}

	position, err := s.progress.Position(ctx, book.Locator)
	if err != nil {
		return nil, fmt.Errorf("failed to load position: %w", err)
	}
	fraction, err := s.progress.GetProgress(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	return &OpenResult{
		Book:     book,
		Document: doc,
		Position: position,
		Progress: fraction,
		Session:  s.clock.Focus(ctx, book.ID),
	}, nil
}

// Scroll records the completion fraction for the current viewport and
// remembers the offset as the book's position.
func (s *Surface) Scroll(ctx context.Context, bookID string, vp Viewport) (ScrollResult, error) {
	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return ScrollResult{}, err
	}

	fraction := progress.ComputeFraction(vp.Offset, vp.ContentHeight, vp.ViewportHeight)
	stored, err := s.progress.RecordProgress(ctx, book.ID, fraction)
	if err != nil {
		return ScrollResult{}, err
	}
	if err := s.progress.SavePosition(ctx, book.Locator, vp.Offset); err != nil {
		return ScrollResult{}, fmt.Errorf("failed to save position: %w", err)
	}
	return ScrollResult{Fraction: fraction, Progress: stored}, nil
}

// Close ends the reading session and returns what it accrued.
func (s *Surface) Close(ctx context.Context) (session.Session, error) {
	return s.clock.Blur(ctx)
}
