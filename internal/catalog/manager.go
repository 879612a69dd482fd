// Package catalog owns the list of imported books: import, favourites,
// confirmed deletion and the filtered views used by the library surface.
//
// The whole catalog is stored as one JSON array under the "books" key and
// rewritten on every change through a compare-and-swap update.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/readtrack/internal/clock"
	"github.com/mrlokans/readtrack/internal/config"
	"github.com/mrlokans/readtrack/internal/entities"
	"github.com/mrlokans/readtrack/internal/metrics"
	"github.com/mrlokans/readtrack/internal/store"
	"github.com/mrlokans/readtrack/internal/utils"
)

var (
	ErrBookNotFound          = errors.New("book not found")
	ErrInvalidBook           = errors.New("invalid book")
	ErrDeleteRequestNotFound = errors.New("delete request not found or expired")
	ErrInvalidView           = errors.New("invalid view")
)

// DefaultDeleteConfirmTTL is used when no TTL is configured.
const DefaultDeleteConfirmTTL = 5 * time.Minute

// ProgressSource provides the progress snapshot used for sorting.
type ProgressSource interface {
	Snapshot(ctx context.Context) (entities.ProgressRecord, error)
}

// Purger removes the derived state of a deleted book.
type Purger interface {
	Purge(ctx context.Context, book entities.Book, locatorShared bool) error
}

// AuditRecorder receives catalog changes for the audit trail.
type AuditRecorder interface {
	LogImport(book entities.Book, source string, err error)
	LogDelete(book entities.Book, cascade string)
}

// DeleteRequest is the first half of a two-step delete.
type DeleteRequest struct {
	Token     string        `json:"token"`
	Book      entities.Book `json:"book"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type ManagerConfig struct {
	Store            store.Store
	Updater          *store.Updater
	Progress         ProgressSource
	Purger           Purger // required for CascadePurge
	Cascade          config.CascadePolicy
	DeleteConfirmTTL time.Duration
	Clock            clock.Clock
	Audit            AuditRecorder // optional
	Metrics          *metrics.Metrics
}

type Manager struct {
	store    store.Store
	updater  *store.Updater
	progress ProgressSource
	purger   Purger
	cascade  config.CascadePolicy
	ttl      time.Duration
	clock    clock.Clock
	audit    AuditRecorder
	metrics  *metrics.Metrics

	mu      sync.Mutex
	pending map[string]DeleteRequest
}

func NewManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		store:    cfg.Store,
		updater:  cfg.Updater,
		progress: cfg.Progress,
		purger:   cfg.Purger,
		cascade:  cfg.Cascade,
		ttl:      cfg.DeleteConfirmTTL,
		clock:    cfg.Clock,
		audit:    cfg.Audit,
		metrics:  cfg.Metrics,
		pending:  make(map[string]DeleteRequest),
	}
	if m.cascade == "" {
		m.cascade = config.CascadeRetain
	}
	if m.ttl <= 0 {
		m.ttl = DefaultDeleteConfirmTTL
	}
	if m.clock == nil {
		m.clock = clock.System{}
	}
	return m
}

// SetPurger replaces the purger, e.g. with a task-queue backed one once the
// queue is running.
func (m *Manager) SetPurger(p Purger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purger = p
}

// SetProgressSource breaks the construction cycle with the progress tracker,
// which itself resolves books through the manager.
func (m *Manager) SetProgressSource(p ProgressSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = p
}

// Cascade returns the configured delete policy.
func (m *Manager) Cascade() config.CascadePolicy {
	return m.cascade
}

// ImportBook appends a new book. The format comes from the display name's
// suffix, or the locator's when no name is given. Duplicate locators are
// allowed and get their own id.
func (m *Manager) ImportBook(ctx context.Context, locator, displayName, source string) (entities.Book, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return entities.Book{}, fmt.Errorf("%w: empty locator", ErrInvalidBook)
	}

	name := utils.NormalizeDisplayName(displayName)
	if name == "" {
		name = utils.NormalizeDisplayName(path.Base(locator))
	}

	books, err := m.Books(ctx)
	if err != nil {
		return entities.Book{}, err
	}

	id, err := m.reserveID(ctx, books)
	if err != nil {
		return entities.Book{}, fmt.Errorf("failed to reserve book id: %w", err)
	}

	book := entities.Book{
		ID:      id,
		Title:   name,
		Locator: locator,
		Format:  entities.FormatFromName(name),
	}

	err = store.UpdateJSON(ctx, m.updater, store.KeyBooks, func(books *[]entities.Book) error {
		*books = append(*books, book)
		return nil
	})
	if m.audit != nil {
		m.audit.LogImport(book, source, err)
	}
	if err != nil {
		return entities.Book{}, fmt.Errorf("failed to save catalog: %w", err)
	}

	m.metrics.BookImported(string(book.Format))
	log.Printf("Catalog: imported %q as book %s (%s)", book.Title, book.ID, book.Format)
	return book, nil
}

// reserveID advances the booksLastId high-water mark so that an id freed by
// deletion is never handed out again.
func (m *Manager) reserveID(ctx context.Context, books []entities.Book) (string, error) {
	var maxExisting uint64
	for _, b := range books {
		if n, err := strconv.ParseUint(b.ID, 10, 64); err == nil && n > maxExisting {
			maxExisting = n
		}
	}

	var next uint64
	err := store.UpdateJSON(ctx, m.updater, store.KeyBooksLastID, func(last *uint64) error {
		next = max(*last, maxExisting) + 1
		*last = next
		return nil
	})
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(next, 10), nil
}

// ToggleFavorite flips the favourite flag and returns the updated book.
func (m *Manager) ToggleFavorite(ctx context.Context, id string) (entities.Book, error) {
	var updated entities.Book
	err := store.UpdateJSON(ctx, m.updater, store.KeyBooks, func(books *[]entities.Book) error {
		for i := range *books {
			if (*books)[i].ID == id {
				(*books)[i].Favorite = !(*books)[i].Favorite
				updated = (*books)[i]
				return nil
			}
		}
		return ErrBookNotFound
	})
	if err != nil {
		return entities.Book{}, err
	}
	return updated, nil
}

// RequestDelete starts a delete that must be confirmed with the returned
// token before it expires.
func (m *Manager) RequestDelete(ctx context.Context, id string) (DeleteRequest, error) {
	book, err := m.GetBook(ctx, id)
	if err != nil {
		return DeleteRequest{}, err
	}

	now := m.clock.Now()
	req := DeleteRequest{
		Token:     uuid.NewString(),
		Book:      book,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(now)
	m.pending[req.Token] = req
	return req, nil
}

// CancelDelete discards a pending delete request.
func (m *Manager) CancelDelete(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(m.clock.Now())

	if _, ok := m.pending[token]; !ok {
		return ErrDeleteRequestNotFound
	}
	delete(m.pending, token)
	return nil
}

// ConfirmDelete removes the book named by a pending request. With the purge
// policy its derived state is removed as well; purge failures are logged
// and do not undo the delete. The token stays valid until it expires if the
// catalog write fails, so the confirmation can be retried.
func (m *Manager) ConfirmDelete(ctx context.Context, token string) (entities.Book, error) {
	m.mu.Lock()
	m.pruneLocked(m.clock.Now())
	req, ok := m.pending[token]
	purger := m.purger
	m.mu.Unlock()

	if !ok {
		return entities.Book{}, ErrDeleteRequestNotFound
	}

	var deleted entities.Book
	locatorShared := false
	err := store.UpdateJSON(ctx, m.updater, store.KeyBooks, func(books *[]entities.Book) error {
		kept := make([]entities.Book, 0, len(*books))
		found := false
		locatorShared = false
		for _, b := range *books {
			if b.ID == req.Book.ID {
				deleted = b
				found = true
				continue
			}
			kept = append(kept, b)
		}
		if !found {
			return ErrBookNotFound
		}
		for _, b := range kept {
			if b.Locator == deleted.Locator {
				locatorShared = true
			}
		}
		*books = kept
		return nil
	})
	if err == nil || errors.Is(err, ErrBookNotFound) {
		m.mu.Lock()
		delete(m.pending, token)
		m.mu.Unlock()
	}
	if err != nil {
		return entities.Book{}, err
	}

	log.Printf("Catalog: deleted book %s (%q), cascade=%s", deleted.ID, deleted.Title, m.cascade)
	if m.audit != nil {
		m.audit.LogDelete(deleted, string(m.cascade))
	}

	if m.cascade == config.CascadePurge && purger != nil {
		if err := purger.Purge(ctx, deleted, locatorShared); err != nil {
			log.Printf("Catalog: failed to purge derived state of book %s: %v", deleted.ID, err)
		}
	}
	return deleted, nil
}

func (m *Manager) pruneLocked(now time.Time) {
	for token, req := range m.pending {
		if !now.Before(req.ExpiresAt) {
			delete(m.pending, token)
		}
	}
}

// Books returns the catalog in stored order.
func (m *Manager) Books(ctx context.Context) ([]entities.Book, error) {
	books, err := store.GetJSON[[]entities.Book](ctx, m.store, store.KeyBooks)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if books == nil {
		books = []entities.Book{}
	}
	return books, nil
}

func (m *Manager) GetBook(ctx context.Context, id string) (entities.Book, error) {
	books, err := m.Books(ctx)
	if err != nil {
		return entities.Book{}, err
	}
	for _, b := range books {
		if b.ID == id {
			return b, nil
		}
	}
	return entities.Book{}, fmt.Errorf("%w: %s", ErrBookNotFound, id)
}

// ListFiltered returns the catalog view for a filter and sort order.
func (m *Manager) ListFiltered(ctx context.Context, filter Filter, order SortOrder) ([]entities.Book, error) {
	books, err := m.Books(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	source := m.progress
	m.mu.Unlock()

	var progress entities.ProgressRecord
	if order == SortProgressDesc && source != nil {
		if progress, err = source.Snapshot(ctx); err != nil {
			return nil, fmt.Errorf("failed to load progress: %w", err)
		}
	}
	return Apply(books, progress, filter, order), nil
}
