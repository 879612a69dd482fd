// Package inbox imports documents dropped into a watched directory.
package inbox

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mrlokans/readtrack/internal/entities"
)

// DefaultDebounce is how long a file must stay quiet before it is imported.
const DefaultDebounce = 500 * time.Millisecond

// Source is recorded in the audit trail for inbox imports.
const Source = "inbox"

// Importer adds books to the catalog.
type Importer interface {
	ImportBook(ctx context.Context, locator, displayName, source string) (entities.Book, error)
	Books(ctx context.Context) ([]entities.Book, error)
}

type Config struct {
	Dir      string
	Debounce time.Duration
	Importer Importer
}

// Watcher turns file create/write events into catalog imports. Writes are
// coalesced per path until the file has been quiet for the debounce delay.
type Watcher struct {
	dir      string
	debounce time.Duration
	importer Importer
	fsw      *fsnotify.Watcher

	pendingMu sync.Mutex
	pending   map[string]time.Time // path -> last event

	imported chan entities.Book
	started  atomic.Bool
	done     chan struct{}
}

func NewWatcher(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("inbox directory not configured")
	}
	if cfg.Importer == nil {
		return nil, fmt.Errorf("inbox importer not configured")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve inbox directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create inbox directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		importer: cfg.Importer,
		fsw:      fsw,
		pending:  make(map[string]time.Time),
		imported: make(chan entities.Book, 16),
		done:     make(chan struct{}),
	}, nil
}

// Imported receives each book the watcher added. Sends never block, so a
// slow reader misses notifications rather than stalling imports.
func (w *Watcher) Imported() <-chan entities.Book {
	return w.imported
}

// Start watches the inbox until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.started.Store(true)
	go w.processEvents(ctx)
	log.Printf("Inbox: watching %s (debounce %v)", w.dir, w.debounce)
	return nil
}

func (w *Watcher) Stop() error {
	err := w.fsw.Close()
	if w.started.Load() {
		<-w.done
	}
	return err
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("Inbox: watcher error: %v", err)

		case now := <-ticker.C:
			w.flushPending(ctx, now)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !Accepts(event.Name) {
		return
	}

	w.pendingMu.Lock()
	w.pending[event.Name] = time.Now()
	w.pendingMu.Unlock()
}

// flushPending imports every path that has been quiet for the debounce delay.
func (w *Watcher) flushPending(ctx context.Context, now time.Time) {
	var ready []string

	w.pendingMu.Lock()
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.pendingMu.Unlock()

	for _, path := range ready {
		book, err := w.importFile(ctx, path)
		if err != nil {
			log.Printf("Inbox: failed to import %s: %v", path, err)
			continue
		}
		if book == nil {
			continue
		}
		select {
		case w.imported <- *book:
		default:
		}
	}
}

// importFile skips files that vanished and locators already in the catalog.
func (w *Watcher) importFile(ctx context.Context, path string) (*entities.Book, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, nil
	}

	locator := Locator(path)
	books, err := w.importer.Books(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range books {
		if b.Locator == locator {
			return nil, nil
		}
	}

	book, err := w.importer.ImportBook(ctx, locator, filepath.Base(path), Source)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Accepts reports whether path has an importable extension.
func Accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".txt", ".pdf":
		return true
	}
	return false
}

// Locator returns the file:// URI for an absolute path.
func Locator(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
