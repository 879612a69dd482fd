package inbox

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readtrack/internal/entities"
)

type fakeImporter struct {
	mu    sync.Mutex
	books []entities.Book
}

func (f *fakeImporter) ImportBook(ctx context.Context, locator, displayName, source string) (entities.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	book := entities.Book{
		ID:      strconv.Itoa(len(f.books) + 1),
		Title:   displayName,
		Locator: locator,
		Format:  entities.FormatFromName(displayName),
	}
	f.books = append(f.books, book)
	return book, nil
}

func (f *fakeImporter) Books(ctx context.Context) ([]entities.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entities.Book(nil), f.books...), nil
}

func (f *fakeImporter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.books)
}

func startWatcher(t *testing.T, importer Importer) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := NewWatcher(Config{Dir: dir, Debounce: 50 * time.Millisecond, Importer: importer})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
	return w, w.dir
}

func TestWatcher_ImportsNewFile(t *testing.T) {
	importer := &fakeImporter{}
	w, dir := startWatcher(t, importer)

	path := filepath.Join(dir, "chapter-one.txt")
	require.NoError(t, os.WriteFile(path, []byte("It was a dark and stormy night."), 0o644))

	select {
	case book := <-w.Imported():
		assert.Equal(t, "chapter-one.txt", book.Title)
		assert.Equal(t, entities.BookFormatPlaintext, book.Format)
		assert.Equal(t, Locator(path), book.Locator)
	case <-time.After(5 * time.Second):
		t.Fatal("file was not imported within timeout")
	}

	// Further writes to the same file do not import it again.
	require.NoError(t, os.WriteFile(path, []byte("It was a dark and stormy night. Again."), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, importer.count())
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	importer := &fakeImporter{}
	_, dir := startWatcher(t, importer)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte{0xff, 0xd8}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("x"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, importer.count())
}

func TestWatcher_SkipsKnownLocator(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	importer := &fakeImporter{books: []entities.Book{{ID: "1", Title: "known.pdf", Locator: Locator(path)}}}
	w, err := NewWatcher(Config{Dir: dir, Importer: importer})
	require.NoError(t, err)
	defer w.Stop()

	book, err := w.importFile(context.Background(), path)
	require.NoError(t, err)
	assert.Nil(t, book)
	assert.Equal(t, 1, importer.count())
}

func TestWatcher_SkipsVanishedFile(t *testing.T) {
	importer := &fakeImporter{}
	w, err := NewWatcher(Config{Dir: t.TempDir(), Importer: importer})
	require.NoError(t, err)
	defer w.Stop()

	book, err := w.importFile(context.Background(), filepath.Join(w.dir, "gone.txt"))
	require.NoError(t, err)
	assert.Nil(t, book)
}

func TestNewWatcher_Validation(t *testing.T) {
	_, err := NewWatcher(Config{Importer: &fakeImporter{}})
	assert.Error(t, err)

	_, err = NewWatcher(Config{Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestAccepts(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/inbox/book.txt", true},
		{"/inbox/Book.PDF", true},
		{"/inbox/book.epub", false},
		{"/inbox/.book.txt", false},
		{"/inbox/notes", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Accepts(tt.path))
		})
	}
}

func TestLocator(t *testing.T) {
	assert.Equal(t, "file:///books/my%20book.txt", Locator("/books/my book.txt"))
}
