package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/readtrack/internal/catalog"
	"github.com/mrlokans/readtrack/internal/entities"
)

// PurgeAuditor records the outcome of a purge.
type PurgeAuditor interface {
	LogPurge(book entities.Book, locatorShared bool, err error)
}

// BookLister reports the books currently in the catalog.
type BookLister interface {
	Books(ctx context.Context) ([]entities.Book, error)
}

// PurgeBookTask removes the derived state of a deleted book. LocatorShared
// is the sharing state at delete time; the processor rechecks it.
type PurgeBookTask struct {
	Book          entities.Book `json:"book"`
	LocatorShared bool          `json:"locator_shared"`
}

func (t PurgeBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "purge_book",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PurgeBookProcessor runs the purge synchronously against purger. Whether
// the locator is shared is recomputed from books at run time, since the
// same file may have been imported again after the delete. books and
// auditor may be nil.
func PurgeBookProcessor(purger catalog.Purger, books BookLister, auditor PurgeAuditor) backlite.QueueProcessor[PurgeBookTask] {
	return func(ctx context.Context, task PurgeBookTask) error {
		if purger == nil {
			return fmt.Errorf("purger not configured")
		}
		if task.Book.ID == "" {
			return fmt.Errorf("purge task without book id")
		}

		shared := task.LocatorShared
		if books != nil {
			current, err := books.Books(ctx)
			if err != nil {
				return fmt.Errorf("list books for purge of %s: %w", task.Book.ID, err)
			}
			shared = locatorInUse(current, task.Book)
		}

		err := purger.Purge(ctx, task.Book, shared)
		if auditor != nil {
			auditor.LogPurge(task.Book, shared, err)
		}
		if err != nil {
			return fmt.Errorf("purge book %s: %w", task.Book.ID, err)
		}

		log.Printf("[TASK] Purged derived state of book %s (locator shared: %v)", task.Book.ID, shared)
		return nil
	}
}

func locatorInUse(books []entities.Book, deleted entities.Book) bool {
	for _, b := range books {
		if b.ID != deleted.ID && b.Locator == deleted.Locator {
			return true
		}
	}
	return false
}

func NewPurgeBookQueue(purger catalog.Purger, books BookLister, auditor PurgeAuditor) backlite.Queue {
	return backlite.NewQueue(PurgeBookProcessor(purger, books, auditor))
}

// QueuePurger defers purges to the task queue so ConfirmDelete returns as
// soon as the book is gone from the catalog.
type QueuePurger struct {
	client *Client
}

func NewQueuePurger(client *Client) *QueuePurger {
	return &QueuePurger{client: client}
}

func (p *QueuePurger) Purge(ctx context.Context, book entities.Book, locatorShared bool) error {
	id, err := p.client.Enqueue(ctx, PurgeBookTask{Book: book, LocatorShared: locatorShared})
	if err != nil {
		return err
	}
	log.Printf("[TASK] Enqueued purge of book %s as task %s", book.ID, id)
	return nil
}
