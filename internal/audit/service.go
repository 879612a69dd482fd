package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/readtrack/internal/database/audit"
	"github.com/mrlokans/readtrack/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until all events queued with LogAsync are written.
func (s *Service) Wait() {
	s.pending.Wait()
}

// LogImport records a catalog import.
func (s *Service) LogImport(book entities.Book, source string, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventImport,
		Action:      source + "_import",
		Description: "Imported " + book.Title,
		EntityType:  "book",
		EntityID:    book.ID,
		Metadata:    metadata(map[string]any{"locator": book.Locator, "format": book.Format}),
		Status:      entities.AuditStatusSuccess,
	}
	withError(event, err)
	s.LogAsync(event)
}

// LogDelete records a confirmed book deletion.
func (s *Service) LogDelete(book entities.Book, cascade string) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventDelete,
		Action:      "book_delete",
		Description: "Deleted book: " + book.Title,
		EntityType:  "book",
		EntityID:    book.ID,
		Metadata:    metadata(map[string]any{"locator": book.Locator, "cascade": cascade}),
		Status:      entities.AuditStatusSuccess,
	}
	s.LogAsync(event)
}

// LogPurge records removal of a deleted book's derived state.
func (s *Service) LogPurge(book entities.Book, locatorShared bool, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventPurge,
		Action:      "book_purge",
		Description: "Purged progress and annotations of " + book.Title,
		EntityType:  "book",
		EntityID:    book.ID,
		Metadata:    metadata(map[string]any{"locator": book.Locator, "locator_shared": locatorShared}),
		Status:      entities.AuditStatusSuccess,
	}
	withError(event, err)
	s.LogAsync(event)
}

// LogNote records a daily note change.
func (s *Service) LogNote(date string, length int) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventNote,
		Action:      "note_set",
		Description: fmt.Sprintf("Updated note for %s (%d chars)", date, length),
		EntityType:  "day",
		EntityID:    date,
		Status:      entities.AuditStatusSuccess,
	}
	s.LogAsync(event)
}

// LogReconcile records a daily index rebuild.
func (s *Service) LogReconcile(trigger string, days int, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventReconcile,
		Action:      "index_rebuild",
		Description: fmt.Sprintf("Rebuilt daily index (%s): %d days", trigger, days),
		Status:      entities.AuditStatusSuccess,
	}
	withError(event, err)
	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events, optionally filtered by type.
func (s *Service) GetEvents(eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(eventType, limit, offset)
}

// History returns every event recorded for one entity.
func (s *Service) History(entityType, entityID string) ([]entities.AuditEvent, error) {
	return s.repo.GetEventsForEntity(entityType, entityID)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func withError(event *entities.AuditEvent, err error) {
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
}

func metadata(fields map[string]any) string {
	data, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(data)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
