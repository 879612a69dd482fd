package audit

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	auditRepo "github.com/mrlokans/readtrack/internal/database/audit"
	"github.com/mrlokans/readtrack/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")+"?_busy_timeout=5000"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	repo := auditRepo.NewRepository(db)
	svc := NewService(repo)

	return svc, db
}

var book = entities.Book{ID: "7", Title: "Dune", Locator: "file:///books/dune.pdf", Format: entities.BookFormatPDF}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		EventType:   entities.AuditEventImport,
		Action:      "test_import",
		Description: "Test import event",
		Status:      entities.AuditStatusSuccess,
	}

	err := svc.Log(event)
	require.NoError(t, err)

	var saved entities.AuditEvent
	err = db.First(&saved, event.ID).Error
	require.NoError(t, err)
	assert.Equal(t, "test_import", saved.Action)
}

func TestService_LogImport(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("successful import", func(t *testing.T) {
		svc.LogImport(book, "api", nil)
		svc.Wait()

		var event entities.AuditEvent
		err := db.Where("action = ?", "api_import").First(&event).Error
		require.NoError(t, err)
		assert.Equal(t, entities.AuditStatusSuccess, event.Status)
		assert.Equal(t, "Imported Dune", event.Description)
		assert.Equal(t, "7", event.EntityID)
		assert.Contains(t, event.Metadata, `"format":"pdf"`)
	})

	t.Run("failed import", func(t *testing.T) {
		svc.LogImport(entities.Book{Title: "broken.txt"}, "inbox", errors.New("disk full"))
		svc.Wait()

		var event entities.AuditEvent
		err := db.Where("action = ?", "inbox_import").First(&event).Error
		require.NoError(t, err)
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.Contains(t, event.ErrorMsg, "disk full")
	})
}

func TestService_LogDeleteAndPurge(t *testing.T) {
	svc, _ := setupTestService(t)

	svc.LogDelete(book, "purge")
	svc.LogPurge(book, false, nil)
	svc.Wait()

	history, err := svc.History("book", "7")
	require.NoError(t, err)
	require.Len(t, history, 2)

	actions := []string{history[0].Action, history[1].Action}
	assert.ElementsMatch(t, []string{"book_delete", "book_purge"}, actions)
}

func TestService_LogNoteAndReconcile(t *testing.T) {
	svc, _ := setupTestService(t)

	svc.LogNote("2026-05-01", 12)
	svc.LogReconcile("schedule", 30, nil)
	svc.Wait()

	notes, total, err := svc.GetEvents(entities.AuditEventNote, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "2026-05-01", notes[0].EntityID)

	_, total, err = svc.GetEvents("", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, db := setupTestService(t)

	old := &entities.AuditEvent{EventType: entities.AuditEventNote, Action: "old", CreatedAt: time.Now().Add(-48 * time.Hour)}
	require.NoError(t, db.Create(old).Error)
	require.NoError(t, svc.Log(&entities.AuditEvent{EventType: entities.AuditEventNote, Action: "new"}))

	deleted, err := svc.DeleteOldEvents(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	long := strings.Repeat("a", 600)
	got := truncate(long, 500)
	assert.Len(t, got, 500)
	assert.True(t, strings.HasSuffix(got, "..."))
}
