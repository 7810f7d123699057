package audit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/circulation"
	auditRepo "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return NewService(auditRepo.NewRepository(db)), db
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		UserID:      1,
		EventType:   entities.AuditEventMaintenance,
		Action:      "test_action",
		Description: "Test event",
		Status:      entities.AuditStatusSuccess,
	}

	require.NoError(t, svc.Log(event))

	var saved entities.AuditEvent
	require.NoError(t, db.First(&saved, event.ID).Error)
	assert.Equal(t, "test_action", saved.Action)
}

func TestService_LogLoan(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("successful borrow", func(t *testing.T) {
		svc.LogLoan(circulation.LoanEvent{
			Action:        "borrow",
			UserID:        2,
			BookID:        5,
			TransactionID: 11,
			BookTitle:     "Database Systems",
			Outcome:       circulation.OutcomeSuccess,
		})
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ?", "borrow").First(&event).Error)
		assert.Equal(t, entities.AuditEventLoan, event.EventType)
		assert.Equal(t, entities.AuditStatusSuccess, event.Status)
		assert.Equal(t, "transaction", event.EntityType)
		require.NotNil(t, event.EntityID)
		assert.Equal(t, uint(11), *event.EntityID)
		assert.Equal(t, "Borrowed Database Systems", event.Description)
		assert.Contains(t, event.Metadata, `"outcome":"success"`)
	})

	t.Run("rejected borrow", func(t *testing.T) {
		svc.LogLoan(circulation.LoanEvent{
			Action:  "borrow",
			UserID:  3,
			BookID:  6,
			Outcome: circulation.OutcomeLimitExceeded,
			Err:     circulation.ErrBorrowLimitExceeded,
		})
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ? AND user_id = ?", "borrow", 3).First(&event).Error)
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.Equal(t, "book", event.EntityType)
		assert.Equal(t, circulation.ErrBorrowLimitExceeded.Error(), event.ErrorMsg)
		assert.Equal(t, "Borrow of book 6 rejected: limit_exceeded", event.Description)
	})

	t.Run("admin return", func(t *testing.T) {
		svc.LogLoan(circulation.LoanEvent{
			Action:        "admin_return",
			UserID:        2,
			BookID:        5,
			TransactionID: 11,
			BookTitle:     "Database Systems",
			Outcome:       circulation.OutcomeSuccess,
		})
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ?", "admin_return").First(&event).Error)
		assert.Equal(t, "Admin returned Database Systems", event.Description)
	})
}

func TestService_LogBookAdded(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("added", func(t *testing.T) {
		svc.LogBookAdded(1, &entities.Book{ID: 9, Title: "Compilers", ISBN: "978-0321486813", TotalCopies: 2}, nil)
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ? AND status = ?", "book_add", entities.AuditStatusSuccess).First(&event).Error)
		assert.Equal(t, entities.AuditEventCatalog, event.EventType)
		require.NotNil(t, event.EntityID)
		assert.Equal(t, uint(9), *event.EntityID)
		assert.Contains(t, event.Metadata, `"total_copies":2`)
	})

	t.Run("validation failure without book", func(t *testing.T) {
		svc.LogBookAdded(1, nil, errors.New("Title, author, and genre are required"))
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ? AND status = ?", "book_add", entities.AuditStatusFailed).First(&event).Error)
		assert.Nil(t, event.EntityID)
		assert.Contains(t, event.ErrorMsg, "required")
	})
}

func TestService_LogAuth(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("successful login", func(t *testing.T) {
		svc.LogAuth(auth.Event{Action: "login", UserID: 1, Login: "admin", IPAddress: "192.168.1.1", UserAgent: "Mozilla/5.0"})
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ? AND user_id = ?", "login", 1).First(&event).Error)
		assert.Equal(t, entities.AuditStatusSuccess, event.Status)
		assert.Equal(t, "192.168.1.1", event.IPAddress)
		assert.Equal(t, "login as admin", event.Description)
	})

	t.Run("failed login", func(t *testing.T) {
		svc.LogAuth(auth.Event{Action: "login", Login: "ghost", IPAddress: "10.0.0.1", Err: auth.ErrInvalidPassword})
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ? AND user_id = ?", "login", 0).First(&event).Error)
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.NotEmpty(t, event.ErrorMsg)
	})
}

func TestService_OverdueNotice(t *testing.T) {
	svc, _ := setupTestService(t)
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	loan := &entities.Transaction{
		ID:      4,
		UserID:  2,
		BookID:  7,
		DueDate: now.Add(-36 * time.Hour),
		Status:  entities.LoanStatusActive,
		Book:    entities.Book{ID: 7, Title: "Quantum Mechanics"},
	}

	found, err := svc.HasOverdueNotice(loan.ID, entities.StartOfDay(now))
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, svc.LogOverdueNotice(loan, now))

	found, err = svc.HasOverdueNotice(loan.ID, entities.StartOfDay(now))
	require.NoError(t, err)
	assert.True(t, found)

	found, err = svc.HasOverdueNotice(loan.ID, entities.StartOfDay(now).Add(24*time.Hour))
	require.NoError(t, err)
	assert.False(t, found, "a notice from yesterday does not count for today")

	events, total, err := svc.GetEvents(auditRepo.EventFilter{EventType: entities.AuditEventOverdue}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, events, 1)
	assert.Equal(t, "Quantum Mechanics is overdue since 2026-03-08", events[0].Description)
	assert.Contains(t, events[0].Metadata, `"days_overdue":1.5`)
}

func TestService_LogMaintenance(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogMaintenance("audit_cleanup", "Deleted 3 audit events", nil)
	svc.Wait()

	var event entities.AuditEvent
	require.NoError(t, db.Where("action = ?", "audit_cleanup").First(&event).Error)
	assert.Equal(t, entities.AuditEventMaintenance, event.EventType)
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, db := setupTestService(t)

	require.NoError(t, db.Create(&entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventLoan,
		Action:    "old",
		Status:    entities.AuditStatusSuccess,
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	}).Error)
	require.NoError(t, db.Create(&entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventLoan,
		Action:    "new",
		Status:    entities.AuditStatusSuccess,
		CreatedAt: time.Now().UTC(),
	}).Error)

	archiveDir := filepath.Join(t.TempDir(), "archive")
	svc.SetArchiver(NewArchiver(archiveDir))

	deleted, err := svc.DeleteOldEvents(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []entities.AuditEvent
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "new", remaining[0].Action)

	files, err := os.ReadDir(archiveDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	content, err := os.ReadFile(filepath.Join(archiveDir, files[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), `"action": "old"`)
}

func TestService_DeleteOldEvents_NothingToArchive(t *testing.T) {
	svc, _ := setupTestService(t)
	archiveDir := filepath.Join(t.TempDir(), "archive")
	svc.SetArchiver(NewArchiver(archiveDir))

	deleted, err := svc.DeleteOldEvents(24 * time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	_, err = os.Stat(archiveDir)
	assert.True(t, os.IsNotExist(err))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))

	// "é" is two bytes; a cut at byte 7 would split it.
	got := truncate("abcdefé-long-title", 10)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "abcdef...", got)

	got = truncate("Привет, библиотека", 10)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 10)
}
