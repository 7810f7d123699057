package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/circulation"
	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

// ActionOverdueNotice is the action recorded once per overdue loan per scan day.
const ActionOverdueNotice = "overdue_notice"

// Service provides high-level audit logging functionality.
type Service struct {
	repo     *audit.Repository
	archiver *Archiver
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetArchiver makes DeleteOldEvents write expiring events to disk first.
func (s *Service) SetArchiver(a *Archiver) {
	s.archiver = a
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("[AUDIT] Failed to log %s event: %v", event.Action, err)
		}
	}()
}

// Wait blocks until every pending LogAsync write has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogLoan records a borrow, return or admin return attempt.
func (s *Service) LogLoan(e circulation.LoanEvent) {
	event := &entities.AuditEvent{
		UserID:    e.UserID,
		EventType: entities.AuditEventLoan,
		Action:    e.Action,
		Status:    entities.AuditStatusSuccess,
	}

	switch {
	case e.TransactionID != 0:
		id := e.TransactionID
		event.EntityType = "transaction"
		event.EntityID = &id
	case e.BookID != 0:
		id := e.BookID
		event.EntityType = "book"
		event.EntityID = &id
	}

	event.Description = loanDescription(e)
	event.Metadata = encodeMetadata(map[string]any{
		"book_id":        e.BookID,
		"transaction_id": e.TransactionID,
		"outcome":        e.Outcome,
	})

	if e.Err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(e.Err.Error(), 500)
	}

	s.LogAsync(event)
}

func loanDescription(e circulation.LoanEvent) string {
	title := e.BookTitle
	if title == "" {
		title = fmt.Sprintf("book %d", e.BookID)
	}
	switch e.Action {
	case "borrow":
		if e.Err != nil {
			return "Borrow of " + title + " rejected: " + e.Outcome
		}
		return "Borrowed " + title
	case "admin_return":
		if e.Err != nil {
			return fmt.Sprintf("Admin return of transaction %d failed: %s", e.TransactionID, e.Outcome)
		}
		return "Admin returned " + title
	default:
		if e.Err != nil {
			return fmt.Sprintf("Return of transaction %d failed: %s", e.TransactionID, e.Outcome)
		}
		return "Returned " + title
	}
}

// LogBookAdded records an admin catalog addition.
func (s *Service) LogBookAdded(userID uint, book *entities.Book, err error) {
	event := &entities.AuditEvent{
		UserID:     userID,
		EventType:  entities.AuditEventCatalog,
		Action:     "book_add",
		EntityType: "book",
		Status:     entities.AuditStatusSuccess,
	}

	if book != nil {
		event.Description = "Added book: " + book.Title
		if book.ID != 0 {
			id := book.ID
			event.EntityID = &id
		}
		event.Metadata = encodeMetadata(map[string]any{
			"isbn":         book.ISBN,
			"total_copies": book.TotalCopies,
		})
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(e auth.Event) {
	event := &entities.AuditEvent{
		UserID:    e.UserID,
		EventType: entities.AuditEventAuth,
		Action:    e.Action,
		IPAddress: e.IPAddress,
		UserAgent: truncate(e.UserAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}
	if e.Login != "" {
		event.Description = truncate(e.Action+" as "+e.Login, 500)
	}

	if e.Err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(e.Err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogOverdueNotice synchronously records that a loan was found overdue.
func (s *Service) LogOverdueNotice(loan *entities.Transaction, now time.Time) error {
	id := loan.ID
	event := &entities.AuditEvent{
		UserID:      loan.UserID,
		EventType:   entities.AuditEventOverdue,
		Action:      ActionOverdueNotice,
		Description: truncate(fmt.Sprintf("%s is overdue since %s", loan.Book.Title, loan.DueDate.UTC().Format("2006-01-02")), 500),
		EntityType:  "transaction",
		EntityID:    &id,
		Metadata: encodeMetadata(map[string]any{
			"book_id":      loan.BookID,
			"due_date":     loan.DueDate.UTC().Format(time.RFC3339),
			"days_overdue": loan.DaysOverdue(now),
		}),
		Status:    entities.AuditStatusSuccess,
		CreatedAt: now,
	}
	return s.repo.LogEvent(event)
}

// HasOverdueNotice reports whether a notice for the loan was already written since the given time.
func (s *Service) HasOverdueNotice(transactionID uint, since time.Time) (bool, error) {
	return s.repo.HasEvent(audit.EventFilter{
		EventType:  entities.AuditEventOverdue,
		EntityType: "transaction",
		EntityID:   transactionID,
		Since:      since,
	}, ActionOverdueNotice)
}

// LogMaintenance records the result of a background housekeeping run.
func (s *Service) LogMaintenance(action, description string, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventMaintenance,
		Action:      action,
		Description: truncate(description, 500),
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(filter audit.EventFilter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(filter, limit, offset)
}

// DeleteOldEvents removes events older than the retention period, archiving them first
// when an archiver is configured.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)

	if s.archiver != nil {
		expiring, err := s.repo.ListBefore(cutoff)
		if err != nil {
			return 0, fmt.Errorf("failed to list expiring audit events: %w", err)
		}
		if len(expiring) > 0 {
			if _, err := s.archiver.SaveJSON(expiring); err != nil {
				return 0, fmt.Errorf("failed to archive audit events: %w", err)
			}
		}
	}

	return s.repo.DeleteOldEvents(cutoff)
}

func encodeMetadata(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
