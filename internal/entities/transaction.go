package entities

import "time"

type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "active"
	LoanStatusReturned LoanStatus = "returned"

	// LoanStatusOverdue is never stored. It is derived from an active loan's due date.
	LoanStatusOverdue LoanStatus = "overdue"
)

// Transaction is a single loan of one copy of a book to one user.
// Rows are never deleted; status only moves from active to returned.
type Transaction struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index:idx_transactions_user_status" json:"user_id"`
	BookID     uint       `gorm:"not null;index" json:"book_id"`
	BorrowDate time.Time  `gorm:"not null;index" json:"borrow_date"`
	DueDate    time.Time  `gorm:"not null;index" json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	Status     LoanStatus `gorm:"size:16;not null;default:active;index:idx_transactions_user_status;check:status IN ('active','returned')" json:"status"`

	User User `gorm:"foreignKey:UserID" json:"-"`
	Book Book `gorm:"foreignKey:BookID" json:"-"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// IsOverdue compares calendar days in UTC, so a loan due today is not overdue yet.
func (t *Transaction) IsOverdue(now time.Time) bool {
	if t.Status != LoanStatusActive {
		return false
	}
	return StartOfDay(t.DueDate).Before(StartOfDay(now))
}

// CurrentStatus returns the stored status, or overdue for an active loan past its due day.
func (t *Transaction) CurrentStatus(now time.Time) LoanStatus {
	if t.IsOverdue(now) {
		return LoanStatusOverdue
	}
	return t.Status
}

// DaysOverdue is the fractional number of days elapsed since the due date.
// It is negative while the loan is not yet due.
func (t *Transaction) DaysOverdue(now time.Time) float64 {
	return now.Sub(t.DueDate).Hours() / 24
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
