package circulation

import (
	"context"
	"time"

	"github.com/mrlokans/library/internal/entities"
)

// Store runs a unit of work atomically. If fn returns an error, none of its
// writes are kept.
type Store interface {
	InTx(ctx context.Context, fn func(Ledger) error) error
}

// Ledger is the set of reads and writes available inside a unit of work.
type Ledger interface {
	// CountActiveLoans counts the user's loans with status active.
	CountActiveLoans(userID uint) (int64, error)

	// FindAvailableBook returns the book if it has a copy on the shelf, or nil.
	FindAvailableBook(bookID uint) (*entities.Book, error)

	// HasActiveLoan reports whether the user already has this book out.
	HasActiveLoan(userID, bookID uint) (bool, error)

	// TakeCopy decrements the available copies if at least one remains.
	// It returns false when no copy was left to take.
	TakeCopy(bookID uint) (bool, error)

	// CreateLoan inserts a new loan and sets its ID.
	CreateLoan(loan *entities.Transaction) error

	// FindActiveLoan returns the active loan with its Book and User loaded, or nil.
	// A non-nil userID restricts the lookup to that user's loans.
	FindActiveLoan(transactionID uint, userID *uint) (*entities.Transaction, error)

	// CloseLoan marks an active loan returned. It returns false if the loan
	// was no longer active.
	CloseLoan(transactionID uint, returnedAt time.Time) (bool, error)

	// ReleaseCopy puts one copy back on the shelf. It returns false if the
	// book already has all of its copies available.
	ReleaseCopy(bookID uint) (bool, error)
}
