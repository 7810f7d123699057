// Package loans implements circulation.Store on top of GORM.
//
// Every unit of work runs inside one database transaction. Copy counts are
// changed with conditional UPDATE statements, and the caller inspects the
// affected row count, so two borrowers racing for the last copy cannot both win.
package loans

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/circulation"
	"github.com/mrlokans/library/internal/entities"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// InTx runs fn in a transaction that is rolled back when fn returns an error.
func (s *Store) InTx(ctx context.Context, fn func(circulation.Ledger) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledger{tx: tx})
	})
}

type ledger struct {
	tx *gorm.DB
}

func (l *ledger) CountActiveLoans(userID uint) (int64, error) {
	var count int64
	err := l.tx.Model(&entities.Transaction{}).
		Where("user_id = ? AND status = ?", userID, entities.LoanStatusActive).
		Count(&count).Error
	return count, err
}

func (l *ledger) FindAvailableBook(bookID uint) (*entities.Book, error) {
	var book entities.Book
	err := l.tx.Where("id = ? AND available_copies > 0", bookID).Take(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (l *ledger) HasActiveLoan(userID, bookID uint) (bool, error) {
	var count int64
	err := l.tx.Model(&entities.Transaction{}).
		Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, entities.LoanStatusActive).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (l *ledger) TakeCopy(bookID uint) (bool, error) {
	// SET expressions see the pre-update row, so both use the old count.
	result := l.tx.Model(&entities.Book{}).
		Where("id = ? AND available_copies > 0", bookID).
		Updates(map[string]interface{}{
			"available_copies": gorm.Expr("available_copies - 1"),
			"available":        gorm.Expr("available_copies - 1 > 0"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (l *ledger) CreateLoan(loan *entities.Transaction) error {
	return l.tx.Create(loan).Error
}

func (l *ledger) FindActiveLoan(transactionID uint, userID *uint) (*entities.Transaction, error) {
	query := l.tx.Preload("Book").Preload("User").
		Where("id = ? AND status = ?", transactionID, entities.LoanStatusActive)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var loan entities.Transaction
	err := query.Take(&loan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (l *ledger) CloseLoan(transactionID uint, returnedAt time.Time) (bool, error) {
	result := l.tx.Model(&entities.Transaction{}).
		Where("id = ? AND status = ?", transactionID, entities.LoanStatusActive).
		Updates(map[string]interface{}{
			"status":      entities.LoanStatusReturned,
			"return_date": returnedAt.UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (l *ledger) ReleaseCopy(bookID uint) (bool, error) {
	result := l.tx.Model(&entities.Book{}).
		Where("id = ? AND available_copies < total_copies", bookID).
		Updates(map[string]interface{}{
			"available_copies": gorm.Expr("available_copies + 1"),
			"available":        true,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListOverdue returns active loans whose due day is before today, with book and user loaded.
func (s *Store) ListOverdue(ctx context.Context, now time.Time) ([]entities.Transaction, error) {
	var loans []entities.Transaction
	err := s.db.WithContext(ctx).
		Preload("Book").Preload("User").
		Where("status = ? AND due_date < ?", entities.LoanStatusActive, entities.StartOfDay(now)).
		Order("due_date ASC").Order("id ASC").
		Find(&loans).Error
	return loans, err
}
