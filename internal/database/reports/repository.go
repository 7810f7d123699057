// Package reports provides the read-only queries behind the admin dashboard
// and the per-user loan views.
//
// Overdue status is never stored. Every query here derives it from the due
// date and the now value passed by the caller, comparing whole UTC days.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

const popularBooksLimit = 5

type PopularBook struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	BorrowCount int64  `json:"borrow_count"`
}

type Stats struct {
	TotalBooks   int64         `json:"totalBooks"`
	TotalUsers   int64         `json:"totalUsers"`
	ActiveLoans  int64         `json:"activeLoans"`
	OverdueBooks int64         `json:"overdueBooks"`
	PopularBooks []PopularBook `json:"popularBooks"`
}

// TransactionRow is one loan in the admin transaction list.
type TransactionRow struct {
	ID            uint                `json:"id"`
	BorrowDate    time.Time           `json:"borrow_date"`
	DueDate       time.Time           `json:"due_date"`
	ReturnDate    *time.Time          `json:"return_date"`
	Status        entities.LoanStatus `json:"status"`
	Username      string              `json:"username"`
	Email         string              `json:"email"`
	Title         string              `json:"title"`
	Author        string              `json:"author"`
	CurrentStatus entities.LoanStatus `json:"current_status"`
}

// OverdueRow is one active loan past its due day.
type OverdueRow struct {
	ID          uint      `json:"id"`
	UserID      uint      `json:"user_id"`
	BorrowDate  time.Time `json:"borrow_date"`
	DueDate     time.Time `json:"due_date"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	DaysOverdue float64   `json:"days_overdue"`
}

// LoanRow is one of a user's own loans.
type LoanRow struct {
	TransactionID uint                `json:"transaction_id"`
	BookID        uint                `json:"book_id"`
	BorrowDate    time.Time           `json:"borrow_date"`
	DueDate       time.Time           `json:"due_date"`
	ReturnDate    *time.Time          `json:"return_date"`
	Status        entities.LoanStatus `json:"status"`
	Title         string              `json:"title"`
	Author        string              `json:"author"`
	CoverImage    string              `json:"cover_image"`
	CurrentStatus entities.LoanStatus `json:"current_status"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Stats returns the admin dashboard counters. TotalUsers counts students only.
func (r *Repository) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	db := r.db.WithContext(ctx)
	stats := &Stats{PopularBooks: make([]PopularBook, 0, popularBooksLimit)}

	if err := db.Model(&entities.Book{}).Count(&stats.TotalBooks).Error; err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}
	if err := db.Model(&entities.User{}).Where("role = ?", entities.UserRoleStudent).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := db.Model(&entities.Transaction{}).Where("status = ?", entities.LoanStatusActive).Count(&stats.ActiveLoans).Error; err != nil {
		return nil, fmt.Errorf("count active loans: %w", err)
	}
	if err := r.overdueQuery(db, now).Count(&stats.OverdueBooks).Error; err != nil {
		return nil, fmt.Errorf("count overdue loans: %w", err)
	}

	err := db.Table("books AS b").
		Select("b.id, b.title, b.author, COUNT(t.id) AS borrow_count").
		Joins("LEFT JOIN transactions t ON t.book_id = b.id").
		Group("b.id, b.title, b.author").
		Order("borrow_count DESC").
		Order("b.id ASC").
		Limit(popularBooksLimit).
		Scan(&stats.PopularBooks).Error
	if err != nil {
		return nil, fmt.Errorf("popular books: %w", err)
	}

	return stats, nil
}

// AllTransactions lists every loan, newest borrow first.
func (r *Repository) AllTransactions(ctx context.Context, now time.Time) ([]TransactionRow, error) {
	var loans []entities.Transaction
	err := r.db.WithContext(ctx).
		Preload("User").Preload("Book").
		Order("borrow_date DESC").Order("id DESC").
		Find(&loans).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	rows := make([]TransactionRow, 0, len(loans))
	for i := range loans {
		loan := &loans[i]
		rows = append(rows, TransactionRow{
			ID:            loan.ID,
			BorrowDate:    loan.BorrowDate,
			DueDate:       loan.DueDate,
			ReturnDate:    loan.ReturnDate,
			Status:        loan.Status,
			Username:      loan.User.Username,
			Email:         loan.User.Email,
			Title:         loan.Book.Title,
			Author:        loan.Book.Author,
			CurrentStatus: loan.CurrentStatus(now),
		})
	}
	return rows, nil
}

// Overdue lists active loans whose due day is before today, most overdue first.
func (r *Repository) Overdue(ctx context.Context, now time.Time) ([]OverdueRow, error) {
	var loans []entities.Transaction
	err := r.overdueQuery(r.db.WithContext(ctx), now).
		Preload("User").Preload("Book").
		Order("due_date ASC").Order("id ASC").
		Find(&loans).Error
	if err != nil {
		return nil, fmt.Errorf("list overdue loans: %w", err)
	}

	rows := make([]OverdueRow, 0, len(loans))
	for i := range loans {
		loan := &loans[i]
		rows = append(rows, OverdueRow{
			ID:          loan.ID,
			UserID:      loan.UserID,
			BorrowDate:  loan.BorrowDate,
			DueDate:     loan.DueDate,
			Username:    loan.User.Username,
			Email:       loan.User.Email,
			Title:       loan.Book.Title,
			Author:      loan.Book.Author,
			DaysOverdue: loan.DaysOverdue(now),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].DaysOverdue > rows[j].DaysOverdue
	})
	return rows, nil
}

// MyBooks lists the user's active loans, soonest due first.
func (r *Repository) MyBooks(ctx context.Context, userID uint, now time.Time) ([]LoanRow, error) {
	var loans []entities.Transaction
	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ? AND status = ?", userID, entities.LoanStatusActive).
		Order("due_date ASC").Order("id ASC").
		Find(&loans).Error
	if err != nil {
		return nil, fmt.Errorf("list active loans for user %d: %w", userID, err)
	}
	return toLoanRows(loans, now), nil
}

// History lists every loan the user has ever made, newest borrow first.
func (r *Repository) History(ctx context.Context, userID uint, now time.Time) ([]LoanRow, error) {
	var loans []entities.Transaction
	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ?", userID).
		Order("borrow_date DESC").Order("id DESC").
		Find(&loans).Error
	if err != nil {
		return nil, fmt.Errorf("list loan history for user %d: %w", userID, err)
	}
	return toLoanRows(loans, now), nil
}

func (r *Repository) overdueQuery(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Model(&entities.Transaction{}).
		Where("status = ? AND due_date < ?", entities.LoanStatusActive, entities.StartOfDay(now))
}

func toLoanRows(loans []entities.Transaction, now time.Time) []LoanRow {
	rows := make([]LoanRow, 0, len(loans))
	for i := range loans {
		loan := &loans[i]
		rows = append(rows, LoanRow{
			TransactionID: loan.ID,
			BookID:        loan.BookID,
			BorrowDate:    loan.BorrowDate,
			DueDate:       loan.DueDate,
			ReturnDate:    loan.ReturnDate,
			Status:        loan.Status,
			Title:         loan.Book.Title,
			Author:        loan.Book.Author,
			CoverImage:    loan.Book.CoverImage,
			CurrentStatus: loan.CurrentStatus(now),
		})
	}
	return rows
}
