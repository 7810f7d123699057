package circulation

import (
	"context"
	"fmt"
	"time"

	"github.com/mrlokans/library/internal/entities"
)

// Actor labels for returns.
const (
	ActorUser  = "user"
	ActorAdmin = "admin"
)

// Policy holds the loan rules applied to every borrow.
type Policy struct {
	MaxActiveLoans int
	LoanPeriod     time.Duration
}

// DefaultPolicy allows three concurrent loans of seven days each.
func DefaultPolicy() Policy {
	return Policy{
		MaxActiveLoans: 3,
		LoanPeriod:     7 * 24 * time.Hour,
	}
}

// Recorder receives the outcome and latency of each workflow call.
type Recorder interface {
	RecordBorrow(outcome string, elapsed time.Duration)
	RecordReturn(outcome, actor string, elapsed time.Duration)
}

// Auditor receives loan events after the unit of work has finished.
type Auditor interface {
	LogLoan(event LoanEvent)
}

// LoanEvent describes one borrow or return attempt.
type LoanEvent struct {
	Action        string // "borrow", "return" or "admin_return"
	UserID        uint
	BookID        uint
	TransactionID uint
	BookTitle     string
	Outcome       string
	Err           error
}

// Receipt is the result of a successful borrow.
type Receipt struct {
	TransactionID uint
	BookID        uint
	BookTitle     string
	BorrowDate    time.Time
	DueDate       time.Time
}

// ReturnReceipt is the result of a successful return.
type ReturnReceipt struct {
	TransactionID uint
	BookID        uint
	BookTitle     string
	UserID        uint
	Username      string
	ReturnedAt    time.Time
}

type Service struct {
	store    Store
	policy   Policy
	now      func() time.Time
	recorder Recorder
	auditor  Auditor
}

func NewService(store Store, policy Policy) *Service {
	if policy.MaxActiveLoans <= 0 || policy.LoanPeriod <= 0 {
		defaults := DefaultPolicy()
		if policy.MaxActiveLoans <= 0 {
			policy.MaxActiveLoans = defaults.MaxActiveLoans
		}
		if policy.LoanPeriod <= 0 {
			policy.LoanPeriod = defaults.LoanPeriod
		}
	}
	return &Service{
		store:  store,
		policy: policy,
		now:    time.Now,
	}
}

// SetClock replaces the time source used for borrow, due and return dates.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetRecorder sets the metrics recorder. Nil disables recording.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// SetAuditor sets the audit sink. Nil disables auditing.
func (s *Service) SetAuditor(a Auditor) {
	s.auditor = a
}

func (s *Service) Policy() Policy {
	return s.policy
}

// Borrow lends one copy of bookID to userID.
func (s *Service) Borrow(ctx context.Context, userID, bookID uint) (*Receipt, error) {
	start := time.Now()
	receipt, title, err := s.borrow(ctx, userID, bookID)

	outcome := Outcome(err)
	if s.recorder != nil {
		s.recorder.RecordBorrow(outcome, time.Since(start))
	}
	if s.auditor != nil {
		event := LoanEvent{
			Action:    "borrow",
			UserID:    userID,
			BookID:    bookID,
			BookTitle: title,
			Outcome:   outcome,
			Err:       err,
		}
		if receipt != nil {
			event.TransactionID = receipt.TransactionID
		}
		s.auditor.LogLoan(event)
	}
	return receipt, err
}

func (s *Service) borrow(ctx context.Context, userID, bookID uint) (*Receipt, string, error) {
	if userID == 0 {
		return nil, "", ErrAuthRequired
	}

	now := s.now().UTC()
	var receipt *Receipt
	var title string

	err := s.store.InTx(ctx, func(l Ledger) error {
		active, err := l.CountActiveLoans(userID)
		if err != nil {
			return fmt.Errorf("failed to count active loans: %w", err)
		}
		if active >= int64(s.policy.MaxActiveLoans) {
			return ErrBorrowLimitExceeded
		}

		book, err := l.FindAvailableBook(bookID)
		if err != nil {
			return fmt.Errorf("failed to load book %d: %w", bookID, err)
		}
		if book == nil {
			return ErrBookUnavailable
		}
		title = book.Title

		duplicate, err := l.HasActiveLoan(userID, bookID)
		if err != nil {
			return fmt.Errorf("failed to check existing loan: %w", err)
		}
		if duplicate {
			return ErrDuplicateBorrow
		}

		taken, err := l.TakeCopy(bookID)
		if err != nil {
			return fmt.Errorf("failed to take copy of book %d: %w", bookID, err)
		}
		if !taken {
			return ErrBookUnavailable
		}

		loan := &entities.Transaction{
			UserID:     userID,
			BookID:     bookID,
			BorrowDate: now,
			DueDate:    now.Add(s.policy.LoanPeriod),
			Status:     entities.LoanStatusActive,
		}
		if err := l.CreateLoan(loan); err != nil {
			return fmt.Errorf("failed to create loan: %w", err)
		}

		receipt = &Receipt{
			TransactionID: loan.ID,
			BookID:        bookID,
			BookTitle:     book.Title,
			BorrowDate:    loan.BorrowDate,
			DueDate:       loan.DueDate,
		}
		return nil
	})
	if err != nil {
		return nil, title, err
	}
	return receipt, title, nil
}

// Return closes one of the user's own active loans.
func (s *Service) Return(ctx context.Context, userID, transactionID uint) (*ReturnReceipt, error) {
	start := time.Now()
	var receipt *ReturnReceipt
	var err error
	if userID == 0 {
		err = ErrAuthRequired
	} else {
		receipt, err = s.closeLoan(ctx, transactionID, &userID)
	}
	s.finishReturn("return", ActorUser, userID, transactionID, receipt, err, start)
	return receipt, err
}

// AdminReturn closes any active loan regardless of who holds it.
func (s *Service) AdminReturn(ctx context.Context, transactionID uint) (*ReturnReceipt, error) {
	start := time.Now()
	receipt, err := s.closeLoan(ctx, transactionID, nil)
	var userID uint
	if receipt != nil {
		userID = receipt.UserID
	}
	s.finishReturn("admin_return", ActorAdmin, userID, transactionID, receipt, err, start)
	return receipt, err
}

func (s *Service) finishReturn(action, actor string, userID, transactionID uint, receipt *ReturnReceipt, err error, start time.Time) {
	outcome := Outcome(err)
	if s.recorder != nil {
		s.recorder.RecordReturn(outcome, actor, time.Since(start))
	}
	if s.auditor == nil {
		return
	}
	event := LoanEvent{
		Action:        action,
		UserID:        userID,
		TransactionID: transactionID,
		Outcome:       outcome,
		Err:           err,
	}
	if receipt != nil {
		event.BookID = receipt.BookID
		event.BookTitle = receipt.BookTitle
	}
	s.auditor.LogLoan(event)
}

func (s *Service) closeLoan(ctx context.Context, transactionID uint, userID *uint) (*ReturnReceipt, error) {
	now := s.now().UTC()
	var receipt *ReturnReceipt

	err := s.store.InTx(ctx, func(l Ledger) error {
		loan, err := l.FindActiveLoan(transactionID, userID)
		if err != nil {
			return fmt.Errorf("failed to load loan %d: %w", transactionID, err)
		}
		if loan == nil {
			return ErrTransactionNotFound
		}

		closed, err := l.CloseLoan(transactionID, now)
		if err != nil {
			return fmt.Errorf("failed to close loan %d: %w", transactionID, err)
		}
		if !closed {
			return ErrTransactionNotFound
		}

		released, err := l.ReleaseCopy(loan.BookID)
		if err != nil {
			return fmt.Errorf("failed to release copy of book %d: %w", loan.BookID, err)
		}
		if !released {
			return fmt.Errorf("book %d already has all copies available", loan.BookID)
		}

		receipt = &ReturnReceipt{
			TransactionID: loan.ID,
			BookID:        loan.BookID,
			BookTitle:     loan.Book.Title,
			UserID:        loan.UserID,
			Username:      loan.User.Username,
			ReturnedAt:    now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
