package circulation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mrlokans/library/internal/entities"
)

// memoryStore serialises units of work behind a mutex and restores a snapshot
// when fn fails.
type memoryStore struct {
	mu     sync.Mutex
	books  map[uint]entities.Book
	users  map[uint]entities.User
	loans  map[uint]entities.Transaction
	nextID uint

	failOn string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		books: make(map[uint]entities.Book),
		users: make(map[uint]entities.User),
		loans: make(map[uint]entities.Transaction),
	}
}

func (m *memoryStore) addBook(id uint, title string, copies int) {
	m.books[id] = entities.Book{ID: id, Title: title, TotalCopies: copies, AvailableCopies: copies, Available: copies > 0}
}

func (m *memoryStore) addUser(id uint, username string) {
	m.users[id] = entities.User{ID: id, Username: username, Role: entities.UserRoleStudent}
}

func (m *memoryStore) InTx(_ context.Context, fn func(Ledger) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	books := make(map[uint]entities.Book, len(m.books))
	for k, v := range m.books {
		books[k] = v
	}
	loans := make(map[uint]entities.Transaction, len(m.loans))
	for k, v := range m.loans {
		loans[k] = v
	}
	nextID := m.nextID

	if err := fn(&memoryLedger{m: m}); err != nil {
		m.books = books
		m.loans = loans
		m.nextID = nextID
		return err
	}
	return nil
}

var errInjected = errors.New("injected failure")

type memoryLedger struct {
	m *memoryStore
}

func (l *memoryLedger) fail(op string) error {
	if l.m.failOn == op {
		return errInjected
	}
	return nil
}

func (l *memoryLedger) CountActiveLoans(userID uint) (int64, error) {
	var n int64
	for _, loan := range l.m.loans {
		if loan.UserID == userID && loan.Status == entities.LoanStatusActive {
			n++
		}
	}
	return n, nil
}

func (l *memoryLedger) FindAvailableBook(bookID uint) (*entities.Book, error) {
	book, ok := l.m.books[bookID]
	if !ok || book.AvailableCopies <= 0 {
		return nil, nil
	}
	return &book, nil
}

func (l *memoryLedger) HasActiveLoan(userID, bookID uint) (bool, error) {
	for _, loan := range l.m.loans {
		if loan.UserID == userID && loan.BookID == bookID && loan.Status == entities.LoanStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (l *memoryLedger) TakeCopy(bookID uint) (bool, error) {
	book, ok := l.m.books[bookID]
	if !ok || book.AvailableCopies <= 0 {
		return false, nil
	}
	book.AvailableCopies--
	book.SyncAvailability()
	l.m.books[bookID] = book
	return true, nil
}

func (l *memoryLedger) CreateLoan(loan *entities.Transaction) error {
	if err := l.fail("CreateLoan"); err != nil {
		return err
	}
	l.m.nextID++
	loan.ID = l.m.nextID
	l.m.loans[loan.ID] = *loan
	return nil
}

func (l *memoryLedger) FindActiveLoan(transactionID uint, userID *uint) (*entities.Transaction, error) {
	loan, ok := l.m.loans[transactionID]
	if !ok || loan.Status != entities.LoanStatusActive {
		return nil, nil
	}
	if userID != nil && loan.UserID != *userID {
		return nil, nil
	}
	loan.Book = l.m.books[loan.BookID]
	loan.User = l.m.users[loan.UserID]
	return &loan, nil
}

func (l *memoryLedger) CloseLoan(transactionID uint, returnedAt time.Time) (bool, error) {
	loan, ok := l.m.loans[transactionID]
	if !ok || loan.Status != entities.LoanStatusActive {
		return false, nil
	}
	loan.Status = entities.LoanStatusReturned
	loan.ReturnDate = &returnedAt
	l.m.loans[transactionID] = loan
	return true, nil
}

func (l *memoryLedger) ReleaseCopy(bookID uint) (bool, error) {
	if err := l.fail("ReleaseCopy"); err != nil {
		return false, err
	}
	book, ok := l.m.books[bookID]
	if !ok || book.AvailableCopies >= book.TotalCopies {
		return false, nil
	}
	book.AvailableCopies++
	book.SyncAvailability()
	l.m.books[bookID] = book
	return true, nil
}

type recordedCall struct {
	kind    string
	outcome string
	actor   string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) RecordBorrow(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{kind: "borrow", outcome: outcome})
}

func (r *fakeRecorder) RecordReturn(outcome, actor string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{kind: "return", outcome: outcome, actor: actor})
}

type fakeAuditor struct {
	mu     sync.Mutex
	events []LoanEvent
}

func (a *fakeAuditor) LogLoan(event LoanEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}
