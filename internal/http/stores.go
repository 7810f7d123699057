package http

import (
	"context"
	"time"

	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/circulation"
	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/reports"
	"github.com/mrlokans/library/internal/entities"
)

// This file collects the interfaces HTTP controllers depend on.
// Each controller takes only what it uses.

// LoanService runs the borrow and return workflows.
type LoanService interface {
	Borrow(ctx context.Context, userID, bookID uint) (*circulation.Receipt, error)
	Return(ctx context.Context, userID, transactionID uint) (*circulation.ReturnReceipt, error)
	AdminReturn(ctx context.Context, transactionID uint) (*circulation.ReturnReceipt, error)
	Policy() circulation.Policy
}

// LoanReports lists loans for the signed-in user.
type LoanReports interface {
	MyBooks(ctx context.Context, userID uint, now time.Time) ([]reports.LoanRow, error)
	History(ctx context.Context, userID uint, now time.Time) ([]reports.LoanRow, error)
}

// AdminReports provides the admin dashboard queries.
type AdminReports interface {
	Stats(ctx context.Context, now time.Time) (*reports.Stats, error)
	AllTransactions(ctx context.Context, now time.Time) ([]reports.TransactionRow, error)
	Overdue(ctx context.Context, now time.Time) ([]reports.OverdueRow, error)
}

// CatalogService reads and extends the catalog.
type CatalogService interface {
	ListBooks(ctx context.Context, search, genre string) ([]entities.Book, error)
	Genres(ctx context.Context) ([]string, error)
	GetBook(ctx context.Context, id uint) (*entities.Book, error)
	CreateBook(ctx context.Context, userID uint, input catalog.BookInput) (*entities.Book, error)
}

// CoverCache resolves a cover URL to a local file.
type CoverCache interface {
	Path(ctx context.Context, bookID uint, coverURL string) (string, error)
}

// AuditReader pages through the audit trail.
type AuditReader interface {
	GetEvents(filter audit.EventFilter, limit, offset int) ([]entities.AuditEvent, int64, error)
}

// LoanGauges is refreshed whenever the admin dashboard loads.
type LoanGauges interface {
	SetActiveLoans(n int64)
	SetOverdueLoans(n int64)
}
