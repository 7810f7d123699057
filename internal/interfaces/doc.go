// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Loan Workflow
//
//   - circulation.Store: Runs a borrow or return inside one database transaction (internal/circulation/store.go)
//   - circulation.Ledger: The conditional reads and writes available inside that transaction
//   - circulation.Recorder: Workflow outcome and latency metrics (internal/metrics)
//   - circulation.Auditor: Loan audit trail (internal/audit)
//
// ## Data Access Interfaces
//
//   - catalog.BookStore: Book creation and listing (internal/database/books)
//   - auth.UserStore: Accounts and login bookkeeping (internal/database/users)
//   - http.LoanReports, http.AdminReports: Read models for the member and admin views (internal/database/reports)
//
// ## Background Work
//
//   - tasks.OverdueLister, tasks.OverdueNotifier: Daily overdue scan
//   - tasks.AuditEventCleaner: Audit retention
//   - tasks.CoverEnricher, catalog.CoverQueue: Cover lookups from OpenLibrary
//   - scheduler.Enqueuer: Cron jobs that put the above on the task queue
//
// ## External Service Interfaces
//
//   - metadata.MetadataProvider: Book metadata from external APIs (internal/metadata/enricher.go)
//   - http.CoverCache: Local copies of cover images (internal/covers)
//
// # Replacing the Loan Store
//
// The loan workflow never touches gorm directly. To back it with another database:
//
//  1. Implement circulation.Store so InTx runs fn in one transaction:
//
//     type PostgresStore struct { db *sql.DB }
//
//     func (s *PostgresStore) InTx(ctx context.Context, fn func(circulation.Ledger) error) error
//
//  2. Make TakeCopy, CloseLoan and ReleaseCopy conditional updates that report
//     whether a row changed. The service relies on that to reject races.
//
//  3. Add a compile-time check:
//
//     var _ circulation.Store = (*PostgresStore)(nil)
//
// # Adding a New Metadata Provider
//
// To add a new source of book covers (e.g., Google Books):
//
//  1. Implement MetadataProvider in internal/metadata/
//
//     func (c *GoogleBooksClient) SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
//     func (c *GoogleBooksClient) SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error)
//
//  2. Pass it to metadata.NewCoverEnricher in entrypoint.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
