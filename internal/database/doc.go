// Package database provides the data access layer for the library.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── seed.go          # Sample accounts and catalog
//	├── books/           # Catalog reads and inserts
//	├── loans/           # Transactional borrow/return ledger
//	├── reports/         # Read-only reporting queries
//	├── audit/           # Audit event persistence
//	├── settings/        # Key/value application state
//	└── users/           # Credential store
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./library.db")
//
//	booksRepo := books.NewRepository(db.DB)
//	loanStore := loans.NewStore(db.DB)
//	reportsRepo := reports.NewRepository(db.DB)
//
// # Concurrency
//
// Connections are opened with _txlock=immediate, so every GORM transaction
// starts with BEGIN IMMEDIATE and concurrent writers queue on the busy
// timeout instead of interleaving their reads and writes. All timestamps are
// stored in UTC so that text comparisons on date columns stay ordered.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add a compile-time interface check in internal/interfaces
package database
