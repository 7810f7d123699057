// Package circulation implements the borrow and return workflow.
//
// A borrow moves one copy of a book from the shelf to a user; a return moves it
// back. Both run as a single unit of work against a Store, which the caller
// injects:
//
//	store := loans.NewStore(db.DB)
//	svc := circulation.NewService(store, circulation.DefaultPolicy())
//	receipt, err := svc.Borrow(ctx, userID, bookID)
//
// Eligibility checks run in a fixed order and the first failure wins:
//
//  1. ErrAuthRequired         no user on the request
//  2. ErrBorrowLimitExceeded  the user already holds MaxActiveLoans books
//  3. ErrBookUnavailable      the book is missing or has no copies left
//  4. ErrDuplicateBorrow      the user already has this book out
//
// Returns fail with ErrTransactionNotFound when the loan does not exist, is
// already returned, or belongs to another user on the non-admin path.
//
// The copy decrement is conditional on a copy still being available, and the
// loan close is conditional on the loan still being active. A lost race on
// either therefore surfaces as ErrBookUnavailable or ErrTransactionNotFound
// rather than corrupting the counts.
package circulation
