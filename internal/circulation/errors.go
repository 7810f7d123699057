package circulation

import "errors"

var (
	ErrAuthRequired        = errors.New("authentication required")
	ErrBorrowLimitExceeded = errors.New("borrow limit reached")
	ErrBookUnavailable     = errors.New("book not available for borrowing")
	ErrDuplicateBorrow     = errors.New("book already borrowed by this user")
	ErrTransactionNotFound = errors.New("transaction not found or already returned")
)

// Outcome labels used for metrics and audit metadata.
const (
	OutcomeSuccess       = "success"
	OutcomeAuthRequired  = "auth_required"
	OutcomeLimitExceeded = "limit_exceeded"
	OutcomeUnavailable   = "unavailable"
	OutcomeDuplicate     = "duplicate"
	OutcomeNotFound      = "not_found"
	OutcomeError         = "error"
)

// Outcome classifies a workflow result into a stable label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrAuthRequired):
		return OutcomeAuthRequired
	case errors.Is(err, ErrBorrowLimitExceeded):
		return OutcomeLimitExceeded
	case errors.Is(err, ErrBookUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, ErrDuplicateBorrow):
		return OutcomeDuplicate
	case errors.Is(err, ErrTransactionNotFound):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}

// IsRejection reports whether err is a business rule rejection rather than a failure.
func IsRejection(err error) bool {
	switch Outcome(err) {
	case OutcomeSuccess, OutcomeError:
		return false
	default:
		return true
	}
}
