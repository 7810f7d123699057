package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/circulation"
)

type borrowRequest struct {
	BookID uint `json:"bookId"`
}

type returnRequest struct {
	TransactionID uint `json:"transactionId"`
}

// LoansController serves the borrow and return workflows and the member loan lists.
type LoansController struct {
	loans   LoanService
	reports LoanReports
	now     func() time.Time
}

func NewLoansController(loans LoanService, reports LoanReports) *LoansController {
	return &LoansController{
		loans:   loans,
		reports: reports,
		now:     time.Now,
	}
}

// Borrow lends a copy of a book to the signed-in user.
// POST /api/borrow
func (lc *LoansController) Borrow(c *gin.Context) {
	var req borrowRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BookID == 0 {
		respondBadRequest(c, "Book ID is required")
		return
	}

	receipt, err := lc.loans.Borrow(c.Request.Context(), auth.GetUserID(c), req.BookID)
	if err != nil {
		lc.respondWorkflowError(c, err, "borrow")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Book borrowed successfully",
		"transactionId": receipt.TransactionID,
		"dueDate":       receipt.DueDate,
	})
}

// Return closes one of the signed-in user's active loans.
// POST /api/return
func (lc *LoansController) Return(c *gin.Context) {
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TransactionID == 0 {
		respondBadRequest(c, "Transaction ID is required")
		return
	}

	receipt, err := lc.loans.Return(c.Request.Context(), auth.GetUserID(c), req.TransactionID)
	if err != nil {
		lc.respondWorkflowError(c, err, "return")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Book returned successfully",
		"bookTitle": receipt.BookTitle,
	})
}

// AdminReturn closes any active loan regardless of who holds it.
// POST /api/admin/return
func (lc *LoansController) AdminReturn(c *gin.Context) {
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TransactionID == 0 {
		respondBadRequest(c, "Transaction ID is required")
		return
	}

	receipt, err := lc.loans.AdminReturn(c.Request.Context(), req.TransactionID)
	if err != nil {
		lc.respondWorkflowError(c, err, "admin return")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Book returned successfully",
		"bookTitle": receipt.BookTitle,
		"username":  receipt.Username,
	})
}

// MyBooks lists the signed-in user's active loans with their derived status.
// GET /api/my-books
func (lc *LoansController) MyBooks(c *gin.Context) {
	rows, err := lc.reports.MyBooks(c.Request.Context(), auth.GetUserID(c), lc.now())
	if err != nil {
		respondInternalError(c, err, "my books")
		return
	}
	c.JSON(http.StatusOK, rows)
}

// History lists every loan the signed-in user has had, newest first.
// GET /api/history
func (lc *LoansController) History(c *gin.Context) {
	rows, err := lc.reports.History(c.Request.Context(), auth.GetUserID(c), lc.now())
	if err != nil {
		respondInternalError(c, err, "history")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (lc *LoansController) respondWorkflowError(c *gin.Context, err error, operation string) {
	switch {
	case errors.Is(err, circulation.ErrAuthRequired):
		respondError(c, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, circulation.ErrBorrowLimitExceeded):
		respondBadRequest(c, fmt.Sprintf("Maximum borrowing limit reached (%d books)", lc.loans.Policy().MaxActiveLoans))
	case errors.Is(err, circulation.ErrBookUnavailable):
		respondBadRequest(c, "Book not available for borrowing")
	case errors.Is(err, circulation.ErrDuplicateBorrow):
		respondBadRequest(c, "You have already borrowed this book")
	case errors.Is(err, circulation.ErrTransactionNotFound):
		respondError(c, http.StatusNotFound, "Transaction not found or already returned")
	default:
		respondInternalError(c, err, operation)
	}
}
