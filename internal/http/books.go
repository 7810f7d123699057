package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/database/books"
)

type BooksController struct {
	catalog CatalogService
}

func NewBooksController(catalog CatalogService) *BooksController {
	return &BooksController{
		catalog: catalog,
	}
}

// ListBooks returns the catalog filtered by an optional search term and genre.
// GET /api/books?search=&genre=
func (bc *BooksController) ListBooks(c *gin.Context) {
	list, err := bc.catalog.ListBooks(c.Request.Context(), c.Query("search"), c.Query("genre"))
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Genres returns the distinct genres in the catalog.
// GET /api/genres
func (bc *BooksController) Genres(c *gin.Context) {
	genres, err := bc.catalog.Genres(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list genres")
		return
	}
	c.JSON(http.StatusOK, genres)
}

// GetBook returns one book.
// GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.catalog.GetBook(c.Request.Context(), id)
	if errors.Is(err, books.ErrBookNotFound) {
		respondNotFound(c, "Book")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// AddBook adds a book to the catalog with every copy available.
// POST /api/admin/books
func (bc *BooksController) AddBook(c *gin.Context) {
	var input catalog.BookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "Invalid request body")
		return
	}

	book, err := bc.catalog.CreateBook(c.Request.Context(), auth.GetUserID(c), input)
	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		respondBadRequest(c, verr.Message)
		return
	case err != nil:
		respondInternalError(c, err, "add book")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Book added successfully",
		"bookId":  book.ID,
		"book":    book,
	})
}
