package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/entities"
)

type fakeCatalog struct {
	books      []entities.Book
	lastSearch string
	lastGenre  string
	createErr  error
	createdBy  uint
}

func (f *fakeCatalog) ListBooks(ctx context.Context, search, genre string) ([]entities.Book, error) {
	f.lastSearch, f.lastGenre = search, genre
	return f.books, nil
}

func (f *fakeCatalog) Genres(ctx context.Context) ([]string, error) {
	return []string{"Computer Science", "Physics"}, nil
}

func (f *fakeCatalog) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	for i := range f.books {
		if f.books[i].ID == id {
			return &f.books[i], nil
		}
	}
	return nil, books.ErrBookNotFound
}

func (f *fakeCatalog) CreateBook(ctx context.Context, userID uint, input catalog.BookInput) (*entities.Book, error) {
	f.createdBy = userID
	if f.createErr != nil {
		return nil, f.createErr
	}
	book, err := input.Validate()
	if err != nil {
		return nil, err
	}
	book.ID = 42
	book.AvailableCopies = book.TotalCopies
	book.SyncAvailability()
	return book, nil
}

func setupBooksRouter(cat *fakeCatalog) *gin.Engine {
	gin.SetMode(gin.TestMode)
	controller := NewBooksController(cat)

	router := gin.New()
	router.Use(signedIn(1, entities.UserRoleAdmin))
	router.GET("/api/books", controller.ListBooks)
	router.GET("/api/books/:id", controller.GetBook)
	router.GET("/api/genres", controller.Genres)
	router.POST("/api/admin/books", controller.AddBook)
	return router
}

func TestBooksController_ListBooks(t *testing.T) {
	cat := &fakeCatalog{books: []entities.Book{{ID: 1, Title: "Physics Fundamentals"}}}
	router := setupBooksRouter(cat)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books?search=phys&genre=Physics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got []entities.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 1)
	assert.Equal(t, "phys", cat.lastSearch)
	assert.Equal(t, "Physics", cat.lastGenre)
}

func TestBooksController_Genres(t *testing.T) {
	router := setupBooksRouter(&fakeCatalog{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/genres", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["Computer Science","Physics"]`, w.Body.String())
}

func TestBooksController_GetBook(t *testing.T) {
	router := setupBooksRouter(&fakeCatalog{books: []entities.Book{{ID: 1, Title: "Physics Fundamentals"}}})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books/99", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Book not found", decodeBody(t, w)["error"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBooksController_AddBook(t *testing.T) {
	t.Run("adds with defaults", func(t *testing.T) {
		cat := &fakeCatalog{}
		router := setupBooksRouter(cat)

		w := postJSON(router, "/api/admin/books", `{"title":"Compilers","author":"Aho","genre":"Computer Science"}`)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, "Book added successfully", body["message"])
		assert.Equal(t, float64(42), body["bookId"])
		book := body["book"].(map[string]any)
		assert.Equal(t, float64(1), book["total_copies"])
		assert.Equal(t, float64(1), book["available_copies"])
		assert.Equal(t, uint(1), cat.createdBy)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := postJSON(setupBooksRouter(&fakeCatalog{}), "/api/admin/books", `{"title":"Compilers"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Title, author, and genre are required", decodeBody(t, w)["error"])
	})

	t.Run("malformed body", func(t *testing.T) {
		w := postJSON(setupBooksRouter(&fakeCatalog{}), "/api/admin/books", `{"title":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		w := postJSON(setupBooksRouter(&fakeCatalog{createErr: errors.New("locked")}), "/api/admin/books",
			`{"title":"Compilers","author":"Aho","genre":"Computer Science"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

type fakeCoverCache struct {
	path string
	err  error
}

func (f *fakeCoverCache) Path(ctx context.Context, bookID uint, coverURL string) (string, error) {
	return f.path, f.err
}

func TestCoversController_GetCover(t *testing.T) {
	gin.SetMode(gin.TestMode)

	coverFile := filepath.Join(t.TempDir(), "book_1.jpg")
	require.NoError(t, os.WriteFile(coverFile, []byte("jpeg bytes"), 0644))

	cat := &fakeCatalog{books: []entities.Book{
		{ID: 1, Title: "Algorithms", CoverImage: "https://covers.openlibrary.org/b/id/1-L.jpg"},
		{ID: 2, Title: "Compilers"},
	}}

	serve := func(cache CoverCache, id string) *httptest.ResponseRecorder {
		router := gin.New()
		router.GET("/api/books/:id/cover", NewCoversController(cache, cat).GetCover)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/books/"+id+"/cover", nil)
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("serves cached file", func(t *testing.T) {
		w := serve(&fakeCoverCache{path: coverFile}, "1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "jpeg bytes", w.Body.String())
		assert.Contains(t, w.Header().Get("Cache-Control"), "max-age")
	})

	t.Run("redirects when download fails", func(t *testing.T) {
		w := serve(&fakeCoverCache{err: errors.New("boom")}, "1")
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "https://covers.openlibrary.org/b/id/1-L.jpg", w.Header().Get("Location"))
	})

	t.Run("book without cover", func(t *testing.T) {
		w := serve(&fakeCoverCache{path: coverFile}, "2")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown book", func(t *testing.T) {
		w := serve(&fakeCoverCache{path: coverFile}, "99")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
