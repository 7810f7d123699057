// Package catalog validates and records new books and serves catalog lookups.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/entities"
)

// ErrValidation marks input that cannot become a book.
var ErrValidation = errors.New("invalid book")

// ValidationError carries the message shown to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// CopyCount accepts a JSON number or a numeric string. Anything it cannot
// parse decodes as zero.
type CopyCount int

func (c *CopyCount) UnmarshalJSON(data []byte) error {
	*c = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	*c = CopyCount(int(f))
	return nil
}

// BookInput is the admin request to add a book.
type BookInput struct {
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Genre       string    `json:"genre"`
	ISBN        string    `json:"isbn"`
	CoverImage  string    `json:"coverImage"`
	TotalCopies CopyCount `json:"totalCopies"`
}

// BookStore is the catalog persistence used by the service.
type BookStore interface {
	Create(ctx context.Context, book *entities.Book) error
	GetByID(ctx context.Context, id uint) (*entities.Book, error)
	List(ctx context.Context, filter books.Filter) ([]entities.Book, error)
	Genres(ctx context.Context) ([]string, error)
}

// CoverQueue schedules a background cover lookup for a book.
type CoverQueue interface {
	EnqueueCoverLookup(ctx context.Context, bookID uint) error
}

// Auditor records catalog changes.
type Auditor interface {
	LogBookAdded(userID uint, book *entities.Book, err error)
}

type Service struct {
	store   BookStore
	covers  CoverQueue
	auditor Auditor
}

func NewService(store BookStore) *Service {
	return &Service{store: store}
}

// SetCoverQueue enables cover lookups for books added with an ISBN but no cover.
func (s *Service) SetCoverQueue(q CoverQueue) {
	s.covers = q
}

func (s *Service) SetAuditor(a Auditor) {
	s.auditor = a
}

func (s *Service) ListBooks(ctx context.Context, search, genre string) ([]entities.Book, error) {
	return s.store.List(ctx, books.Filter{Search: search, Genre: genre})
}

func (s *Service) Genres(ctx context.Context) ([]string, error) {
	return s.store.Genres(ctx)
}

func (s *Service) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	return s.store.GetByID(ctx, id)
}

// CreateBook validates input and adds the book with every copy available.
func (s *Service) CreateBook(ctx context.Context, userID uint, input BookInput) (*entities.Book, error) {
	book, err := s.createBook(ctx, input)
	if s.auditor != nil {
		s.auditor.LogBookAdded(userID, book, err)
	}
	if err != nil {
		return nil, err
	}

	if s.covers != nil && book.ISBN != "" && book.CoverImage == "" {
		if err := s.covers.EnqueueCoverLookup(ctx, book.ID); err != nil {
			log.Printf("[CATALOG] Failed to enqueue cover lookup for book %d: %v", book.ID, err)
		}
	}
	return book, nil
}

func (s *Service) createBook(ctx context.Context, input BookInput) (*entities.Book, error) {
	book, err := input.Validate()
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to add book: %w", err)
	}
	return book, nil
}

// Validate normalises input into a new book. A missing or zero copy count means one copy.
func (in BookInput) Validate() (*entities.Book, error) {
	title := strings.TrimSpace(in.Title)
	author := strings.TrimSpace(in.Author)
	genre := strings.TrimSpace(in.Genre)
	if title == "" || author == "" || genre == "" {
		return nil, &ValidationError{Message: "Title, author, and genre are required"}
	}

	copies := int(in.TotalCopies)
	if copies < 0 {
		return nil, &ValidationError{Message: "Total copies must be a positive number"}
	}
	if copies == 0 {
		copies = 1
	}

	return &entities.Book{
		Title:       title,
		Author:      author,
		Genre:       genre,
		ISBN:        strings.TrimSpace(in.ISBN),
		CoverImage:  strings.TrimSpace(in.CoverImage),
		TotalCopies: copies,
	}, nil
}
