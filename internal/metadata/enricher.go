package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mrlokans/library/internal/entities"
)

// ErrNoCover is returned when a match was found but it carries no cover image.
var ErrNoCover = errors.New("no cover image available")

// MetadataProvider defines the interface for fetching book metadata.
type MetadataProvider interface {
	SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
	SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error)
}

// BookStore is the catalog access the enricher needs.
type BookStore interface {
	GetByID(ctx context.Context, id uint) (*entities.Book, error)
	SetCoverImage(ctx context.Context, id uint, coverURL string) (bool, error)
}

// CoverResult describes the outcome of one cover lookup.
type CoverResult struct {
	BookID       uint   `json:"book_id"`
	CoverURL     string `json:"cover_url,omitempty"`
	SearchMethod string `json:"search_method,omitempty"` // "isbn" or "title"
	Updated      bool   `json:"updated"`
}

// CoverEnricher fills in missing catalog cover images from an external provider.
type CoverEnricher struct {
	provider MetadataProvider
	books    BookStore
}

func NewCoverEnricher(provider MetadataProvider, books BookStore) *CoverEnricher {
	return &CoverEnricher{
		provider: provider,
		books:    books,
	}
}

// EnrichCover looks up a cover for the book and stores it if the book still has none.
// It tries the ISBN first, then falls back to a title and author search.
func (e *CoverEnricher) EnrichCover(ctx context.Context, bookID uint) (*CoverResult, error) {
	book, err := e.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	result := &CoverResult{BookID: bookID}
	if book.CoverImage != "" {
		return result, nil
	}

	var metadata *BookMetadata
	if book.ISBN != "" {
		metadata, err = e.provider.SearchByISBN(ctx, book.ISBN)
		if err == nil && metadata.CoverURL != "" {
			result.SearchMethod = "isbn"
		} else {
			if err != nil {
				log.Printf("[METADATA] ISBN lookup for book %d failed, trying title: %v", bookID, err)
			}
			metadata = nil
		}
	}

	if metadata == nil {
		metadata, err = e.provider.SearchByTitle(ctx, book.Title, book.Author)
		if err != nil {
			return nil, fmt.Errorf("metadata search failed: %w", err)
		}
		result.SearchMethod = "title"
	}

	if metadata.CoverURL == "" {
		return nil, ErrNoCover
	}

	updated, err := e.books.SetCoverImage(ctx, bookID, metadata.CoverURL)
	if err != nil {
		return nil, err
	}
	result.CoverURL = metadata.CoverURL
	result.Updated = updated
	return result, nil
}
