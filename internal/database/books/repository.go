// Package books provides database operations for the library catalog.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	list, err := repo.List(ctx, books.Filter{Search: "physics"})
package books

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

// ErrBookNotFound is returned when no book matches the requested ID.
var ErrBookNotFound = errors.New("book not found")

// AllGenres is the genre filter value that disables genre filtering.
const AllGenres = "All"

// Filter narrows a catalog listing.
type Filter struct {
	Search string // Substring matched against title or author
	Genre  string // Exact genre, ignored when empty or AllGenres
}

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new book. Available copies start equal to total copies.
func (r *Repository) Create(ctx context.Context, book *entities.Book) error {
	book.AvailableCopies = book.TotalCopies
	book.SyncAvailability()
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// GetByID retrieves a single book.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	return &book, nil
}

// List returns books matching the filter ordered by title.
func (r *Repository) List(ctx context.Context, filter Filter) ([]entities.Book, error) {
	query := r.db.WithContext(ctx).Model(&entities.Book{})

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("title LIKE ? OR author LIKE ?", pattern, pattern)
	}
	if genre := strings.TrimSpace(filter.Genre); genre != "" && genre != AllGenres {
		query = query.Where("genre = ?", genre)
	}

	books := make([]entities.Book, 0)
	if err := query.Order("title ASC").Order("id ASC").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// Genres returns the distinct genres in the catalog.
func (r *Repository) Genres(ctx context.Context) ([]string, error) {
	genres := make([]string, 0)
	err := r.db.WithContext(ctx).Model(&entities.Book{}).
		Distinct().
		Order("genre ASC").
		Pluck("genre", &genres).Error
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return genres, nil
}

// SetCoverImage stores a cover URL for a book that does not have one yet.
// Returns false when the book already had a cover or does not exist.
func (r *Repository) SetCoverImage(ctx context.Context, id uint, coverURL string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entities.Book{}).
		Where("id = ? AND (cover_image IS NULL OR cover_image = '')", id).
		Update("cover_image", coverURL)
	if result.Error != nil {
		return false, fmt.Errorf("set cover image for book %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListMissingCovers returns books without a cover image whose ID is greater than afterID, in ID order.
func (r *Repository) ListMissingCovers(ctx context.Context, afterID uint, limit int) ([]entities.Book, error) {
	if limit <= 0 {
		limit = 50
	}
	var list []entities.Book
	err := r.db.WithContext(ctx).
		Where("id > ? AND (cover_image IS NULL OR cover_image = '')", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list books missing covers: %w", err)
	}
	return list, nil
}

// Count returns the number of catalog entries.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Count(&n).Error
	return n, err
}
