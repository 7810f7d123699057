package books

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "books.db"), database.WithLogLevel(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db.DB)
}

func createBook(t *testing.T, repo *Repository, title, author, genre string, copies int) *entities.Book {
	t.Helper()
	book := &entities.Book{Title: title, Author: author, Genre: genre, TotalCopies: copies}
	require.NoError(t, repo.Create(context.Background(), book))
	return book
}

func TestRepository_Create(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	book := createBook(t, repo, "Database Systems", "Edgar Codd", "Computer Science", 3)

	assert.NotZero(t, book.ID)
	assert.Equal(t, 3, book.AvailableCopies)
	assert.True(t, book.Available)

	stored, err := repo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Database Systems", stored.Title)
	assert.Equal(t, 3, stored.TotalCopies)
	assert.Equal(t, 3, stored.AvailableCopies)
	assert.True(t, stored.Available)
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestRepository_List(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	createBook(t, repo, "Quantum Mechanics", "Max Planck", "Physics", 1)
	createBook(t, repo, "Artificial Intelligence Basics", "Alan Turing", "AI", 1)
	createBook(t, repo, "Physics Fundamentals", "Albert Einstein", "Physics", 2)

	tests := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{"no filter sorts by title", Filter{}, []string{"Artificial Intelligence Basics", "Physics Fundamentals", "Quantum Mechanics"}},
		{"search matches title", Filter{Search: "quantum"}, []string{"Quantum Mechanics"}},
		{"search matches author", Filter{Search: "Turing"}, []string{"Artificial Intelligence Basics"}},
		{"genre filter", Filter{Genre: "Physics"}, []string{"Physics Fundamentals", "Quantum Mechanics"}},
		{"All disables genre filter", Filter{Genre: AllGenres}, []string{"Artificial Intelligence Basics", "Physics Fundamentals", "Quantum Mechanics"}},
		{"search and genre combine", Filter{Search: "Albert", Genre: "Physics"}, []string{"Physics Fundamentals"}},
		{"no match returns empty", Filter{Search: "nothing"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)

			titles := make([]string, 0, len(list))
			for _, b := range list {
				titles = append(titles, b.Title)
			}
			assert.Equal(t, tt.expected, titles)
		})
	}
}

func TestRepository_Genres(t *testing.T) {
	repo := setupTestRepo(t)

	createBook(t, repo, "Quantum Mechanics", "Max Planck", "Physics", 1)
	createBook(t, repo, "Physics Fundamentals", "Albert Einstein", "Physics", 1)
	createBook(t, repo, "Mathematics for Engineers", "Isaac Newton", "Mathematics", 1)

	genres, err := repo.Genres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Mathematics", "Physics"}, genres)
}

func TestRepository_SetCoverImage(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	book := &entities.Book{Title: "Database Systems", Author: "Edgar Codd", Genre: "Computer Science", ISBN: "9780777888999", TotalCopies: 1}
	require.NoError(t, repo.Create(ctx, book))

	missing, err := repo.ListMissingCovers(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)

	updated, err := repo.SetCoverImage(ctx, book.ID, "https://covers.openlibrary.org/b/id/1-L.jpg")
	require.NoError(t, err)
	assert.True(t, updated)

	// An existing cover is never overwritten.
	updated, err = repo.SetCoverImage(ctx, book.ID, "https://example.com/other.jpg")
	require.NoError(t, err)
	assert.False(t, updated)

	stored, err := repo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://covers.openlibrary.org/b/id/1-L.jpg", stored.CoverImage)

	missing, err = repo.ListMissingCovers(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestRepository_ListMissingCovers_PagesByID(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	var ids []uint
	for i, isbn := range []string{"9780000000001", "9780000000002", "9780000000003", "9780000000004", ""} {
		book := &entities.Book{Title: fmt.Sprintf("Book %d", i+1), Author: "Author", Genre: "Physics", ISBN: isbn, TotalCopies: 1}
		require.NoError(t, repo.Create(ctx, book))
		ids = append(ids, book.ID)
	}

	page, err := repo.ListMissingCovers(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[0], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	page, err = repo.ListMissingCovers(ctx, ids[1], 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)

	page, err = repo.ListMissingCovers(ctx, ids[3], 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[4], page[0].ID, "books without an ISBN are swept too")
	assert.Empty(t, page[0].ISBN)
}
