package database

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/library/internal/entities"
)

// PasswordHasher turns a plaintext password into a stored hash.
type PasswordHasher func(password string) (string, error)

type sampleUser struct {
	Username string
	Email    string
	Password string
	Role     entities.UserRole
}

var sampleUsers = []sampleUser{
	{"admin", "admin@venda.ac.za", "admin123", entities.UserRoleAdmin},
	{"student1", "student1@venda.ac.za", "student123", entities.UserRoleStudent},
	{"student2", "student2@venda.ac.za", "student123", entities.UserRoleStudent},
}

var sampleBooks = []entities.Book{
	{Title: "Introduction to Computer Science", Author: "John Smith", Genre: "Computer Science", CoverImage: "https://images.pexels.com/photos/159866/books-book-pages-read-literature-159866.jpeg", ISBN: "978-0123456789"},
	{Title: "Advanced JavaScript", Author: "Jane Doe", Genre: "Computer Science", CoverImage: "https://images.pexels.com/photos/1181233/pexels-photo-1181233.jpeg", ISBN: "978-0987654321"},
	{Title: "Physics Fundamentals", Author: "Albert Einstein", Genre: "Physics", CoverImage: "https://images.pexels.com/photos/159711/books-bookstore-book-reading-159711.jpeg", ISBN: "978-0111222333"},
	{Title: "Artificial Intelligence Basics", Author: "Alan Turing", Genre: "AI", CoverImage: "https://images.pexels.com/photos/1181675/pexels-photo-1181675.jpeg", ISBN: "978-0444555666"},
	{Title: "Database Systems", Author: "Edgar Codd", Genre: "Computer Science", CoverImage: "https://images.pexels.com/photos/159621/open-book-library-education-read-159621.jpeg", ISBN: "978-0777888999"},
	{Title: "Quantum Mechanics", Author: "Max Planck", Genre: "Physics", CoverImage: "https://images.pexels.com/photos/1370296/pexels-photo-1370296.jpeg", ISBN: "978-0333444555"},
	{Title: "Machine Learning Introduction", Author: "Geoffrey Hinton", Genre: "AI", CoverImage: "https://images.pexels.com/photos/1181354/pexels-photo-1181354.jpeg", ISBN: "978-0666777888"},
	{Title: "Web Development Mastery", Author: "Tim Berners-Lee", Genre: "Computer Science", CoverImage: "https://images.pexels.com/photos/1181472/pexels-photo-1181472.jpeg", ISBN: "978-0999000111"},
	{Title: "Mathematics for Engineers", Author: "Isaac Newton", Genre: "Mathematics", CoverImage: "https://images.pexels.com/photos/1370295/pexels-photo-1370295.jpeg", ISBN: "978-0222333444"},
	{Title: "Data Structures and Algorithms", Author: "Donald Knuth", Genre: "Computer Science", CoverImage: "https://images.pexels.com/photos/1181244/pexels-photo-1181244.jpeg", ISBN: "978-0555666777"},
}

// SeedResult reports how many sample rows were inserted.
type SeedResult struct {
	UsersCreated int
	BooksCreated int
}

// Seed inserts the sample accounts and catalog. Existing users are left alone
// and books are only added to an empty catalog, so it is safe to run repeatedly.
func (d *Database) Seed(hash PasswordHasher) (SeedResult, error) {
	var result SeedResult

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		for _, su := range sampleUsers {
			var existing entities.User
			err := tx.Where("username = ? OR email = ?", su.Username, su.Email).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to look up user %s: %w", su.Username, err)
			}

			passwordHash, err := hash(su.Password)
			if err != nil {
				return fmt.Errorf("failed to hash password for %s: %w", su.Username, err)
			}
			user := entities.User{
				Username:     su.Username,
				Email:        su.Email,
				PasswordHash: passwordHash,
				Role:         su.Role,
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to create user %s: %w", su.Username, err)
			}
			result.UsersCreated++
			log.Printf("Created sample user: %s (%s)", su.Username, su.Role)
		}

		var bookCount int64
		if err := tx.Model(&entities.Book{}).Count(&bookCount).Error; err != nil {
			return fmt.Errorf("failed to count books: %w", err)
		}
		if bookCount > 0 {
			return nil
		}

		for _, sample := range sampleBooks {
			book := sample
			book.TotalCopies = 1
			book.AvailableCopies = 1
			book.SyncAvailability()
			if err := tx.Create(&book).Error; err != nil {
				return fmt.Errorf("failed to create book %q: %w", book.Title, err)
			}
			result.BooksCreated++
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entities.Setting{
			Key:   entities.SettingKeyCatalogSeededAt,
			Value: time.Now().UTC().Format(time.RFC3339),
		}).Error
	})
	if err != nil {
		return SeedResult{}, err
	}

	if result.BooksCreated > 0 {
		log.Printf("Seeded %d sample books", result.BooksCreated)
	}
	return result, nil
}
