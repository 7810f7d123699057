// Package users provides database operations for library accounts.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.FindByLogin("student1@venda.ac.za")
package users

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a fully populated user.
func (r *Repository) CreateUser(user *entities.User) error {
	return r.db.Create(user).Error
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByLogin retrieves a user by email or username.
func (r *Repository) FindByLogin(login string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("email = ? OR username = ?", login, login).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Exists reports whether the username or email is already registered.
func (r *Repository) Exists(username, email string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check existing user: %w", err)
	}
	return count > 0, nil
}

// CountUsers counts users, optionally restricted to one role.
func (r *Repository) CountUsers(role entities.UserRole) (int64, error) {
	var count int64
	query := r.db.Model(&entities.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	err := query.Count(&count).Error
	return count, err
}

// RecordLoginSuccess clears failure tracking and stamps the login time.
func (r *Repository) RecordLoginSuccess(id uint, at time.Time) error {
	return r.db.Model(&entities.User{}).Where("id = ?", id).Updates(map[string]any{
		"last_login_at":      at,
		"failed_login_count": 0,
		"locked_until":       nil,
	}).Error
}

// UpdatePasswordHash replaces the stored bcrypt hash.
func (r *Repository) UpdatePasswordHash(id uint, hash string) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Update("password_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordLoginFailure increments the failure count in place and locks the account
// until lockUntil once the count reaches maxAttempts. It returns the new count.
func (r *Repository) RecordLoginFailure(id uint, maxAttempts int, lockUntil time.Time) (int, error) {
	var count int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entities.User{}).Where("id = ?", id).
			UpdateColumn("failed_login_count", gorm.Expr("failed_login_count + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := tx.Model(&entities.User{}).
			Where("id = ? AND failed_login_count >= ?", id, maxAttempts).
			UpdateColumn("locked_until", lockUntil).Error; err != nil {
			return err
		}

		var counts []int
		if err := tx.Model(&entities.User{}).Where("id = ?", id).
			Pluck("failed_login_count", &counts).Error; err != nil {
			return err
		}
		if len(counts) == 1 {
			count = counts[0]
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("record login failure for user %d: %w", id, err)
	}
	return count, nil
}
