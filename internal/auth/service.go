package auth

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

// Validation patterns
var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("username or email already exists")
	ErrInvalidRole       = errors.New("invalid role")
	ErrFieldsRequired    = errors.New("username, email and password are required")
	ErrAccountLocked     = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid   = errors.New("username must be 3-64 characters: letters, digits, dot, underscore or hyphen")
	ErrEmailInvalid      = errors.New("invalid email format")
	ErrAdminSignupDenied = errors.New("admin accounts cannot be created through signup")
)

// UserStore is the account persistence used by the service.
type UserStore interface {
	CreateUser(user *entities.User) error
	GetUserByID(id uint) (*entities.User, error)
	FindByLogin(login string) (*entities.User, error)
	Exists(username, email string) (bool, error)
	CountUsers(role entities.UserRole) (int64, error)
	RecordLoginSuccess(id uint, at time.Time) error
	RecordLoginFailure(id uint, maxAttempts int, lockUntil time.Time) (int, error)
	UpdatePasswordHash(id uint, hash string) error
}

// Service handles registration, credential checks and account lookup.
type Service struct {
	users  UserStore
	config config.Auth
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(store UserStore, cfg config.Auth) *Service {
	return &Service{
		users:  store,
		config: cfg,
		now:    time.Now,
	}
}

// HashPassword hashes with the configured bcrypt cost.
func (s *Service) HashPassword(password string) (string, error) {
	return HashPassword(password, s.config.BcryptCost)
}

// CreateUser registers an account with any valid role. Used by the CLI and seeding.
func (s *Service) CreateUser(username, email, password string, role entities.UserRole) (*entities.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrFieldsRequired
	}
	if role == "" {
		role = entities.UserRoleStudent
	}

	// Validate username format: 3-64 chars
	if !usernamePattern.MatchString(username) {
		return nil, ErrUsernameInvalid
	}

	// Validate email format and length (RFC 5321 limit is 254)
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return nil, ErrEmailInvalid
	}

	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	exists, err := s.users.Exists(username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}

	if err := s.users.CreateUser(user); err != nil {
		// Lost a race with a concurrent signup for the same name.
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Register is the self-service signup path. Admin accounts are refused
// unless AllowAdminSignup is set.
func (s *Service) Register(username, email, password string, role entities.UserRole) (*entities.User, error) {
	if role == entities.UserRoleAdmin && !s.config.AllowAdminSignup {
		return nil, ErrAdminSignupDenied
	}
	return s.CreateUser(username, email, password, role)
}

// Authenticate validates credentials and returns the user. The login may be
// an email address or a username. Implements account lockout after too many
// failed attempts.
func (s *Service) Authenticate(login, password string) (*entities.User, error) {
	user, err := s.users.FindByLogin(strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()

	// Check if account is locked
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(user, now)
		return nil, err
	}

	if err := s.users.RecordLoginSuccess(user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLoginAt = &now
	user.FailedLoginCount = 0
	user.LockedUntil = nil

	if NeedsRehash(user.PasswordHash, s.config.BcryptCost) {
		s.rehash(user, password)
	}

	return user, nil
}

// rehash moves the stored hash to the configured cost. Failure leaves the old
// hash in place, which still verifies.
func (s *Service) rehash(user *entities.User, password string) {
	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		log.Printf("[AUTH] Could not rehash password for user %d: %v", user.ID, err)
		return
	}
	if err := s.users.UpdatePasswordHash(user.ID, hash); err != nil {
		log.Printf("[AUTH] Could not store rehashed password for user %d: %v", user.ID, err)
		return
	}
	user.PasswordHash = hash
}

// recordFailedLogin increments the failed login counter and locks the account if threshold reached.
func (s *Service) recordFailedLogin(user *entities.User, now time.Time) {
	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	lockoutDuration := s.config.LockoutDuration
	if lockoutDuration == 0 {
		lockoutDuration = 30 * time.Minute
	}

	count, err := s.users.RecordLoginFailure(user.ID, maxAttempts, now.Add(lockoutDuration))
	if err != nil {
		log.Printf("[AUTH] Failed to record login failure for user %d: %v", user.ID, err)
		return
	}
	user.FailedLoginCount = count
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	user, err := s.users.GetUserByID(id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers() (bool, error) {
	count, err := s.users.CountUsers("")
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
