package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entities"
)

// Auditor records authentication events.
type Auditor interface {
	LogAuth(event Event)
}

// Event describes one signup, login or logout.
type Event struct {
	Action    string // "signup", "login" or "logout"
	UserID    uint
	Login     string
	IPAddress string
	UserAgent string
	Err       error
}

// AuthController handles the JSON signup, login, logout and session endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	rateLimiter    *RateLimiter
	auditor        Auditor
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, sessionManager *SessionManager, cfg config.Auth) *AuthController {
	rateLimiter := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     cfg.MaxLoginAttempts,
		WindowDuration:  cfg.RateLimitWindow,
		LockoutDuration: cfg.LockoutDuration,
	})

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		rateLimiter:    rateLimiter,
	}
}

func (ac *AuthController) SetAuditor(a Auditor) {
	ac.auditor = a
}

// RegisterRoutes registers authentication routes on the router group.
func (ac *AuthController) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/signup", ac.Signup)
	api.POST("/login", ac.Login)
	api.POST("/logout", ac.Logout)
	api.GET("/session", ac.Session)
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

type signupRequest struct {
	Username string            `json:"username"`
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Role     entities.UserRole `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup creates a student account, or an admin account when allowed by config.
func (ac *AuthController) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	user, err := ac.service.Register(req.Username, req.Email, req.Password, req.Role)
	event := Event{Action: "signup", Login: req.Username, IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent(), Err: err}
	if user != nil {
		event.UserID = user.ID
	}
	ac.audit(event)

	if err != nil {
		status, message := signupError(err)
		if status == http.StatusInternalServerError {
			log.Printf("[AUTH] Signup failed for %q: %v", req.Username, err)
		}
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Registration successful",
		"userId":  user.ID,
	})
}

func signupError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrFieldsRequired):
		return http.StatusBadRequest, "All fields are required"
	case errors.Is(err, ErrUserExists):
		return http.StatusBadRequest, "Username or email already exists"
	case errors.Is(err, ErrAdminSignupDenied):
		return http.StatusForbidden, "Admin accounts cannot be created through signup"
	case errors.Is(err, ErrInvalidRole):
		return http.StatusBadRequest, "Role must be student or admin"
	case errors.Is(err, ErrUsernameInvalid):
		return http.StatusBadRequest, "Username must be 3-64 characters: letters, digits, dot, underscore or hyphen"
	case errors.Is(err, ErrEmailInvalid):
		return http.StatusBadRequest, "Invalid email format"
	case errors.Is(err, ErrPasswordTooShort):
		return http.StatusBadRequest, "Password must be at least 8 characters"
	case errors.Is(err, ErrPasswordTooLong):
		return http.StatusBadRequest, "Password exceeds maximum length of 72 characters"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// Login checks credentials and starts a session. The email field also accepts a username.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	_ = c.ShouldBindJSON(&req)

	login := strings.TrimSpace(req.Email)
	if login == "" {
		login = strings.TrimSpace(req.Username)
	}
	if login == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	clientIP := c.ClientIP()

	// Check rate limiting before attempting authentication
	if ac.rateLimiter != nil {
		allowed, retryAfter := ac.rateLimiter.Allow(clientIP, login)
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many login attempts. Please try again later.",
				"retry_after": retryAfter.String(),
			})
			return
		}
	}

	user, err := ac.service.Authenticate(login, req.Password)
	if err != nil {
		if ac.rateLimiter != nil {
			ac.rateLimiter.RecordFailure(clientIP, login)
		}
		ac.audit(Event{Action: "login", Login: login, IPAddress: clientIP, UserAgent: c.Request.UserAgent(), Err: err})

		switch {
		case errors.Is(err, ErrAccountLocked):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is locked. Please try again later."})
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		default:
			log.Printf("[AUTH] Login failed for %q: %v", login, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(clientIP, login)
	}

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		log.Printf("[AUTH] Failed to create session for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	ac.audit(Event{Action: "login", UserID: user.ID, Login: login, IPAddress: clientIP, UserAgent: c.Request.UserAgent()})

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user": SessionData{
			UserID:   user.ID,
			Username: user.Username,
			Email:    user.Email,
			Role:     user.Role,
		},
	})
}

// Logout destroys the session.
func (ac *AuthController) Logout(c *gin.Context) {
	userID := ac.sessionManager.GetUserID(c.Request)
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		log.Printf("[AUTH] Failed to destroy session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not log out"})
		return
	}
	if userID != 0 {
		ac.audit(Event{Action: "logout", UserID: userID, IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()})
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// Session returns the signed-in user.
func (ac *AuthController) Session(c *gin.Context) {
	data := ac.sessionManager.GetSessionData(c.Request)
	if data == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": data})
}

func (ac *AuthController) audit(event Event) {
	if ac.auditor != nil {
		ac.auditor.LogAuth(event)
	}
}
