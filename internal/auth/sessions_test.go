package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entities"
)

func setupSessionManager(t *testing.T) *SessionManager {
	t.Helper()

	db := setupTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get SQL DB: %v", err)
	}

	sm, err := NewSessionManager(sqlDB, config.Auth{SessionLifetime: 24 * time.Hour})
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

// loadedRequest returns a request whose context carries a fresh session.
func loadedRequest(t *testing.T, sm *SessionManager) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx, err := sm.Load(req.Context(), "")
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	return req.WithContext(ctx)
}

func TestNewSessionManager(t *testing.T) {
	sm := setupSessionManager(t)

	if sm.Lifetime != 24*time.Hour {
		t.Errorf("Lifetime = %v, want 24h", sm.Lifetime)
	}
	if sm.IdleTimeout != 12*time.Hour {
		t.Errorf("IdleTimeout = %v, want 12h", sm.IdleTimeout)
	}
	if !sm.Cookie.HttpOnly {
		t.Error("expected HttpOnly cookie")
	}
	if sm.Cookie.Secure {
		t.Error("expected insecure cookie when SecureCookies is false")
	}
	if sm.Cookie.Name != "library_session" {
		t.Errorf("cookie name = %q", sm.Cookie.Name)
	}
}

func TestNewSessionManager_DefaultLifetime(t *testing.T) {
	db := setupTestDB(t)
	sqlDB, _ := db.DB()

	sm, err := NewSessionManager(sqlDB, config.Auth{SecureCookies: true})
	if err != nil {
		t.Fatalf("NewSessionManager() failed: %v", err)
	}
	if sm.Lifetime != 24*time.Hour {
		t.Errorf("Lifetime = %v, want 24h default", sm.Lifetime)
	}
	if !sm.Cookie.Secure {
		t.Error("expected secure cookie")
	}
}

func TestSessionManager_CreateAndRetrieveSession(t *testing.T) {
	sm := setupSessionManager(t)
	req := loadedRequest(t, sm)

	if sm.IsAuthenticated(req) {
		t.Fatal("fresh session should not be authenticated")
	}
	if data := sm.GetSessionData(req); data != nil {
		t.Fatalf("expected nil session data, got %+v", data)
	}

	user := &entities.User{ID: 7, Username: "student1", Email: "student1@venda.ac.za", Role: entities.UserRoleStudent}
	if err := sm.CreateSession(req, user); err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}

	if !sm.IsAuthenticated(req) {
		t.Error("expected authenticated session")
	}

	data := sm.GetSessionData(req)
	if data == nil {
		t.Fatal("expected session data")
	}
	if data.UserID != 7 || data.Username != "student1" || data.Email != "student1@venda.ac.za" {
		t.Errorf("unexpected session data: %+v", data)
	}
	if data.Role != entities.UserRoleStudent {
		t.Errorf("role = %q, want student", data.Role)
	}
	if data.LoginAt.IsZero() {
		t.Error("expected LoginAt to be set")
	}
}

func TestSessionManager_DestroySession(t *testing.T) {
	sm := setupSessionManager(t)
	req := loadedRequest(t, sm)

	user := &entities.User{ID: 1, Username: "admin", Role: entities.UserRoleAdmin}
	if err := sm.CreateSession(req, user); err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	if err := sm.DestroySession(req); err != nil {
		t.Fatalf("DestroySession() failed: %v", err)
	}

	if sm.IsAuthenticated(req) {
		t.Error("expected session to be cleared")
	}
	if role := sm.GetUserRole(req); role != "" {
		t.Errorf("role = %q, want empty", role)
	}
}
