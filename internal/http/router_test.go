package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/circulation"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/reports"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/metrics"
)

type libraryServer struct {
	router  *gin.Engine
	db      *database.Database
	authSvc *auth.Service
}

func setupLibraryServer(t *testing.T) *libraryServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "library.db"), database.WithLogLevel(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	authCfg := config.Auth{
		BcryptCost:       4,
		SessionLifetime:  time.Hour,
		MaxLoginAttempts: 5,
		RateLimitWindow:  15 * time.Minute,
		LockoutDuration:  30 * time.Minute,
	}
	authSvc := auth.NewService(users.NewRepository(db.DB), authCfg)
	sessions, err := auth.NewSessionManager(sqlDB, authCfg)
	require.NoError(t, err)
	authController := auth.NewAuthController(authSvc, sessions, authCfg)
	t.Cleanup(authController.Stop)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	circ := circulation.NewService(loans.NewStore(db.DB), circulation.DefaultPolicy())
	circ.SetRecorder(collector)
	rep := reports.NewRepository(db.DB)

	router := NewRouter(RouterConfig{
		Loans:          circ,
		LoanReports:    rep,
		Admin:          rep,
		Catalog:        catalog.NewService(books.NewRepository(db.DB)),
		Database:       db,
		AuthController: authController,
		AuthMiddleware: auth.NewMiddleware(authSvc, sessions),
		SessionManager: sessions,
		Gauges:         collector,
		MetricsHandler: metrics.Handler(reg),
		Version:        "test",
	})

	return &libraryServer{router: router, db: db, authSvc: authSvc}
}

func (s *libraryServer) createUser(t *testing.T, username string, role entities.UserRole) {
	t.Helper()
	_, err := s.authSvc.CreateUser(username, username+"@university.edu", "password123", role)
	require.NoError(t, err)
}

func (s *libraryServer) login(t *testing.T, username string) []*http.Cookie {
	t.Helper()
	w := s.do(http.MethodPost, "/api/login", fmt.Sprintf(`{"username":%q,"password":"password123"}`, username), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return w.Result().Cookies()
}

func (s *libraryServer) do(method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *libraryServer) addBook(t *testing.T, admin []*http.Cookie, title string, copies int) uint {
	t.Helper()
	body := fmt.Sprintf(`{"title":%q,"author":"Test Author","genre":"Physics","totalCopies":%d}`, title, copies)
	w := s.do(http.MethodPost, "/api/admin/books", body, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		BookID uint `json:"bookId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.BookID
}

func TestRouter_AccessControl(t *testing.T) {
	s := setupLibraryServer(t)
	s.createUser(t, "student1", entities.UserRoleStudent)
	student := s.login(t, "student1")

	tests := []struct {
		name    string
		method  string
		path    string
		cookies []*http.Cookie
		want    int
	}{
		{"public catalog", http.MethodGet, "/api/books", nil, http.StatusOK},
		{"public genres", http.MethodGet, "/api/genres", nil, http.StatusOK},
		{"anonymous borrow", http.MethodPost, "/api/borrow", nil, http.StatusUnauthorized},
		{"anonymous my books", http.MethodGet, "/api/my-books", nil, http.StatusUnauthorized},
		{"anonymous admin", http.MethodGet, "/api/admin/stats", nil, http.StatusForbidden},
		{"student admin", http.MethodGet, "/api/admin/stats", student, http.StatusForbidden},
		{"student add book", http.MethodPost, "/api/admin/books", student, http.StatusForbidden},
		{"student history", http.MethodGet, "/api/history", student, http.StatusOK},
		{"health", http.MethodGet, "/health", nil, http.StatusOK},
		{"ping", http.MethodGet, "/ping", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, "", tt.cookies)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
		})
	}
}

func TestRouter_LoanLifecycle(t *testing.T) {
	s := setupLibraryServer(t)
	s.createUser(t, "admin", entities.UserRoleAdmin)
	s.createUser(t, "alice", entities.UserRoleStudent)
	s.createUser(t, "bob", entities.UserRoleStudent)

	admin := s.login(t, "admin")
	alice := s.login(t, "alice")
	bob := s.login(t, "bob")

	bookID := s.addBook(t, admin, "Quantum Mechanics", 1)

	// Alice takes the only copy.
	w := s.do(http.MethodPost, "/api/borrow", fmt.Sprintf(`{"bookId":%d}`, bookID), alice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var borrowed struct {
		TransactionID uint      `json:"transactionId"`
		DueDate       time.Time `json:"dueDate"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &borrowed))
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), borrowed.DueDate, time.Minute)

	// Bob cannot borrow it, Alice cannot borrow it twice.
	w = s.do(http.MethodPost, "/api/borrow", fmt.Sprintf(`{"bookId":%d}`, bookID), bob)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Book not available for borrowing", decodeBody(t, w)["error"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/books/%d", bookID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["available"])

	w = s.do(http.MethodGet, "/api/my-books", "", alice)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []reports.LoanRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, borrowed.TransactionID, mine[0].TransactionID)

	// Bob cannot return Alice's loan, an admin can.
	returnBody := fmt.Sprintf(`{"transactionId":%d}`, borrowed.TransactionID)
	w = s.do(http.MethodPost, "/api/return", returnBody, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/admin/return", returnBody, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "alice", decodeBody(t, w)["username"])

	// A second return of the same loan is rejected.
	w = s.do(http.MethodPost, "/api/return", returnBody, alice)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/borrow", fmt.Sprintf(`{"bookId":%d}`, bookID), bob)
	assert.Equal(t, http.StatusOK, w.Code, "the returned copy is available again")

	w = s.do(http.MethodGet, "/api/admin/stats", "", admin)
	require.Equal(t, http.StatusOK, w.Code)
	var stats reports.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.ActiveLoans)
	assert.Equal(t, int64(2), stats.TotalUsers, "only students are counted")

	w = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `library_borrow_total{outcome="success"} 2`)
	assert.Contains(t, w.Body.String(), `library_borrow_total{outcome="unavailable"} 1`)
	assert.Contains(t, w.Body.String(), "library_active_loans 1")
}

func TestRouter_BorrowLimit(t *testing.T) {
	s := setupLibraryServer(t)
	s.createUser(t, "admin", entities.UserRoleAdmin)
	s.createUser(t, "alice", entities.UserRoleStudent)
	admin := s.login(t, "admin")
	alice := s.login(t, "alice")

	for i := 0; i < 4; i++ {
		id := s.addBook(t, admin, fmt.Sprintf("Book %d", i), 2)
		w := s.do(http.MethodPost, "/api/borrow", fmt.Sprintf(`{"bookId":%d}`, id), alice)
		if i < 3 {
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			continue
		}
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Maximum borrowing limit reached (3 books)", decodeBody(t, w)["error"])

		book := s.do(http.MethodGet, fmt.Sprintf("/api/books/%d", id), "", nil)
		assert.Equal(t, float64(2), decodeBody(t, book)["available_copies"], "a rejected borrow writes nothing")
	}
}
