package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(auth.SecurityHeaders(cfg.SecureCookies))

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	// Without an auth middleware nobody is signed in.
	var requireAuth gin.HandlerFunc = func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
	}
	var requireAdmin gin.HandlerFunc = func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "Admin access required"})
	}
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
		requireAuth = cfg.AuthMiddleware.RequireAuth()
		requireAdmin = cfg.AuthMiddleware.RequireAdmin()
	}

	health := NewHealthController(cfg.Database, cfg.TaskQueue, cfg.Version)
	loans := NewLoansController(cfg.Loans, cfg.LoanReports)
	books := NewBooksController(cfg.Catalog)
	admin := NewAdminController(cfg.Admin, cfg.Audit)
	if cfg.Gauges != nil {
		admin.SetGauges(cfg.Gauges)
	}

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := router.Group("/api")

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(api)
	}

	// Public catalog
	api.GET("/books", books.ListBooks)
	api.GET("/books/:id", books.GetBook)
	if cfg.Covers != nil {
		api.GET("/books/:id/cover", NewCoversController(cfg.Covers, cfg.Catalog).GetCover)
	}
	api.GET("/genres", books.Genres)

	// Member endpoints
	member := api.Group("", requireAuth)
	member.POST("/borrow", loans.Borrow)
	member.POST("/return", loans.Return)
	member.GET("/my-books", loans.MyBooks)
	member.GET("/history", loans.History)

	// Admin endpoints
	adminGroup := api.Group("/admin", requireAdmin)
	adminGroup.POST("/return", loans.AdminReturn)
	adminGroup.POST("/books", books.AddBook)
	adminGroup.GET("/stats", admin.Stats)
	adminGroup.GET("/transactions", admin.Transactions)
	adminGroup.GET("/overdue", admin.Overdue)
	adminGroup.GET("/audit", admin.AuditEvents)

	return router
}
