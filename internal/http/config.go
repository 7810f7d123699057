package http

import (
	"net/http"

	"github.com/mrlokans/library/internal/auth"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Loans       LoanService
	LoanReports LoanReports
	Admin       AdminReports
	Catalog     CatalogService
	Audit       AuditReader
	Database    Pinger
	TaskQueue   Pinger // nil when background tasks are disabled

	// Covers serves cached cover images when set.
	Covers CoverCache

	// Authentication
	AuthController *auth.AuthController
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager

	// CSRFSecret enables CSRF protection when non-empty.
	CSRFSecret    []byte
	SecureCookies bool

	// Metrics (optional)
	Gauges         LoanGauges
	MetricsHandler http.Handler

	// Application info
	Version string
}
