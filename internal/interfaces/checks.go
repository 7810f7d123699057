package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/circulation"
	"github.com/mrlokans/library/internal/covers"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/reports"
	"github.com/mrlokans/library/internal/database/settings"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/http"
	"github.com/mrlokans/library/internal/metadata"
	"github.com/mrlokans/library/internal/metrics"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ circulation.Store = (*loans.Store)(nil)
var _ catalog.BookStore = (*books.Repository)(nil)
var _ auth.UserStore = (*users.Repository)(nil)
var _ metadata.BookStore = (*books.Repository)(nil)
var _ http.CoverCache = (*covers.Cache)(nil)

var _ http.LoanReports = (*reports.Repository)(nil)
var _ http.AdminReports = (*reports.Repository)(nil)
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Services
// =============================================================================

var _ http.LoanService = (*circulation.Service)(nil)
var _ http.CatalogService = (*catalog.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)

// Auditors
var _ circulation.Auditor = (*audit.Service)(nil)
var _ catalog.Auditor = (*audit.Service)(nil)
var _ auth.Auditor = (*audit.Service)(nil)

// =============================================================================
// Metrics
// =============================================================================

var _ circulation.Recorder = (*metrics.Collector)(nil)
var _ tasks.RunRecorder = (*metrics.Collector)(nil)
var _ tasks.OverdueGauge = (*metrics.Collector)(nil)
var _ http.LoanGauges = (*metrics.Collector)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.OverdueLister = (*loans.Store)(nil)
var _ tasks.OverdueNotifier = (*audit.Service)(nil)
var _ tasks.ScanStateWriter = (*settings.Repository)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ tasks.CoverEnricher = (*metadata.CoverEnricher)(nil)
var _ tasks.MissingCoverLister = (*books.Repository)(nil)
var _ tasks.SweepCursor = (*settings.Repository)(nil)
var _ tasks.CoverLookupQueue = (*tasks.Client)(nil)
var _ http.Pinger = (*tasks.Client)(nil)
var _ catalog.CoverQueue = (*tasks.Client)(nil)

var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ scheduler.StateWriter = (*settings.Repository)(nil)
var _ scheduler.MaintenanceLogger = (*audit.Service)(nil)

// =============================================================================
// External Services
// =============================================================================

var _ metadata.MetadataProvider = (*metadata.OpenLibraryClient)(nil)
