package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

// AdminController serves the admin dashboard, loan reports and audit trail.
type AdminController struct {
	reports AdminReports
	audit   AuditReader
	gauges  LoanGauges
	now     func() time.Time
}

func NewAdminController(reports AdminReports, audit AuditReader) *AdminController {
	return &AdminController{
		reports: reports,
		audit:   audit,
		now:     time.Now,
	}
}

// SetGauges sets the metrics refreshed by Stats. Nil disables them.
func (ac *AdminController) SetGauges(g LoanGauges) {
	ac.gauges = g
}

// Stats returns catalog and loan totals plus the most borrowed books.
// GET /api/admin/stats
func (ac *AdminController) Stats(c *gin.Context) {
	stats, err := ac.reports.Stats(c.Request.Context(), ac.now())
	if err != nil {
		respondInternalError(c, err, "stats")
		return
	}

	if ac.gauges != nil {
		ac.gauges.SetActiveLoans(stats.ActiveLoans)
		ac.gauges.SetOverdueLoans(stats.OverdueBooks)
	}
	c.JSON(http.StatusOK, stats)
}

// Transactions lists every loan with its derived status.
// GET /api/admin/transactions
func (ac *AdminController) Transactions(c *gin.Context) {
	rows, err := ac.reports.AllTransactions(c.Request.Context(), ac.now())
	if err != nil {
		respondInternalError(c, err, "transactions")
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Overdue lists active loans past their due day, most overdue first.
// GET /api/admin/overdue
func (ac *AdminController) Overdue(c *gin.Context) {
	rows, err := ac.reports.Overdue(c.Request.Context(), ac.now())
	if err != nil {
		respondInternalError(c, err, "overdue")
		return
	}
	c.JSON(http.StatusOK, rows)
}

// AuditEvents returns paginated audit events, optionally filtered.
// GET /api/admin/audit?limit=&offset=&type=&user_id=&entity_type=&entity_id=
func (ac *AdminController) AuditEvents(c *gin.Context) {
	if ac.audit == nil {
		respondError(c, http.StatusServiceUnavailable, "Audit log not configured")
		return
	}

	limit, offset := parsePagination(c)
	filter := audit.EventFilter{
		EventType:  entities.AuditEventType(c.Query("type")),
		EntityType: c.Query("entity_type"),
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid user_id")
			return
		}
		filter.UserID = uint(id)
	}
	if raw := c.Query("entity_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid entity_id")
			return
		}
		filter.EntityID = uint(id)
	}

	events, total, err := ac.audit.GetEvents(filter, limit, offset)
	if err != nil {
		respondInternalError(c, err, "audit events")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(events, total, limit, offset))
}
