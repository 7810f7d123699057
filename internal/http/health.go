package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks connectivity to a backing store.
type Pinger interface {
	Ping() error
}

// Health states. Loans can still be served while background work is down.
const (
	HealthOK       = "healthy"
	HealthDegraded = "degraded"
	HealthDown     = "unhealthy"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthController reports on the library database and the task queue.
// Only the database is required; a failing queue degrades the service.
type HealthController struct {
	db      Pinger
	queue   Pinger
	version string
}

func NewHealthController(db, queue Pinger, version string) *HealthController {
	return &HealthController{
		db:      db,
		queue:   queue,
		version: version,
	}
}

// Status runs the checks.
// GET /health
func (h *HealthController) Status(c *gin.Context) {
	resp := HealthResponse{
		Status:  HealthOK,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Version: h.version,
		Checks:  map[string]string{},
	}

	if !runCheck(resp.Checks, "database", h.db) {
		resp.Status = HealthDown
	}
	if h.queue != nil && !runCheck(resp.Checks, "task_queue", h.queue) && resp.Status == HealthOK {
		resp.Status = HealthDegraded
	}

	code := http.StatusOK
	if resp.Status == HealthDown {
		code = http.StatusServiceUnavailable
	}
	c.IndentedJSON(code, resp)
}

// runCheck records the result of one check and reports whether it passed.
// An unconfigured dependency passes.
func runCheck(checks map[string]string, name string, p Pinger) bool {
	if p == nil {
		checks[name] = "not configured"
		return true
	}
	if err := p.Ping(); err != nil {
		checks[name] = "error: " + err.Error()
		return false
	}
	checks[name] = "ok"
	return true
}
