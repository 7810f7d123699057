// Package scheduler enqueues the library's periodic maintenance tasks on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entities"
)

// Enqueuer puts maintenance tasks on the task queue.
type Enqueuer interface {
	EnqueueOverdueScan() (string, error)
	EnqueueAuditCleanup(retentionDays int) (string, error)
	EnqueueMissingCoverSweep(limit int) (string, error)
}

// StateWriter records when a job last fired.
type StateWriter interface {
	SetTime(key string, t time.Time) error
}

// MaintenanceLogger records scheduling failures in the audit trail.
type MaintenanceLogger interface {
	LogMaintenance(action, description string, err error)
}

// Job is one periodic task.
type Job struct {
	Name     string
	Schedule string
	// LastRunKey is the settings key updated each time the job fires. Empty skips it.
	LastRunKey string
	Enqueue    func() (string, error)
}

// Scheduler fires jobs on their cron schedules. Jobs only enqueue work,
// so a slow task never delays the next tick.
type Scheduler struct {
	jobs    []Job
	state   StateWriter
	auditor MaintenanceLogger

	cron      *cron.Cron
	entries   map[string]cron.EntryID
	mu        sync.RWMutex
	isRunning bool
}

// New creates a scheduler for the given jobs.
func New(jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs:    jobs,
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
	}
}

// NewFromConfig builds the library's maintenance jobs from configuration.
func NewFromConfig(cfg *config.Config, q Enqueuer) *Scheduler {
	retentionDays := cfg.Audit.RetentionDays
	jobs := []Job{
		{
			Name:     "overdue_scan",
			Schedule: cfg.Scheduler.OverdueScanSchedule,
			Enqueue:  q.EnqueueOverdueScan,
		},
		{
			Name:       "audit_cleanup",
			Schedule:   cfg.Scheduler.AuditCleanupSchedule,
			LastRunKey: entities.SettingKeyAuditCleanupLastAt,
			Enqueue: func() (string, error) {
				return q.EnqueueAuditCleanup(retentionDays)
			},
		},
	}
	if cfg.Catalog.CoverLookup {
		jobs = append(jobs, Job{
			Name:     "cover_sweep",
			Schedule: cfg.Scheduler.CoverSweepSchedule,
			Enqueue: func() (string, error) {
				return q.EnqueueMissingCoverSweep(0)
			},
		})
	}
	return New(jobs...)
}

// SetState sets where fire times are recorded. Nil disables it.
func (s *Scheduler) SetState(state StateWriter) {
	s.state = state
}

// SetAuditor sets the audit logger for enqueue failures. Nil disables it.
func (s *Scheduler) SetAuditor(a MaintenanceLogger) {
	s.auditor = a
}

// Start validates all schedules and begins firing jobs. The scheduler stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	for _, job := range s.jobs {
		if err := ValidateSchedule(job.Schedule); err != nil {
			return fmt.Errorf("invalid cron schedule '%s' for %s: %w", job.Schedule, job.Name, err)
		}
	}

	for _, job := range s.jobs {
		job := job
		entryID, err := s.cron.AddFunc(job.Schedule, func() {
			s.fire(job)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
		s.entries[job.Name] = entryID
	}

	s.cron.Start()
	s.isRunning = true

	for _, job := range s.jobs {
		log.Printf("Scheduler: %s scheduled '%s' (%s). Next run: %v",
			job.Name, job.Schedule, Describe(job.Schedule), s.nextRunLocked(job.Name))
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops firing jobs. Jobs that are mid-enqueue complete first.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	done := s.cron.Stop()
	<-done.Done()

	for name, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
	s.isRunning = false

	log.Printf("Scheduler: stopped")
}

// RunNow fires the named job immediately.
func (s *Scheduler) RunNow(name string) error {
	for _, job := range s.jobs {
		if job.Name == name {
			return s.fire(job)
		}
	}
	return fmt.Errorf("unknown job %q", name)
}

// IsRunning returns whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the named job fires next, or nil if it is not scheduled.
func (s *Scheduler) NextRun(name string) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRunLocked(name)
}

func (s *Scheduler) nextRunLocked(name string) *time.Time {
	id, ok := s.entries[name]
	if !ok {
		return nil
	}
	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return nil
	}
	t := entry.Next
	return &t
}

func (s *Scheduler) fire(job Job) error {
	taskID, err := job.Enqueue()
	if err != nil {
		log.Printf("Scheduler: failed to enqueue %s: %v", job.Name, err)
		if s.auditor != nil {
			s.auditor.LogMaintenance(job.Name, fmt.Sprintf("Failed to enqueue %s", job.Name), err)
		}
		return err
	}

	log.Printf("Scheduler: enqueued %s (task %s)", job.Name, taskID)
	if s.state != nil && job.LastRunKey != "" {
		if err := s.state.SetTime(job.LastRunKey, time.Now().UTC()); err != nil {
			log.Printf("Scheduler: failed to record %s run time: %v", job.Name, err)
		}
	}
	return nil
}
