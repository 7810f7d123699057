package tasks

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/entities"
)

// OverdueLister returns the active loans that are past their due day.
type OverdueLister interface {
	ListOverdue(ctx context.Context, now time.Time) ([]entities.Transaction, error)
}

// OverdueNotifier records overdue notices in the audit trail.
type OverdueNotifier interface {
	HasOverdueNotice(transactionID uint, since time.Time) (bool, error)
	LogOverdueNotice(loan *entities.Transaction, now time.Time) error
}

// ScanStateWriter persists when the last scan ran.
type ScanStateWriter interface {
	SetTime(key string, t time.Time) error
	SetSetting(key, value string) error
}

// OverdueGauge is updated with the overdue count after every scan.
type OverdueGauge interface {
	SetOverdueLoans(n int64)
}

// ScanOverdueLoansTask writes one overdue notice per overdue loan per day.
// Loan status is never changed, overdue stays a derived value.
type ScanOverdueLoansTask struct{}

// Config returns the queue configuration for overdue scans.
func (t ScanOverdueLoansTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "scan_overdue_loans",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ScanResult summarises one overdue scan.
type ScanResult struct {
	Overdue  int
	Notified int
	Skipped  int
}

// OverdueScanner finds overdue loans and records a notice for each one.
type OverdueScanner struct {
	loans    OverdueLister
	notifier OverdueNotifier
	state    ScanStateWriter
	gauge    OverdueGauge
	now      func() time.Time
}

func NewOverdueScanner(loans OverdueLister, notifier OverdueNotifier, state ScanStateWriter) *OverdueScanner {
	return &OverdueScanner{
		loans:    loans,
		notifier: notifier,
		state:    state,
		now:      time.Now,
	}
}

// SetGauge sets the metric updated after each scan. Nil disables it.
func (s *OverdueScanner) SetGauge(g OverdueGauge) {
	s.gauge = g
}

// Scan records notices for loans that have not been noticed yet today.
// Running it twice on the same day writes nothing the second time.
func (s *OverdueScanner) Scan(ctx context.Context) (ScanResult, error) {
	now := s.now().UTC()
	today := entities.StartOfDay(now)

	loans, err := s.loans.ListOverdue(ctx, now)
	if err != nil {
		return ScanResult{}, fmt.Errorf("list overdue loans: %w", err)
	}

	result := ScanResult{Overdue: len(loans)}
	for i := range loans {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		loan := &loans[i]
		seen, err := s.notifier.HasOverdueNotice(loan.ID, today)
		if err != nil {
			return result, fmt.Errorf("check notice for loan %d: %w", loan.ID, err)
		}
		if seen {
			result.Skipped++
			continue
		}
		if err := s.notifier.LogOverdueNotice(loan, now); err != nil {
			return result, fmt.Errorf("record notice for loan %d: %w", loan.ID, err)
		}
		result.Notified++
	}

	if s.gauge != nil {
		s.gauge.SetOverdueLoans(int64(result.Overdue))
	}
	if s.state != nil {
		if err := s.state.SetTime(entities.SettingKeyOverdueScanLastAt, now); err != nil {
			log.Printf("[TASK] Failed to store overdue scan time: %v", err)
		}
		if err := s.state.SetSetting(entities.SettingKeyOverdueScanLastCount, strconv.Itoa(result.Overdue)); err != nil {
			log.Printf("[TASK] Failed to store overdue scan count: %v", err)
		}
	}

	return result, nil
}

// ScanOverdueLoansProcessor creates a processor function for ScanOverdueLoansTask.
func ScanOverdueLoansProcessor(scanner *OverdueScanner) backlite.QueueProcessor[ScanOverdueLoansTask] {
	return func(ctx context.Context, task ScanOverdueLoansTask) error {
		if scanner == nil {
			return fmt.Errorf("overdue scanner not configured")
		}

		result, err := scanner.Scan(ctx)
		if err != nil {
			return err
		}

		log.Printf("[TASK] Overdue scan: %d overdue, %d notified, %d already noticed today",
			result.Overdue, result.Notified, result.Skipped)
		return nil
	}
}

// NewScanOverdueLoansQueue creates a backlite queue for overdue scans.
func NewScanOverdueLoansQueue(scanner *OverdueScanner, rec RunRecorder) backlite.Queue {
	return backlite.NewQueue(instrument("scan_overdue_loans", rec, ScanOverdueLoansProcessor(scanner)))
}
