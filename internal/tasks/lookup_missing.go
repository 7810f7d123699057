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

const defaultCoverSweepLimit = 50

// MissingCoverLister pages through catalog entries without a cover, by ID.
type MissingCoverLister interface {
	ListMissingCovers(ctx context.Context, afterID uint, limit int) ([]entities.Book, error)
}

// CoverLookupQueue accepts single-book cover lookups.
type CoverLookupQueue interface {
	EnqueueCoverLookup(ctx context.Context, bookID uint) error
}

// SweepCursor persists where the previous sweep stopped.
type SweepCursor interface {
	GetValue(key string) (string, error)
	SetSetting(key, value string) error
}

// LookupMissingCoversTask queues a cover lookup for the next page of books that still lack one.
type LookupMissingCoversTask struct {
	Limit int `json:"limit,omitempty"`
}

// Config returns the queue configuration for cover sweeps.
func (t LookupMissingCoversTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "lookup_missing_covers",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// LookupMissingCoversProcessor creates a processor function for LookupMissingCoversTask.
// Each run continues after the last book queued by the previous run and wraps
// around once the end of the catalog is reached. A book whose lookup keeps
// failing is retried once per pass.
func LookupMissingCoversProcessor(lister MissingCoverLister, queue CoverLookupQueue, cursor SweepCursor) backlite.QueueProcessor[LookupMissingCoversTask] {
	return func(ctx context.Context, task LookupMissingCoversTask) error {
		if lister == nil || queue == nil {
			return fmt.Errorf("cover sweep not configured")
		}

		limit := task.Limit
		if limit <= 0 {
			limit = defaultCoverSweepLimit
		}

		after := readCursor(cursor)
		missing, err := lister.ListMissingCovers(ctx, after, limit)
		if err != nil {
			return fmt.Errorf("list books missing covers: %w", err)
		}
		if len(missing) == 0 && after > 0 {
			after = 0
			missing, err = lister.ListMissingCovers(ctx, 0, limit)
			if err != nil {
				return fmt.Errorf("list books missing covers: %w", err)
			}
		}

		var last uint
		for _, book := range missing {
			if err := queue.EnqueueCoverLookup(ctx, book.ID); err != nil {
				return err
			}
			last = book.ID
		}

		// A short page means the pass is complete; the next run starts over.
		next := last
		if len(missing) < limit {
			next = 0
		}
		if cursor != nil {
			if err := cursor.SetSetting(entities.SettingKeyCoverSweepCursor, strconv.FormatUint(uint64(next), 10)); err != nil {
				log.Printf("[TASK] Failed to store cover sweep cursor: %v", err)
			}
		}

		log.Printf("[TASK] Queued cover lookups for %d books after book %d", len(missing), after)
		return nil
	}
}

func readCursor(cursor SweepCursor) uint {
	if cursor == nil {
		return 0
	}
	raw, err := cursor.GetValue(entities.SettingKeyCoverSweepCursor)
	if err != nil {
		log.Printf("[TASK] Failed to read cover sweep cursor, starting from the beginning: %v", err)
		return 0
	}
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}

// NewLookupMissingCoversQueue creates a backlite queue for cover sweeps.
func NewLookupMissingCoversQueue(lister MissingCoverLister, queue CoverLookupQueue, cursor SweepCursor, rec RunRecorder) backlite.Queue {
	return backlite.NewQueue(instrument("lookup_missing_covers", rec, LookupMissingCoversProcessor(lister, queue, cursor)))
}
