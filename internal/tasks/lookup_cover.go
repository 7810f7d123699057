package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/metadata"
)

// CoverEnricher resolves and stores a missing cover image.
type CoverEnricher interface {
	EnrichCover(ctx context.Context, bookID uint) (*metadata.CoverResult, error)
}

// LookupBookCoverTask fills in one book's cover image from OpenLibrary.
type LookupBookCoverTask struct {
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for cover lookups.
func (t LookupBookCoverTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "lookup_book_cover",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// LookupBookCoverProcessor creates a processor function for LookupBookCoverTask.
// A missing book or a book OpenLibrary has no cover for is not retried.
func LookupBookCoverProcessor(enricher CoverEnricher) backlite.QueueProcessor[LookupBookCoverTask] {
	return func(ctx context.Context, task LookupBookCoverTask) error {
		if enricher == nil {
			return fmt.Errorf("cover enricher not configured")
		}

		result, err := enricher.EnrichCover(ctx, task.BookID)
		switch {
		case errors.Is(err, books.ErrBookNotFound),
			errors.Is(err, metadata.ErrNotFound),
			errors.Is(err, metadata.ErrNoCover):
			log.Printf("[TASK] No cover for book %d: %v", task.BookID, err)
			return nil
		case err != nil:
			return fmt.Errorf("lookup cover for book %d: %w", task.BookID, err)
		}

		if result.Updated {
			log.Printf("[TASK] Stored cover for book %d via %s", task.BookID, result.SearchMethod)
		} else {
			log.Printf("[TASK] Book %d already has a cover", task.BookID)
		}
		return nil
	}
}

// NewLookupBookCoverQueue creates a backlite queue for cover lookups.
func NewLookupBookCoverQueue(enricher CoverEnricher, rec RunRecorder) backlite.Queue {
	return backlite.NewQueue(instrument("lookup_book_cover", rec, LookupBookCoverProcessor(enricher)))
}
