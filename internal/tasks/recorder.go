package tasks

import (
	"context"

	"github.com/mikestefanello/backlite"
)

// RunRecorder receives the result of every task execution.
type RunRecorder interface {
	RecordTaskRun(queue string, err error)
}

func instrument[T backlite.Task](queue string, rec RunRecorder, fn backlite.QueueProcessor[T]) backlite.QueueProcessor[T] {
	if rec == nil {
		return fn
	}
	return func(ctx context.Context, task T) error {
		err := fn(ctx, task)
		rec.RecordTaskRun(queue, err)
		return err
	}
}
