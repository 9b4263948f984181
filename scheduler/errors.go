package scheduler

import "github.com/pkg/errors"

var (
	// ErrInvalidTask rejects a scheduling request before any work begins:
	// missing task, zero due timestamp, or a task that is already completed.
	ErrInvalidTask = errors.New("invalid task")

	// ErrNothingScheduled means every instruction failed at every layer,
	// including the offline queue.
	ErrNothingScheduled = errors.New("no reminder could be scheduled or queued")

	// ErrQueueUnavailable marks a failed durable write to the offline queue,
	// the one persistence failure the pipeline cannot absorb.
	ErrQueueUnavailable = errors.New("offline queue unavailable")

	// ErrScheduleUnsupported is returned by backends that can only deliver
	// immediately when handed an attempt with a future fire time. The chain
	// treats it like any other backend failure and falls through.
	ErrScheduleUnsupported = errors.New("backend does not support scheduled delivery")
)
