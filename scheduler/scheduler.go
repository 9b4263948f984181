package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/remindwise/store"
)

const analyticsTimeout = 5 * time.Second

// Scheduler is the orchestrator: it resolves the behavior profile, generates
// the instruction sequence, fans the delivery attempts out in parallel and
// tracks pending instructions so completion can cancel them. All collaborators
// are injected at construction; there is no process-wide singleton.
type Scheduler struct {
	store      Store
	generator  *Generator
	dispatcher *Dispatcher
	queue      *OfflineQueue
	metrics    *Metrics
	clock      func() time.Time

	mu      sync.Mutex
	pending map[taskKey]map[string]*pendingHandle
}

type taskKey struct {
	taskID int32
	userID int32
}

// pendingHandle lets MarkCompleted stop a not-yet-fired instruction: cancel
// covers an in-flight dispatch, backend+deliveryID cover a vendor-scheduled
// send. Offline-queue entries are tracked in the store itself.
type pendingHandle struct {
	cancel     context.CancelFunc
	backend    Backend
	deliveryID string
	fireAt     time.Time
}

// New creates a Scheduler.
func New(st Store, generator *Generator, dispatcher *Dispatcher, queue *OfflineQueue, metrics *Metrics) *Scheduler {
	return &Scheduler{
		store:      st,
		generator:  generator,
		dispatcher: dispatcher,
		queue:      queue,
		metrics:    metrics,
		clock:      time.Now,
		pending:    make(map[taskKey]map[string]*pendingHandle),
	}
}

// Queue exposes the offline queue service for the host's background loops.
func (s *Scheduler) Queue() *OfflineQueue {
	return s.queue
}

// NetworkBackends exposes the network part of the chain for queue replay.
func (s *Scheduler) NetworkBackends() []Backend {
	return s.dispatcher.NetworkBackends()
}

// Outcome is the per-instruction result of a scheduling call.
type Outcome struct {
	AttemptID  string      `json:"attemptId"`
	Backend    string      `json:"backend,omitempty"`
	DeliveryID string      `json:"deliveryId,omitempty"`
	Error      string      `json:"error,omitempty"`
	Tier       UrgencyTier `json:"tier"`
	FireAt     time.Time   `json:"fireAt"`
	Queued     bool        `json:"queued"`
}

// Result aggregates the outcomes of one scheduling call. Partial success is
// still success; the detail list tells the caller what was dropped.
type Result struct {
	Outcomes  []Outcome `json:"outcomes"`
	TaskID    int32     `json:"taskId"`
	Delivered int       `json:"delivered"`
	Queued    int       `json:"queued"`
	Failed    int       `json:"failed"`
}

// Success reports whether at least one instruction was delivered or queued.
func (r *Result) Success() bool {
	return r.Delivered+r.Queued > 0
}

// ScheduleReminders validates the task, derives its reminder sequence and
// dispatches every instruction concurrently. A nil profile is resolved from
// the store, which substitutes defaults for unknown users.
func (s *Scheduler) ScheduleReminders(ctx context.Context, task *store.Task, bp *store.BehaviorProfile) (*Result, error) {
	if task == nil || task.DueTs == 0 {
		return nil, errors.Wrap(ErrInvalidTask, "missing task or due timestamp")
	}
	if task.Completed {
		return nil, errors.Wrap(ErrInvalidTask, "task is already completed")
	}

	if bp == nil {
		resolved, err := s.store.GetBehaviorProfile(ctx, task.CreatorID)
		if err != nil {
			slog.WarnContext(ctx, "behavior profile lookup failed, using defaults",
				slog.Int("userID", int(task.CreatorID)),
				slog.Any("err", err),
			)
			resolved = store.DefaultBehaviorProfile(task.CreatorID)
		}
		bp = resolved
	}

	now := s.clock()
	instructions, err := s.generator.Generate(task, bp, now)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordInstructions(len(instructions))

	due := time.Unix(task.DueTs, 0)
	score := priorityScore(task, bp)
	outcomes := make([]Outcome, len(instructions))

	// Instructions are independent: one failing or hanging must never block
	// the others, so each gets its own goroutine and cancelable context.
	var g errgroup.Group
	for i, instruction := range instructions {
		i := i
		fireAt := due.Add(-instruction.LeadTime)
		if !fireAt.After(now) {
			fireAt = now
		}
		attempt := &DeliveryAttempt{
			ID:            uuid.NewString(),
			Task:          task,
			FireAt:        fireAt,
			Tier:          instruction.Tier,
			Message:       instruction.Message,
			PriorityScore: score,
			IsFinal:       instruction.IsFinal,
		}
		g.Go(func() error {
			outcomes[i] = s.dispatchOne(ctx, attempt, now)
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{TaskID: task.ID, Outcomes: outcomes}
	for _, o := range outcomes {
		switch {
		case o.Error != "":
			result.Failed++
		case o.Queued:
			result.Queued++
		default:
			result.Delivered++
		}
	}
	if !result.Success() {
		return result, errors.Wrapf(ErrNothingScheduled, "task %d", task.ID)
	}
	return result, nil
}

// dispatchOne runs the backend chain for a single attempt and keeps the
// pending registry in sync with the result.
func (s *Scheduler) dispatchOne(ctx context.Context, attempt *DeliveryAttempt, now time.Time) Outcome {
	key := taskKey{taskID: attempt.Task.ID, userID: attempt.Task.CreatorID}

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.registerPending(key, attempt.ID, &pendingHandle{cancel: cancel, fireAt: attempt.FireAt})

	receipt, err := s.dispatcher.Dispatch(attemptCtx, attempt)

	outcome := Outcome{
		AttemptID: attempt.ID,
		FireAt:    attempt.FireAt,
		Tier:      attempt.Tier,
	}
	if err != nil {
		s.removePending(key, attempt.ID)
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Backend = receipt.Backend
	outcome.DeliveryID = receipt.DeliveryID
	outcome.Queued = receipt.Queued

	if attempt.FireAt.After(now) {
		// The instruction has not fired yet; keep a cancelable handle.
		s.registerPending(key, attempt.ID, &pendingHandle{
			backend:    s.backendByName(receipt.Backend),
			deliveryID: receipt.DeliveryID,
			fireAt:     attempt.FireAt,
		})
	} else {
		s.removePending(key, attempt.ID)
	}

	s.recordAnalyticsAsync(attempt, receipt.Backend, now)
	return outcome
}

// Snooze re-enters the pipeline with a single synthetic instruction that
// fires the given number of minutes from now.
func (s *Scheduler) Snooze(ctx context.Context, taskID, userID int32, minutesFromNow int32) (*Result, error) {
	if minutesFromNow <= 0 {
		return nil, errors.Wrap(ErrInvalidTask, "snooze interval must be positive")
	}
	task, err := s.store.GetTask(ctx, &store.FindTask{ID: &taskID, CreatorID: &userID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load task")
	}
	if task == nil {
		return nil, errors.Wrapf(ErrInvalidTask, "task %d not found", taskID)
	}

	now := s.clock()
	attempt := &DeliveryAttempt{
		ID:            uuid.NewString(),
		Task:          task,
		FireAt:        now.Add(time.Duration(minutesFromNow) * time.Minute),
		Tier:          TierUrgent,
		Message:       snoozeMessage(task.Title),
		PriorityScore: priorityScore(task, nil),
		IsFinal:       true,
	}

	go s.recordResponseAsync(taskID, userID, store.ResponseSnoozed, now)

	outcome := s.dispatchOne(ctx, attempt, now)
	result := &Result{TaskID: taskID, Outcomes: []Outcome{outcome}}
	switch {
	case outcome.Error != "":
		result.Failed = 1
		return result, errors.Wrapf(ErrNothingScheduled, "task %d", taskID)
	case outcome.Queued:
		result.Queued = 1
	default:
		result.Delivered = 1
	}
	return result, nil
}

// MarkCompleted short-circuits the pipeline for a task: it cancels every
// pending not-yet-fired instruction, clears the task's offline-queue entries
// and flips the completion flag.
func (s *Scheduler) MarkCompleted(ctx context.Context, taskID, userID int32) error {
	key := taskKey{taskID: taskID, userID: userID}
	for _, handle := range s.takePending(key) {
		if handle.cancel != nil {
			handle.cancel()
		}
		if canceler, ok := handle.backend.(ScheduleCanceler); ok && handle.deliveryID != "" {
			cancelCtx, cancel := context.WithTimeout(ctx, defaultBackendTimeout)
			if err := canceler.CancelScheduled(cancelCtx, handle.deliveryID); err != nil {
				slog.WarnContext(ctx, "failed to cancel vendor-scheduled reminder",
					slog.Int("taskID", int(taskID)),
					slog.String("deliveryID", handle.deliveryID),
					slog.Any("err", err),
				)
			}
			cancel()
		}
		s.metrics.RecordCancellation()
	}

	// Queue entries are tracked in the store, not the registry, so a restart
	// cannot orphan them.
	entries, err := s.store.ListOfflineQueueEntries(ctx, &store.FindOfflineQueueEntry{TaskID: &taskID})
	if err != nil {
		return errors.Wrap(err, "failed to list queued reminders")
	}
	for _, entry := range entries {
		if err := s.store.DeleteOfflineQueueEntry(ctx, &store.DeleteOfflineQueueEntry{UID: entry.UID}); err != nil {
			slog.WarnContext(ctx, "failed to remove queued reminder on completion",
				slog.String("uid", entry.UID),
				slog.Any("err", err),
			)
		} else {
			s.metrics.RecordCancellation()
		}
	}

	completed := true
	if _, err := s.store.UpdateTask(ctx, &store.UpdateTask{ID: taskID, Completed: &completed}); err != nil {
		return errors.Wrap(err, "failed to mark task completed")
	}

	go s.recordResponseAsync(taskID, userID, store.ResponseCompleted, s.clock())
	return nil
}

// PendingCount reports how many not-yet-fired instructions are tracked for a
// task. Mainly useful for the API surface and tests.
func (s *Scheduler) PendingCount(taskID, userID int32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending[taskKey{taskID: taskID, userID: userID}])
}

func (s *Scheduler) registerPending(key taskKey, attemptID string, handle *pendingHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[key] == nil {
		s.pending[key] = make(map[string]*pendingHandle)
	}
	s.pending[key][attemptID] = handle
}

func (s *Scheduler) removePending(key taskKey, attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending[key], attemptID)
	if len(s.pending[key]) == 0 {
		delete(s.pending, key)
	}
}

func (s *Scheduler) takePending(key taskKey) []*pendingHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	handles := make([]*pendingHandle, 0, len(s.pending[key]))
	for _, h := range s.pending[key] {
		handles = append(handles, h)
	}
	delete(s.pending, key)
	return handles
}

func (s *Scheduler) backendByName(name string) Backend {
	for _, b := range s.dispatcher.backends {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

// recordAnalyticsAsync writes the delivery record without ever blocking or
// failing the scheduling call.
func (s *Scheduler) recordAnalyticsAsync(attempt *DeliveryAttempt, backend string, now time.Time) {
	task := attempt.Task
	tier := attempt.Tier
	fireTs := attempt.FireAt.Unix()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), analyticsTimeout)
		defer cancel()
		if _, err := s.store.CreateReminderAnalytics(ctx, &store.CreateReminderAnalytics{
			TaskID:      task.ID,
			UserID:      task.CreatorID,
			FireTs:      fireTs,
			SentTs:      now.Unix(),
			UrgencyTier: string(tier),
			Backend:     backend,
		}); err != nil {
			slog.Warn("failed to record reminder analytics",
				slog.Int("taskID", int(task.ID)),
				slog.Any("err", err),
			)
		}
	}()
}

func (s *Scheduler) recordResponseAsync(taskID, userID int32, response store.ReminderResponse, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), analyticsTimeout)
	defer cancel()
	if err := s.store.UpdateReminderResponse(ctx, &store.UpdateReminderResponse{
		TaskID:     taskID,
		UserID:     userID,
		Response:   response,
		ResponseTs: now.Unix(),
	}); err != nil {
		slog.Warn("failed to record reminder response",
			slog.Int("taskID", int(taskID)),
			slog.String("response", string(response)),
			slog.Any("err", err),
		)
	}
}
