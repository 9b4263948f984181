package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/remindwise/plugin/localnotify"
	"github.com/hrygo/remindwise/store"
)

// Store is the subset of the persistence layer the scheduler needs. It is
// satisfied by *store.Store and replaced by fakes in tests.
type Store interface {
	GetTask(ctx context.Context, find *store.FindTask) (*store.Task, error)
	UpdateTask(ctx context.Context, update *store.UpdateTask) (*store.Task, error)
	GetBehaviorProfile(ctx context.Context, userID int32) (*store.BehaviorProfile, error)
	CreateOfflineQueueEntry(ctx context.Context, create *store.OfflineQueueEntry) (*store.OfflineQueueEntry, error)
	ListOfflineQueueEntries(ctx context.Context, find *store.FindOfflineQueueEntry) ([]*store.OfflineQueueEntry, error)
	DeleteOfflineQueueEntry(ctx context.Context, delete *store.DeleteOfflineQueueEntry) error
	CreateReminderAnalytics(ctx context.Context, create *store.CreateReminderAnalytics) (*store.ReminderAnalytics, error)
	UpdateReminderResponse(ctx context.Context, update *store.UpdateReminderResponse) error
}

const maxConcurrentReplays = 4

// OfflineQueue persists reminders that no network backend accepted, fires
// them locally once their time arrives, and replays still-pending ones when
// connectivity returns.
type OfflineQueue struct {
	store    Store
	notifier localnotify.Notifier
	metrics  *Metrics
	clock    func() time.Time
	sem      *semaphore.Weighted
}

// NewOfflineQueue creates the queue service. A nil notifier falls back to
// localnotify.Noop.
func NewOfflineQueue(st Store, notifier localnotify.Notifier, metrics *Metrics) *OfflineQueue {
	if notifier == nil {
		notifier = localnotify.Noop{}
	}
	return &OfflineQueue{
		store:    st,
		notifier: notifier,
		metrics:  metrics,
		clock:    time.Now,
		sem:      semaphore.NewWeighted(maxConcurrentReplays),
	}
}

// Enqueue durably persists one entry. Failure here is fatal for this one
// reminder only; the caller logs and drops it.
func (q *OfflineQueue) Enqueue(ctx context.Context, entry *store.OfflineQueueEntry) (*store.OfflineQueueEntry, error) {
	if entry.UID == "" {
		entry.UID = shortuuid.New()
	}
	created, err := q.store.CreateOfflineQueueEntry(ctx, entry)
	if err != nil {
		return nil, errors.Wrapf(ErrQueueUnavailable, "persist failed: %v", err)
	}
	q.metrics.RecordEnqueue()
	return created, nil
}

// RunLocalFireLoop periodically fires queued reminders whose time has passed.
// It blocks until the context is cancelled.
func (q *OfflineQueue) RunLocalFireLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.FireDue(ctx)
		}
	}
}

// FireDue scans for entries whose fire time has passed, displays each through
// the local notifier and removes it from the queue.
func (q *OfflineQueue) FireDue(ctx context.Context) {
	now := q.clock().Unix()
	entries, err := q.store.ListOfflineQueueEntries(ctx, &store.FindOfflineQueueEntry{FireTsBefore: &now})
	if err != nil {
		slog.WarnContext(ctx, "offline queue scan failed", slog.Any("err", err))
		return
	}
	q.metrics.RecordQueueDepth(len(entries))

	for _, entry := range entries {
		if err := q.notifier.Notify(ctx, &localnotify.Notification{
			Title:       entry.Title,
			Body:        entry.Body,
			UrgencyTier: entry.UrgencyTier,
			TaskID:      entry.TaskID,
			UserID:      entry.UserID,
		}); err != nil {
			slog.WarnContext(ctx, "local notification failed, entry stays queued",
				slog.String("uid", entry.UID),
				slog.Int("taskID", int(entry.TaskID)),
				slog.Any("err", err),
			)
			continue
		}
		q.metrics.RecordLocalFire()
		if err := q.store.DeleteOfflineQueueEntry(ctx, &store.DeleteOfflineQueueEntry{UID: entry.UID}); err != nil {
			slog.WarnContext(ctx, "failed to remove fired queue entry",
				slog.String("uid", entry.UID),
				slog.Any("err", err),
			)
		}
	}
}

// RunReplayLoop periodically retries network delivery of still-pending
// entries. In the original design this is triggered by a connectivity-change
// signal; a server host approximates that with a slow interval.
func (q *OfflineQueue) RunReplayLoop(ctx context.Context, interval time.Duration, backends []Backend) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.ReplayPending(ctx, backends)
		}
	}
}

// ReplayPending pushes every queued entry with a future fire time back
// through the network backends, at most maxConcurrentReplays at a time.
// Entries that a backend accepts are removed; failures stay queued for the
// next cycle. Returns the number replayed.
func (q *OfflineQueue) ReplayPending(ctx context.Context, backends []Backend) int {
	entries, err := q.store.ListOfflineQueueEntries(ctx, &store.FindOfflineQueueEntry{})
	if err != nil {
		slog.WarnContext(ctx, "offline queue replay scan failed", slog.Any("err", err))
		return 0
	}

	var wg sync.WaitGroup
	var replayed atomic.Int32
	for _, entry := range entries {
		if entry.FireTs <= q.clock().Unix() {
			// Past-due entries belong to the local fire-check.
			continue
		}
		if err := q.sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(entry *store.OfflineQueueEntry) {
			defer wg.Done()
			defer q.sem.Release(1)
			if q.replayEntry(ctx, entry, backends) {
				replayed.Add(1)
			}
		}(entry)
	}
	wg.Wait()
	return int(replayed.Load())
}

func (q *OfflineQueue) replayEntry(ctx context.Context, entry *store.OfflineQueueEntry, backends []Backend) bool {
	attempt := &DeliveryAttempt{
		ID:      entry.UID,
		Task:    &store.Task{ID: entry.TaskID, CreatorID: entry.UserID, Title: entry.Title},
		FireAt:  time.Unix(entry.FireTs, 0),
		Tier:    UrgencyTier(entry.UrgencyTier),
		Message: entry.Body,
	}

	for _, backend := range backends {
		callCtx, cancel := context.WithTimeout(ctx, defaultBackendTimeout)
		receipt, err := backend.Deliver(callCtx, attempt)
		cancel()
		if err != nil {
			continue
		}
		q.metrics.RecordReplay("success")
		slog.InfoContext(ctx, "queued reminder replayed",
			slog.String("uid", entry.UID),
			slog.Int("taskID", int(entry.TaskID)),
			slog.String("backend", backend.Name()),
			slog.String("deliveryID", receipt.DeliveryID),
		)
		if err := q.store.DeleteOfflineQueueEntry(ctx, &store.DeleteOfflineQueueEntry{UID: entry.UID}); err != nil {
			slog.WarnContext(ctx, "failed to remove replayed queue entry",
				slog.String("uid", entry.UID),
				slog.Any("err", err),
			)
		}
		return true
	}
	q.metrics.RecordReplay("failure")
	return false
}

// QueueBackend adapts the offline queue as the terminal backend of the
// dispatch chain.
type QueueBackend struct {
	queue *OfflineQueue
}

// NewQueueBackend creates the terminal chain element.
func NewQueueBackend(queue *OfflineQueue) *QueueBackend {
	return &QueueBackend{queue: queue}
}

func (b *QueueBackend) Name() string {
	return "offline_queue"
}

func (b *QueueBackend) Deliver(ctx context.Context, attempt *DeliveryAttempt) (*Receipt, error) {
	// A future fire time means the network backends refused to schedule the
	// send; the queue holds it as a scheduled notification until it fires
	// locally or a replay hands it back to a backend.
	origin := store.OriginPendingSchedule
	if attempt.FireAt.After(b.queue.clock()) {
		origin = store.OriginScheduledNotification
	}
	entry, err := b.queue.Enqueue(ctx, &store.OfflineQueueEntry{
		TaskID:      attempt.Task.ID,
		UserID:      attempt.Task.CreatorID,
		FireTs:      attempt.FireAt.Unix(),
		Title:       attempt.Task.Title,
		Body:        attempt.Message,
		UrgencyTier: string(attempt.Tier),
		Origin:      origin,
	})
	if err != nil {
		return nil, err
	}
	return &Receipt{DeliveryID: entry.UID, Backend: b.Name(), Queued: true}, nil
}
