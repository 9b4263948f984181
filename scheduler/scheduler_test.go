package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/remindwise/store"
)

func (s *fakeStore) analyticsCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.analytics)
}

func newTestScheduler(st *fakeStore, backends ...Backend) *Scheduler {
	queue := NewOfflineQueue(st, nil, nil)
	queue.clock = func() time.Time { return noon }
	chain := append(backends, NewQueueBackend(queue))
	dispatcher := NewDispatcher(chain, time.Second, nil)
	s := New(st, NewGenerator(), dispatcher, queue, nil)
	s.clock = func() time.Time { return noon }
	return s
}

func storedTask(st *fakeStore, due time.Time, priority store.TaskPriority) *store.Task {
	task := testTask(due, priority)
	st.mu.Lock()
	st.tasks[task.ID] = task
	st.mu.Unlock()
	return task
}

func TestScheduleRemindersRejectsInvalidTask(t *testing.T) {
	s := newTestScheduler(newFakeStore(), &fakeBackend{name: "push_api"})

	_, err := s.ScheduleReminders(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrInvalidTask)

	_, err = s.ScheduleReminders(context.Background(), &store.Task{ID: 1}, nil)
	require.ErrorIs(t, err, ErrInvalidTask)

	completed := testTask(noon.Add(time.Hour), store.TaskPriorityMedium)
	completed.Completed = true
	_, err = s.ScheduleReminders(context.Background(), completed, nil)
	require.ErrorIs(t, err, ErrInvalidTask)
}

func TestScheduleRemindersDeliversEveryInstruction(t *testing.T) {
	st := newFakeStore()
	backend := &fakeBackend{name: "push_api", cancelable: true}
	s := newTestScheduler(st, backend)
	task := storedTask(st, noon.Add(3*time.Hour), store.TaskPriorityMedium)

	result, err := s.ScheduleReminders(context.Background(), task, nil)
	require.NoError(t, err)
	require.True(t, result.Success())
	require.Equal(t, 3, result.Delivered)
	require.Equal(t, 0, result.Queued)
	require.Equal(t, 0, result.Failed)
	require.Equal(t, 3, backend.deliveredCount())

	// All three fire in the future, so all three stay cancelable.
	require.Equal(t, 3, s.PendingCount(task.ID, task.CreatorID))

	require.Eventually(t, func() bool { return st.analyticsCount() == 3 },
		time.Second, 10*time.Millisecond, "every delivery records analytics")
}

func TestScheduleRemindersFallsBackToQueue(t *testing.T) {
	st := newFakeStore()
	backend := &fakeBackend{name: "push_api", err: errors.New("network down")}
	s := newTestScheduler(st, backend)
	task := storedTask(st, noon.Add(3*time.Hour), store.TaskPriorityMedium)

	result, err := s.ScheduleReminders(context.Background(), task, nil)
	require.NoError(t, err, "queued reminders still count as success")
	require.True(t, result.Success())
	require.Equal(t, 0, result.Delivered)
	require.Equal(t, 3, result.Queued)
	require.Equal(t, 3, st.entryCount(), "every instruction lands in the offline queue")
}

func TestScheduleRemindersNothingScheduled(t *testing.T) {
	st := newFakeStore()
	st.failQueue = true
	backend := &fakeBackend{name: "push_api", err: errors.New("network down")}
	s := newTestScheduler(st, backend)
	task := storedTask(st, noon.Add(3*time.Hour), store.TaskPriorityMedium)

	result, err := s.ScheduleReminders(context.Background(), task, nil)
	require.ErrorIs(t, err, ErrNothingScheduled)
	require.NotNil(t, result, "partial detail survives total failure")
	require.Equal(t, 3, result.Failed)
}

func TestMarkCompletedCancelsEverything(t *testing.T) {
	st := newFakeStore()
	backend := &fakeBackend{name: "push_api", cancelable: true}
	s := newTestScheduler(st, backend)
	task := storedTask(st, noon.Add(3*time.Hour), store.TaskPriorityMedium)

	_, err := s.ScheduleReminders(context.Background(), task, nil)
	require.NoError(t, err)
	require.Equal(t, 3, s.PendingCount(task.ID, task.CreatorID))

	// A queued entry from an earlier offline period must go away too.
	_, err = s.Queue().Enqueue(context.Background(), queueEntry("stale", task.ID, noon.Add(2*time.Hour)))
	require.NoError(t, err)

	require.NoError(t, s.MarkCompleted(context.Background(), task.ID, task.CreatorID))

	require.Equal(t, 0, s.PendingCount(task.ID, task.CreatorID))
	require.Equal(t, 0, st.entryCount())
	require.True(t, st.tasks[task.ID].Completed)

	backend.mu.Lock()
	canceled := len(backend.canceled)
	backend.mu.Unlock()
	require.Equal(t, 3, canceled, "vendor-scheduled sends are revoked")

	require.Eventually(t, func() bool { return st.responseCount() == 1 },
		time.Second, 10*time.Millisecond)
	require.Equal(t, store.ResponseCompleted, st.responses[0].Response)
}

func TestMarkCompletedIsIdempotent(t *testing.T) {
	st := newFakeStore()
	s := newTestScheduler(st, &fakeBackend{name: "push_api"})
	task := storedTask(st, noon.Add(3*time.Hour), store.TaskPriorityMedium)

	require.NoError(t, s.MarkCompleted(context.Background(), task.ID, task.CreatorID))
	require.NoError(t, s.MarkCompleted(context.Background(), task.ID, task.CreatorID))
}

func TestSnoozeSchedulesSingleUrgentReminder(t *testing.T) {
	st := newFakeStore()
	backend := &fakeBackend{name: "push_api"}
	s := newTestScheduler(st, backend)
	task := storedTask(st, noon.Add(3*time.Hour), store.TaskPriorityMedium)

	result, err := s.Snooze(context.Background(), task.ID, task.CreatorID, 10)
	require.NoError(t, err)
	require.Equal(t, 1, result.Delivered)
	require.Len(t, result.Outcomes, 1)
	require.Equal(t, TierUrgent, result.Outcomes[0].Tier)
	require.Equal(t, noon.Add(10*time.Minute), result.Outcomes[0].FireAt)

	require.Eventually(t, func() bool { return st.responseCount() == 1 },
		time.Second, 10*time.Millisecond)
	require.Equal(t, store.ResponseSnoozed, st.responses[0].Response)
}

func TestSnoozeRejectsBadInput(t *testing.T) {
	st := newFakeStore()
	s := newTestScheduler(st, &fakeBackend{name: "push_api"})

	_, err := s.Snooze(context.Background(), 1, 7, 0)
	require.ErrorIs(t, err, ErrInvalidTask)

	_, err = s.Snooze(context.Background(), 99, 7, 10)
	require.ErrorIs(t, err, ErrInvalidTask, "unknown task cannot be snoozed")
}
