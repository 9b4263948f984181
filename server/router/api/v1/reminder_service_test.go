package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/remindwise/internal/profile"
	"github.com/hrygo/remindwise/scheduler"
	"github.com/hrygo/remindwise/server/auth"
	"github.com/hrygo/remindwise/store"
)

const testSecret = "test-secret"

// testStore is a minimal in-memory scheduler.Store for API tests.
type testStore struct {
	mu        sync.Mutex
	tasks     map[int32]*store.Task
	entries   map[string]*store.OfflineQueueEntry
	responses []*store.UpdateReminderResponse
	nextID    int32
}

func newTestStore() *testStore {
	return &testStore{
		tasks:   make(map[int32]*store.Task),
		entries: make(map[string]*store.OfflineQueueEntry),
	}
}

func (s *testStore) GetTask(_ context.Context, find *store.FindTask) (*store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, task := range s.tasks {
		if find.ID != nil && task.ID != *find.ID {
			continue
		}
		if find.UID != nil && task.UID != *find.UID {
			continue
		}
		if find.CreatorID != nil && task.CreatorID != *find.CreatorID {
			continue
		}
		return task, nil
	}
	return nil, nil
}

func (s *testStore) UpdateTask(_ context.Context, update *store.UpdateTask) (*store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[update.ID]
	if !ok {
		return nil, errors.Errorf("task %d not found", update.ID)
	}
	if update.Completed != nil {
		task.Completed = *update.Completed
	}
	return task, nil
}

func (s *testStore) GetBehaviorProfile(_ context.Context, userID int32) (*store.BehaviorProfile, error) {
	return store.DefaultBehaviorProfile(userID), nil
}

func (s *testStore) CreateOfflineQueueEntry(_ context.Context, create *store.OfflineQueueEntry) (*store.OfflineQueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	create.ID = s.nextID
	s.entries[create.UID] = create
	return create, nil
}

func (s *testStore) ListOfflineQueueEntries(_ context.Context, find *store.FindOfflineQueueEntry) ([]*store.OfflineQueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.OfflineQueueEntry
	for _, entry := range s.entries {
		if find.TaskID != nil && entry.TaskID != *find.TaskID {
			continue
		}
		if find.UserID != nil && entry.UserID != *find.UserID {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *testStore) DeleteOfflineQueueEntry(_ context.Context, del *store.DeleteOfflineQueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, del.UID)
	return nil
}

func (s *testStore) CreateReminderAnalytics(_ context.Context, create *store.CreateReminderAnalytics) (*store.ReminderAnalytics, error) {
	return &store.ReminderAnalytics{TaskID: create.TaskID}, nil
}

func (s *testStore) UpdateReminderResponse(_ context.Context, update *store.UpdateReminderResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, update)
	return nil
}

// okBackend accepts every delivery attempt.
type okBackend struct{}

func (okBackend) Name() string { return "push_api" }

func (okBackend) Deliver(_ context.Context, attempt *scheduler.DeliveryAttempt) (*scheduler.Receipt, error) {
	return &scheduler.Receipt{DeliveryID: "d-" + attempt.ID, Backend: "push_api"}, nil
}

func newTestServer(t *testing.T, st *testStore) *echo.Echo {
	t.Helper()
	queue := scheduler.NewOfflineQueue(st, nil, nil)
	dispatcher := scheduler.NewDispatcher(
		[]scheduler.Backend{okBackend{}, scheduler.NewQueueBackend(queue)}, time.Second, nil)
	sched := scheduler.New(st, scheduler.NewGenerator(), dispatcher, queue, nil)

	e := echo.New()
	NewAPIV1Service(testSecret, &profile.Profile{Mode: "dev"}, st, sched).Register(e)
	return e
}

func doRequest(t *testing.T, e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func userToken(t *testing.T, userID int32) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, time.Hour)
	require.NoError(t, err)
	return token
}

func TestScheduleRemindersEndpoint(t *testing.T) {
	st := newTestStore()
	e := newTestServer(t, st)

	due := time.Now().Add(3 * time.Hour).Unix()
	body, _ := json.Marshal(map[string]any{
		"task": map[string]any{
			"id": 1, "uid": "task-1", "title": "Finish lab report",
			"priority": "medium", "dueTs": due,
		},
	})

	rec := doRequest(t, e, http.MethodPost, "/api/v1/reminders/schedule", string(body), userToken(t, 7))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := &scheduler.Result{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), result))
	require.GreaterOrEqual(t, result.Delivered, 1)
	require.Equal(t, 0, result.Failed)
}

func TestScheduleRemindersRequiresAuth(t *testing.T) {
	e := newTestServer(t, newTestStore())

	rec := doRequest(t, e, http.MethodPost, "/api/v1/reminders/schedule", "{}", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, e, http.MethodPost, "/api/v1/reminders/schedule", "{}", "not-a-token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScheduleRemindersRejectsBadTask(t *testing.T) {
	e := newTestServer(t, newTestStore())

	body := `{"task": {"id": 1, "title": "No due date"}}`
	rec := doRequest(t, e, http.MethodPost, "/api/v1/reminders/schedule", body, userToken(t, 7))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body = `{"task": {"id": 1, "title": "Bad priority", "priority": "asap", "dueTs": 1}}`
	rec = doRequest(t, e, http.MethodPost, "/api/v1/reminders/schedule", body, userToken(t, 7))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnoozeEndpoint(t *testing.T) {
	st := newTestStore()
	st.tasks[1] = &store.Task{
		ID: 1, UID: "task-1", CreatorID: 7, Title: "Finish lab report",
		Priority: store.TaskPriorityMedium, DueTs: time.Now().Add(time.Hour).Unix(),
	}
	e := newTestServer(t, st)

	rec := doRequest(t, e, http.MethodPost, "/api/v1/reminders/snooze",
		`{"taskId": 1, "minutes": 10}`, userToken(t, 7))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := &scheduler.Result{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), result))
	require.Equal(t, 1, result.Delivered)

	// Snoozing an unknown task is a caller error.
	rec = doRequest(t, e, http.MethodPost, "/api/v1/reminders/snooze",
		`{"taskId": 99, "minutes": 10}`, userToken(t, 7))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteTaskEndpoint(t *testing.T) {
	st := newTestStore()
	st.tasks[1] = &store.Task{
		ID: 1, UID: "task-1", CreatorID: 7, Title: "Finish lab report",
		Priority: store.TaskPriorityMedium, DueTs: time.Now().Add(time.Hour).Unix(),
	}
	e := newTestServer(t, st)

	rec := doRequest(t, e, http.MethodPost, "/api/v1/tasks/task-1/complete", "", userToken(t, 7))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, st.tasks[1].Completed)

	rec = doRequest(t, e, http.MethodPost, "/api/v1/tasks/unknown/complete", "", userToken(t, 7))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListQueueEntriesEndpoint(t *testing.T) {
	st := newTestStore()
	st.entries["q-1"] = &store.OfflineQueueEntry{
		UID: "q-1", TaskID: 1, UserID: 7, Title: "Finish lab report",
		UrgencyTier: "gentle", Origin: store.OriginPendingSchedule,
		FireTs: time.Now().Add(time.Hour).Unix(),
	}
	st.entries["q-2"] = &store.OfflineQueueEntry{
		UID: "q-2", TaskID: 2, UserID: 8, Title: "Someone else's task",
		UrgencyTier: "gentle", Origin: store.OriginPendingSchedule,
		FireTs: time.Now().Add(time.Hour).Unix(),
	}
	e := newTestServer(t, st)

	rec := doRequest(t, e, http.MethodGet, "/api/v1/queue", "", userToken(t, 7))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Entries []queueEntryPayload `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Entries, 1, "only the caller's entries are listed")
	require.Equal(t, "q-1", payload.Entries[0].UID)
}
