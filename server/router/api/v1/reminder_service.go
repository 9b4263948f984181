package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/remindwise/scheduler"
	"github.com/hrygo/remindwise/server/auth"
	"github.com/hrygo/remindwise/store"
)

// ReminderService exposes the scheduling pipeline over HTTP.
type ReminderService struct {
	Scheduler *scheduler.Scheduler
	Store     scheduler.Store
}

// taskPayload is the task record as the external task-management collaborator
// sends it. The scheduler does not own tasks; it only reads them.
type taskPayload struct {
	UID                 string `json:"uid"`
	Title               string `json:"title"`
	Priority            string `json:"priority"`
	ID                  int32  `json:"id"`
	DueTs               int64  `json:"dueTs"`
	ReminderLeadMinutes *int32 `json:"reminderLeadMinutes,omitempty"`
	Difficulty          *int32 `json:"difficulty,omitempty"`
}

type scheduleRemindersRequest struct {
	Task taskPayload `json:"task"`
}

func (p *taskPayload) toStore(creatorID int32) (*store.Task, error) {
	if p.Title == "" {
		return nil, errors.New("task title is required")
	}
	if p.DueTs <= 0 {
		return nil, errors.New("task dueTs must be a positive timestamp")
	}
	priority := store.TaskPriority(p.Priority)
	if p.Priority == "" {
		priority = store.TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, errors.Errorf("unknown priority %q", p.Priority)
	}
	return &store.Task{
		ID:                  p.ID,
		UID:                 p.UID,
		CreatorID:           creatorID,
		Title:               p.Title,
		Priority:            priority,
		DueTs:               p.DueTs,
		ReminderLeadMinutes: p.ReminderLeadMinutes,
		Difficulty:          p.Difficulty,
	}, nil
}

// ScheduleReminders derives and dispatches the reminder sequence for a task.
func (s *ReminderService) ScheduleReminders(c echo.Context) error {
	request := &scheduleRemindersRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	task, err := request.Task.toStore(auth.UserID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := s.Scheduler.ScheduleReminders(c.Request().Context(), task, nil)
	switch {
	case errors.Is(err, scheduler.ErrInvalidTask):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, scheduler.ErrNothingScheduled):
		// Every backend including the durable queue refused; the caller must
		// know nothing will fire.
		return c.JSON(http.StatusBadGateway, result)
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

type snoozeRequest struct {
	TaskID  int32 `json:"taskId"`
	Minutes int32 `json:"minutes"`
}

// SnoozeReminder schedules one extra reminder a few minutes out.
func (s *ReminderService) SnoozeReminder(c echo.Context) error {
	request := &snoozeRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	result, err := s.Scheduler.Snooze(c.Request().Context(), request.TaskID, auth.UserID(c), request.Minutes)
	switch {
	case errors.Is(err, scheduler.ErrInvalidTask):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, scheduler.ErrNothingScheduled):
		return c.JSON(http.StatusBadGateway, result)
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// CompleteTask marks a task done and cancels its outstanding reminders.
func (s *ReminderService) CompleteTask(c echo.Context) error {
	uid := c.Param("uid")
	userID := auth.UserID(c)

	task, err := s.Store.GetTask(c.Request().Context(), &store.FindTask{UID: &uid, CreatorID: &userID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if task == nil {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}

	if err := s.Scheduler.MarkCompleted(c.Request().Context(), task.ID, userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"taskId":    task.ID,
		"completed": true,
	})
}

type queueEntryPayload struct {
	UID         string `json:"uid"`
	Title       string `json:"title"`
	UrgencyTier string `json:"urgencyTier"`
	Origin      string `json:"origin"`
	TaskID      int32  `json:"taskId"`
	FireTs      int64  `json:"fireTs"`
	CreatedTs   int64  `json:"createdTs"`
}

// ListQueueEntries returns the caller's pending offline-queue entries.
func (s *ReminderService) ListQueueEntries(c echo.Context) error {
	userID := auth.UserID(c)
	entries, err := s.Store.ListOfflineQueueEntries(c.Request().Context(), &store.FindOfflineQueueEntry{UserID: &userID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	payload := make([]queueEntryPayload, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, queueEntryPayload{
			UID:         entry.UID,
			Title:       entry.Title,
			UrgencyTier: entry.UrgencyTier,
			Origin:      string(entry.Origin),
			TaskID:      entry.TaskID,
			FireTs:      entry.FireTs,
			CreatedTs:   entry.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"entries": payload})
}
