// Package v1 wires the reminder scheduling API onto an echo server.
package v1

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/remindwise/internal/profile"
	"github.com/hrygo/remindwise/scheduler"
	"github.com/hrygo/remindwise/server/auth"
)

type APIV1Service struct {
	ReminderService *ReminderService

	Profile *profile.Profile
	Store   scheduler.Store
	Secret  string
}

func NewAPIV1Service(secret string, profile *profile.Profile, store scheduler.Store, sched *scheduler.Scheduler) *APIV1Service {
	return &APIV1Service{
		ReminderService: &ReminderService{Scheduler: sched, Store: store},
		Profile:         profile,
		Store:           store,
		Secret:          secret,
	}
}

// Register mounts the authenticated API routes on the echo instance.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	apiGroup := echoServer.Group("/api/v1", middleware.CORS(), auth.Middleware(s.Secret))

	apiGroup.POST("/reminders/schedule", s.ReminderService.ScheduleReminders)
	apiGroup.POST("/reminders/snooze", s.ReminderService.SnoozeReminder)
	apiGroup.POST("/tasks/:uid/complete", s.ReminderService.CompleteTask)
	apiGroup.GET("/queue", s.ReminderService.ListQueueEntries)
}
