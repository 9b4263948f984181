// Package localnotify defines the local notification capability used when a
// queued reminder's fire time arrives and no network backend ever accepted it.
//
// Hosts that can surface notifications (a desktop agent, a connected client)
// provide their own Notifier; headless server deployments use Slog, which
// surfaces the reminder in the operator log, or Noop. Capability injection
// replaces runtime environment detection on purpose.
package localnotify

import (
	"context"
	"log/slog"
)

// Notification is a locally displayed reminder.
type Notification struct {
	Title       string
	Body        string
	UrgencyTier string
	TaskID      int32
	UserID      int32
}

// Notifier displays a notification on the local host.
type Notifier interface {
	Notify(ctx context.Context, notification *Notification) error
}

// Noop discards notifications. Used when the host has no local display at all.
type Noop struct{}

func (Noop) Notify(_ context.Context, _ *Notification) error {
	return nil
}

// Slog writes notifications to the structured log.
type Slog struct {
	logger *slog.Logger
}

// NewSlog creates a log-backed notifier. A nil logger uses slog.Default.
func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{logger: logger}
}

func (s *Slog) Notify(ctx context.Context, notification *Notification) error {
	s.logger.InfoContext(ctx, "local reminder fired",
		slog.Int("taskID", int(notification.TaskID)),
		slog.Int("userID", int(notification.UserID)),
		slog.String("tier", notification.UrgencyTier),
		slog.String("title", notification.Title),
	)
	return nil
}
