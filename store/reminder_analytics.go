package store

// ReminderResponse is the user's eventual reaction to a reminder.
type ReminderResponse string

const (
	ResponseIgnored     ReminderResponse = "ignored"
	ResponseSnoozed     ReminderResponse = "snoozed"
	ResponseCompleted   ReminderResponse = "completed"
	ResponseRescheduled ReminderResponse = "rescheduled"
)

// ReminderAnalytics records what was sent, when, and how the user eventually
// responded. Writes are best-effort; the scheduler never blocks on them.
type ReminderAnalytics struct {
	Response        *ReminderResponse
	ResponseSeconds *int64
	Effectiveness   *float64
	UrgencyTier     string
	Backend         string
	ID              int32
	TaskID          int32
	UserID          int32
	FireTs          int64
	SentTs          int64
}

// CreateReminderAnalytics specifies the data for a new analytics record.
type CreateReminderAnalytics struct {
	UrgencyTier string
	Backend     string
	TaskID      int32
	UserID      int32
	FireTs      int64
	SentTs      int64
}

// UpdateReminderResponse records the user response on the most recent
// analytics rows for a task.
type UpdateReminderResponse struct {
	Response   ReminderResponse
	TaskID     int32
	UserID     int32
	ResponseTs int64
}

// FindReminderAnalytics specifies the conditions for finding analytics records.
type FindReminderAnalytics struct {
	TaskID *int32
	UserID *int32
	Limit  *int
}
