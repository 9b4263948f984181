package store

// TaskPriority is the coarse priority level of a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// Task represents a schedulable task. The task record is owned by an external
// task-management collaborator; the scheduler only reads it and flips Completed.
type Task struct {
	Difficulty          *int32 // 1-10, optional
	ReminderLeadMinutes *int32 // fixed user-chosen lead time, optional
	UID                 string
	Title               string
	Priority            TaskPriority
	ID                  int32
	CreatorID           int32
	DueTs               int64
	CreatedTs           int64
	UpdatedTs           int64
	Completed           bool
}

// FindTask specifies the conditions for finding tasks.
type FindTask struct {
	ID        *int32
	UID       *string
	CreatorID *int32
	Completed *bool
}

// UpdateTask specifies the writable fields of a task. Only completion is
// writable from this service.
type UpdateTask struct {
	Completed *bool
	ID        int32
}
