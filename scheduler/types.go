// Package scheduler implements the adaptive reminder scheduler: it derives a
// sequence of reminder instructions from a task's due time, priority and the
// user's behavior profile, then pushes each instruction through an ordered
// chain of delivery backends, falling back to a durable offline queue.
package scheduler

import (
	"time"

	"github.com/hrygo/remindwise/store"
)

// UrgencyTier classifies a reminder's tone and notification priority.
type UrgencyTier string

const (
	TierGentle      UrgencyTier = "gentle"
	TierEncouraging UrgencyTier = "encouraging"
	TierUrgent      UrgencyTier = "urgent"
)

// Instruction is one derived reminder in a sequence, ordered from
// furthest-from-due to closest-to-due. Instructions are ephemeral; they exist
// only to build delivery attempts.
type Instruction struct {
	Message  string
	Tier     UrgencyTier
	LeadTime time.Duration // how long before the due instant this fires
	IsFinal  bool          // last reminder in the sequence
}

// DeliveryAttempt is one instruction bound to a concrete fire time, handed to
// the backend chain.
type DeliveryAttempt struct {
	Task          *store.Task
	ID            string
	Message       string
	Tier          UrgencyTier
	FireAt        time.Time
	PriorityScore float64
	IsFinal       bool
}

// Receipt acknowledges that a backend accepted a delivery attempt.
type Receipt struct {
	DeliveryID string
	Backend    string
	Queued     bool // accepted by the terminal offline-queue backend
}

// priorityScore maps a task's priority and the user's behavior signals to a
// coarse score carried on the attempt for backends that support priority hints.
func priorityScore(task *store.Task, bp *store.BehaviorProfile) float64 {
	score := map[store.TaskPriority]float64{
		store.TaskPriorityLow:    0.25,
		store.TaskPriorityMedium: 0.5,
		store.TaskPriorityHigh:   0.75,
		store.TaskPriorityUrgent: 1.0,
	}[task.Priority]
	if score == 0 {
		score = 0.5
	}
	if bp != nil && bp.ProcrastinationScore > 0.7 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}
