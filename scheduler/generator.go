package scheduler

import (
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/remindwise/store"
)

const (
	// minLead is the smallest lead time a generated reminder may have.
	minLead = 30 * time.Second
	// dueGuard keeps every reminder at least this far from the due instant.
	dueGuard = time.Minute
	// quietShiftSlack is the minimum advance notice that must remain after a
	// quiet-hours shift for the shift to be applied.
	quietShiftSlack = 15 * time.Minute
)

// leadTemplate maps a time-until-due horizon to a base sequence of lead
// times, ordered furthest-from-due first. More advance notice means more
// reminders, with values scaling down as the deadline approaches.
type leadTemplate struct {
	leads   []time.Duration
	horizon time.Duration // template applies when timeUntilDue > horizon
}

var leadTemplates = []leadTemplate{
	{horizon: 48 * time.Hour, leads: []time.Duration{24 * time.Hour, 4 * time.Hour, 30 * time.Minute}},
	{horizon: 24 * time.Hour, leads: []time.Duration{8 * time.Hour, 2 * time.Hour, 15 * time.Minute}},
	{horizon: 2 * time.Hour, leads: []time.Duration{2 * time.Hour, 30 * time.Minute, 10 * time.Minute}},
	{horizon: time.Hour, leads: []time.Duration{time.Hour, 15 * time.Minute, 5 * time.Minute}},
	{horizon: 30 * time.Minute, leads: []time.Duration{15 * time.Minute, 5 * time.Minute}},
	{horizon: 10 * time.Minute, leads: []time.Duration{5 * time.Minute, 2 * time.Minute}},
	{horizon: 3 * time.Minute, leads: []time.Duration{2 * time.Minute}},
	{horizon: time.Minute, leads: []time.Duration{time.Minute}},
}

// priorityAdjust shifts every lead time by a small amount so higher-priority
// tasks are warned earlier. The sign convention follows the product decision:
// urgent tasks get more buffer, not more late-stage nagging.
var priorityAdjust = map[store.TaskPriority]time.Duration{
	store.TaskPriorityLow:    -2 * time.Minute,
	store.TaskPriorityMedium: 0,
	store.TaskPriorityHigh:   2 * time.Minute,
	store.TaskPriorityUrgent: 5 * time.Minute,
}

// Generator derives reminder instruction sequences. It is pure: identical
// inputs (including now) produce identical output.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate produces 1-3 instructions for the task, ordered so that the first
// instruction fires first. Every non-immediate instruction's fire time lies
// strictly between now and the due instant.
func (g *Generator) Generate(task *store.Task, bp *store.BehaviorProfile, now time.Time) ([]Instruction, error) {
	if task == nil || task.DueTs == 0 {
		return nil, errors.Wrap(ErrInvalidTask, "task due timestamp is required")
	}

	due := time.Unix(task.DueTs, 0)
	until := due.Sub(now)

	// Due now or overdue: one immediate urgent nudge.
	if until <= 0 {
		return []Instruction{immediateInstruction(task, true)}, nil
	}
	// Less than a minute away: the only sensible reminder is "now".
	if until <= time.Minute {
		return []Instruction{immediateInstruction(task, false)}, nil
	}

	leads := g.surviveLeads(task, bp, until)
	if len(leads) == 0 {
		// Everything clamped away; synthesize one reminder halfway to due.
		fallback := until / 2
		if fallback < minLead {
			fallback = minLead
		}
		leads = []time.Duration{fallback}
	}

	leads = g.avoidQuietHours(leads, bp, due, until)

	instructions := make([]Instruction, 0, len(leads))
	for i, lead := range leads {
		tier := tierForPosition(i, len(leads))
		instructions = append(instructions, Instruction{
			LeadTime: lead,
			Tier:     tier,
			Message:  reminderMessage(tier, task.Title, lead),
			IsFinal:  i == len(leads)-1,
		})
	}
	return instructions, nil
}

// surviveLeads applies the template table, the priority adjustment and the
// clamp-and-discard rules, returning a strictly decreasing lead sequence.
func (g *Generator) surviveLeads(task *store.Task, bp *store.BehaviorProfile, until time.Duration) []time.Duration {
	var template []time.Duration
	for _, t := range leadTemplates {
		if until > t.horizon {
			template = t.leads
			break
		}
	}
	if template == nil {
		return nil
	}

	adjust := priorityAdjust[task.Priority]
	if bp != nil {
		// A strong procrastination tendency widens the buffer further.
		adjust = time.Duration(float64(adjust) * (1 + bp.ProcrastinationScore*0.5))
	}

	maxLead := until - dueGuard
	if maxLead < minLead {
		return nil
	}

	leads := make([]time.Duration, 0, len(template))
	for _, base := range template {
		lead := base + adjust
		if lead < minLead {
			lead = minLead
		}
		if lead > maxLead {
			lead = maxLead
		}
		leads = append(leads, lead)
	}
	leads = strictlyDecreasing(leads)

	if bp != nil && bp.ReminderFrequency == store.ReminderFrequencyMinimal && len(leads) == 3 {
		// Minimal preference keeps the advance notice and the final nudge only.
		leads = []time.Duration{leads[0], leads[2]}
	}

	if task.ReminderLeadMinutes != nil {
		leads = mergeFixedLead(leads, time.Duration(*task.ReminderLeadMinutes)*time.Minute, maxLead)
	}
	return leads
}

// mergeFixedLead honors the user's fixed lead-time choice by replacing the
// nearest generated lead, keeping the sequence at its usual length.
func mergeFixedLead(leads []time.Duration, fixed, maxLead time.Duration) []time.Duration {
	if fixed < minLead || fixed > maxLead || len(leads) == 0 {
		return leads
	}
	nearest := 0
	for i, lead := range leads {
		if absDuration(lead-fixed) < absDuration(leads[nearest]-fixed) {
			nearest = i
		}
	}
	leads[nearest] = fixed
	// Replacing a value can break ordering against its neighbors.
	for i := 1; i < len(leads); i++ {
		for j := i; j > 0 && leads[j] > leads[j-1]; j-- {
			leads[j], leads[j-1] = leads[j-1], leads[j]
		}
	}
	return strictlyDecreasing(leads)
}

// avoidQuietHours nudges non-final reminders that would fire inside the
// user's quiet window to the window's start, provided enough slack remains.
// The final reminder always fires; deadline proximity beats quiet hours.
func (g *Generator) avoidQuietHours(leads []time.Duration, bp *store.BehaviorProfile, due time.Time, until time.Duration) []time.Duration {
	if bp == nil || bp.QuietStartHour == bp.QuietEndHour {
		return leads
	}
	loc, err := time.LoadLocation(bp.Timezone)
	if err != nil {
		loc = time.UTC
	}

	maxLead := until - dueGuard
	for i := 0; i < len(leads)-1; i++ {
		fireAt := due.Add(-leads[i]).In(loc)
		if !inQuietWindow(fireAt, bp.QuietStartHour, bp.QuietEndHour) {
			continue
		}
		// Land just ahead of the window so the reminder arrives while the
		// user is still up.
		shifted := quietWindowStart(fireAt, bp.QuietStartHour).Add(-time.Minute)
		newLead := due.Sub(shifted)
		if newLead > maxLead || newLead > until-quietShiftSlack {
			continue
		}
		leads[i] = newLead
	}
	return strictlyDecreasing(leads)
}

func inQuietWindow(t time.Time, startHour, endHour int32) bool {
	h := int32(t.Hour())
	if startHour > endHour {
		// Window crosses midnight, e.g. 22:00-07:00.
		return h >= startHour || h < endHour
	}
	return h >= startHour && h < endHour
}

// quietWindowStart returns the instant the surrounding quiet window began.
func quietWindowStart(t time.Time, startHour int32) time.Time {
	start := time.Date(t.Year(), t.Month(), t.Day(), int(startHour), 0, 0, 0, t.Location())
	if start.After(t) {
		start = start.AddDate(0, 0, -1)
	}
	return start
}

func strictlyDecreasing(leads []time.Duration) []time.Duration {
	out := leads[:0]
	for _, lead := range leads {
		if len(out) == 0 || lead < out[len(out)-1] {
			out = append(out, lead)
		}
	}
	return out
}

func tierForPosition(i, n int) UrgencyTier {
	switch {
	case i == n-1:
		return TierUrgent
	case i == 0:
		return TierGentle
	default:
		return TierEncouraging
	}
}

func immediateInstruction(task *store.Task, overdue bool) Instruction {
	return Instruction{
		LeadTime: 0,
		Tier:     TierUrgent,
		Message:  immediateMessage(task.Title, overdue),
		IsFinal:  true,
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
