package scheduler

import (
	"reflect"
	"testing"
	"time"

	"github.com/hrygo/remindwise/store"
)

func testTask(due time.Time, priority store.TaskPriority) *store.Task {
	return &store.Task{
		ID:        1,
		UID:       "task-1",
		CreatorID: 7,
		Title:     "Finish lab report",
		DueTs:     due.Unix(),
		Priority:  priority,
	}
}

// noon keeps generated fire times far away from the default quiet hours.
var noon = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestGenerateOverdueTask(t *testing.T) {
	g := NewGenerator()
	task := testTask(noon.Add(-2*time.Hour), store.TaskPriorityLow)

	instructions, err := g.Generate(task, store.DefaultBehaviorProfile(7), noon)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(instructions) != 1 {
		t.Fatalf("len(instructions) = %d, want 1", len(instructions))
	}
	if instructions[0].Tier != TierUrgent || !instructions[0].IsFinal {
		t.Errorf("overdue instruction = %+v, want urgent final", instructions[0])
	}
	if instructions[0].LeadTime != 0 {
		t.Errorf("LeadTime = %v, want 0 (fire immediately)", instructions[0].LeadTime)
	}
}

func TestGenerateDueInFortyFiveSeconds(t *testing.T) {
	g := NewGenerator()
	task := testTask(noon.Add(45*time.Second), store.TaskPriorityMedium)

	instructions, err := g.Generate(task, store.DefaultBehaviorProfile(7), noon)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(instructions) != 1 {
		t.Fatalf("len(instructions) = %d, want 1", len(instructions))
	}
	if instructions[0].LeadTime > time.Minute {
		t.Errorf("LeadTime = %v, want <= 1 minute", instructions[0].LeadTime)
	}
	if instructions[0].Tier != TierUrgent {
		t.Errorf("Tier = %s, want urgent", instructions[0].Tier)
	}
}

func TestGenerateThreeHoursMediumDefaultProfile(t *testing.T) {
	g := NewGenerator()
	task := testTask(noon.Add(3*time.Hour), store.TaskPriorityMedium)

	instructions, err := g.Generate(task, store.DefaultBehaviorProfile(7), noon)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	wantLeads := []time.Duration{2 * time.Hour, 30 * time.Minute, 10 * time.Minute}
	wantTiers := []UrgencyTier{TierGentle, TierEncouraging, TierUrgent}
	if len(instructions) != 3 {
		t.Fatalf("len(instructions) = %d, want 3", len(instructions))
	}
	for i, ins := range instructions {
		if ins.LeadTime != wantLeads[i] {
			t.Errorf("instructions[%d].LeadTime = %v, want %v", i, ins.LeadTime, wantLeads[i])
		}
		if ins.Tier != wantTiers[i] {
			t.Errorf("instructions[%d].Tier = %s, want %s", i, ins.Tier, wantTiers[i])
		}
	}
	if !instructions[2].IsFinal {
		t.Error("last instruction should be marked final")
	}
	if instructions[0].IsFinal || instructions[1].IsFinal {
		t.Error("only the last instruction may be final")
	}
}

func TestGenerateTwoDayBoundaryLandsInOneBucket(t *testing.T) {
	g := NewGenerator()
	// 18:00 anchor keeps the 8h lead's fire time out of quiet hours.
	evening := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	task := testTask(evening.Add(48*time.Hour), store.TaskPriorityMedium)

	instructions, err := g.Generate(task, store.DefaultBehaviorProfile(7), evening)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	// Exactly 48h is not "> 2 days", so it takes the one-day template.
	wantLeads := []time.Duration{8 * time.Hour, 2 * time.Hour, 15 * time.Minute}
	for i, ins := range instructions {
		if ins.LeadTime != wantLeads[i] {
			t.Errorf("instructions[%d].LeadTime = %v, want %v", i, ins.LeadTime, wantLeads[i])
		}
	}
}

func TestGenerateVeryLongHorizon(t *testing.T) {
	g := NewGenerator()
	task := testTask(noon.Add(72*time.Hour), store.TaskPriorityMedium)

	instructions, err := g.Generate(task, store.DefaultBehaviorProfile(7), noon)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(instructions) != 3 {
		t.Fatalf("len(instructions) = %d, want 3", len(instructions))
	}
	until := 72 * time.Hour
	for i := range instructions {
		if instructions[i].LeadTime >= until {
			t.Errorf("instructions[%d].LeadTime = %v, want < %v", i, instructions[i].LeadTime, until)
		}
		if i > 0 && instructions[i].LeadTime >= instructions[i-1].LeadTime {
			t.Errorf("lead times must be strictly decreasing, got %v then %v",
				instructions[i-1].LeadTime, instructions[i].LeadTime)
		}
	}
}

func TestGenerateNinetySecondsUrgent(t *testing.T) {
	g := NewGenerator()
	task := testTask(noon.Add(90*time.Second), store.TaskPriorityUrgent)

	instructions, err := g.Generate(task, store.DefaultBehaviorProfile(7), noon)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(instructions) != 1 {
		t.Fatalf("len(instructions) = %d, want 1", len(instructions))
	}
	if instructions[0].LeadTime > 90*time.Second {
		t.Errorf("LeadTime = %v, want <= 1.5 minutes", instructions[0].LeadTime)
	}
	if instructions[0].Tier != TierUrgent {
		t.Errorf("Tier = %s, want urgent", instructions[0].Tier)
	}
}

func TestGenerateFallbackWhenEverythingClamps(t *testing.T) {
	g := NewGenerator()
	// 80 seconds out: the template lead clamps past the due guard, so the
	// halfway fallback must kick in.
	task := testTask(noon.Add(80*time.Second), store.TaskPriorityUrgent)

	instructions, err := g.Generate(task, store.DefaultBehaviorProfile(7), noon)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(instructions) != 1 {
		t.Fatalf("len(instructions) = %d, want 1", len(instructions))
	}
	if instructions[0].LeadTime < minLead || instructions[0].LeadTime >= 80*time.Second {
		t.Errorf("fallback LeadTime = %v, want within [%v, 80s)", instructions[0].LeadTime, minLead)
	}
}

func TestGenerateIdempotent(t *testing.T) {
	g := NewGenerator()
	task := testTask(noon.Add(26*time.Hour), store.TaskPriorityHigh)
	bp := store.DefaultBehaviorProfile(7)

	first, err := g.Generate(task, bp, noon)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	second, err := g.Generate(task, bp, noon)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different output:\n%v\n%v", first, second)
	}
}

func TestGeneratePriorityNeverDecreasesLeadTimes(t *testing.T) {
	g := NewGenerator()
	bp := store.DefaultBehaviorProfile(7)
	priorities := []store.TaskPriority{
		store.TaskPriorityLow,
		store.TaskPriorityMedium,
		store.TaskPriorityHigh,
		store.TaskPriorityUrgent,
	}

	var previous []Instruction
	for _, priority := range priorities {
		task := testTask(noon.Add(72*time.Hour), priority)
		instructions, err := g.Generate(task, bp, noon)
		if err != nil {
			t.Fatalf("Generate(%s) error = %v", priority, err)
		}
		if previous != nil {
			if len(instructions) != len(previous) {
				t.Fatalf("priority %s changed sequence length: %d vs %d", priority, len(instructions), len(previous))
			}
			for i := range instructions {
				if instructions[i].LeadTime < previous[i].LeadTime {
					t.Errorf("priority %s decreased lead %d: %v < %v",
						priority, i, instructions[i].LeadTime, previous[i].LeadTime)
				}
			}
		}
		previous = instructions
	}
}

func TestGenerateMinimalFrequencyTrimsMiddle(t *testing.T) {
	g := NewGenerator()
	bp := store.DefaultBehaviorProfile(7)
	bp.ReminderFrequency = store.ReminderFrequencyMinimal
	task := testTask(noon.Add(3*time.Hour), store.TaskPriorityMedium)

	instructions, err := g.Generate(task, bp, noon)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(instructions) != 2 {
		t.Fatalf("len(instructions) = %d, want 2 for minimal preference", len(instructions))
	}
	if instructions[0].LeadTime != 2*time.Hour || instructions[1].LeadTime != 10*time.Minute {
		t.Errorf("minimal preference should keep first and last leads, got %v and %v",
			instructions[0].LeadTime, instructions[1].LeadTime)
	}
	if !instructions[1].IsFinal {
		t.Error("last instruction should stay final after trimming")
	}
}

func TestGenerateFixedLeadReplacesNearest(t *testing.T) {
	g := NewGenerator()
	fixed := int32(45)
	task := testTask(noon.Add(3*time.Hour), store.TaskPriorityMedium)
	task.ReminderLeadMinutes = &fixed

	instructions, err := g.Generate(task, store.DefaultBehaviorProfile(7), noon)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	found := false
	for _, ins := range instructions {
		if ins.LeadTime == 45*time.Minute {
			found = true
		}
	}
	if !found {
		t.Errorf("fixed 45m lead not honored, got %+v", instructions)
	}
}

func TestGenerateQuietHoursShiftSparesFinal(t *testing.T) {
	g := NewGenerator()
	bp := store.DefaultBehaviorProfile(7) // quiet 22:00-07:00 UTC
	evening := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	task := testTask(evening.Add(12*time.Hour), store.TaskPriorityMedium) // due 06:00

	instructions, err := g.Generate(task, bp, evening)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	due := time.Unix(task.DueTs, 0)
	for i, ins := range instructions {
		fireAt := due.Add(-ins.LeadTime).UTC()
		if ins.IsFinal {
			continue // the final nudge fires even in quiet hours
		}
		if inQuietWindow(fireAt, bp.QuietStartHour, bp.QuietEndHour) {
			t.Errorf("non-final instruction %d fires at %v inside quiet hours", i, fireAt)
		}
	}
	last := instructions[len(instructions)-1]
	if !last.IsFinal || last.Tier != TierUrgent {
		t.Errorf("last instruction = %+v, want final urgent", last)
	}
}
