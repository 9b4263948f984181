package store

// ReminderFrequency is the user's preference for how often to be reminded.
type ReminderFrequency string

const (
	ReminderFrequencyMinimal  ReminderFrequency = "minimal"
	ReminderFrequencyNormal   ReminderFrequency = "normal"
	ReminderFrequencyFrequent ReminderFrequency = "frequent"
)

// BehaviorProfile holds per-user timing preferences and history signals used
// to bias reminder timing. It is lazily created with defaults on first use and
// slowly updated by an external collaborator; the scheduler only reads it.
type BehaviorProfile struct {
	Timezone             string
	ReminderFrequency    ReminderFrequency
	CompletionRate       float64 // 0-1
	ProcrastinationScore float64 // 0-1
	UserID               int32
	PreferredStartHour   int32 // preferred study window, local hours
	PreferredEndHour     int32
	AvgTaskMinutes       int32
	StressLevel          int32 // self-reported, 0-10
	QuietStartHour       int32 // quiet hours window, local hours
	QuietEndHour         int32
	CreatedTs            int64
	UpdatedTs            int64
}

// DefaultBehaviorProfile returns the profile used when a user has no stored
// preferences yet.
func DefaultBehaviorProfile(userID int32) *BehaviorProfile {
	return &BehaviorProfile{
		UserID:               userID,
		PreferredStartHour:   9,
		PreferredEndHour:     21,
		AvgTaskMinutes:       45,
		CompletionRate:       0.7,
		ProcrastinationScore: 0.5,
		StressLevel:          5,
		ReminderFrequency:    ReminderFrequencyNormal,
		QuietStartHour:       22,
		QuietEndHour:         7,
		Timezone:             "UTC",
	}
}

// FindBehaviorProfile specifies the conditions for finding behavior profiles.
type FindBehaviorProfile struct {
	UserID *int32
}

// UpsertBehaviorProfile specifies the data for upserting a behavior profile.
type UpsertBehaviorProfile struct {
	Timezone             string
	ReminderFrequency    ReminderFrequency
	CompletionRate       float64
	ProcrastinationScore float64
	UserID               int32
	PreferredStartHour   int32
	PreferredEndHour     int32
	AvgTaskMinutes       int32
	StressLevel          int32
	QuietStartHour       int32
	QuietEndHour         int32
}
