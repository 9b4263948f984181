package store

// OfflineQueueOrigin records why an entry entered the offline queue.
type OfflineQueueOrigin string

const (
	// OriginPendingSchedule marks entries whose scheduled network send never
	// got accepted by any backend.
	OriginPendingSchedule OfflineQueueOrigin = "pending_schedule"
	// OriginScheduledNotification marks entries that a backend accepted for
	// scheduling but that must also fire locally when the host is offline.
	OriginScheduledNotification OfflineQueueOrigin = "scheduled_notification"
)

// OfflineQueueEntry is a durably persisted reminder that could not be
// delivered through the network backends. Entries are consumed either by the
// periodic local fire-check or by the reconnect replay process.
type OfflineQueueEntry struct {
	UID         string
	Title       string
	Body        string
	UrgencyTier string
	Origin      OfflineQueueOrigin
	ID          int32
	TaskID      int32
	UserID      int32
	FireTs      int64
	CreatedTs   int64
}

// FindOfflineQueueEntry specifies the conditions for finding queue entries.
type FindOfflineQueueEntry struct {
	UID          *string
	TaskID       *int32
	UserID       *int32
	FireTsBefore *int64 // entries whose fire time has passed
}

// DeleteOfflineQueueEntry deletes a single entry by its locally-unique UID.
type DeleteOfflineQueueEntry struct {
	UID string
}
