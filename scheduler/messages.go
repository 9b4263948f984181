package scheduler

import (
	"fmt"
	"time"
)

func reminderMessage(tier UrgencyTier, title string, lead time.Duration) string {
	remaining := humanizeDuration(lead)
	switch tier {
	case TierGentle:
		return fmt.Sprintf("Heads up: %q is due in %s.", title, remaining)
	case TierEncouraging:
		return fmt.Sprintf("Keep at it! %q is due in %s.", title, remaining)
	default:
		return fmt.Sprintf("%q is due in %s. Time to wrap it up.", title, remaining)
	}
}

func immediateMessage(title string, overdue bool) string {
	if overdue {
		return fmt.Sprintf("%q is overdue. Take a moment to finish or reschedule it.", title)
	}
	return fmt.Sprintf("%q is due now.", title)
}

func snoozeMessage(title string) string {
	return fmt.Sprintf("Snoozed reminder: %q is still waiting on you.", title)
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "less than a minute"
	case d < time.Hour:
		m := int(d.Round(time.Minute) / time.Minute)
		if m <= 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	case d < 24*time.Hour:
		h := int(d.Round(time.Hour) / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	default:
		days := int(d.Round(24*time.Hour) / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}
