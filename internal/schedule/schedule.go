// Package schedule evaluates recurring weekly enforcement windows.
// Pure functions only: no state, no side effects, deterministic given now.
package schedule

import (
	"fmt"
	"time"

	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
)

// IsWithinSchedule reports whether now falls inside any enabled schedule
// window. Overnight windows (start > end) are anchored on the day they
// start: the pre-midnight portion matches on a scheduled day, the
// post-midnight portion matches when the previous day was scheduled.
func IsWithinSchedule(schedules []domain.Schedule, now time.Time) bool {
	currentDay := WeekdayIndex(now)
	previousDay := (currentDay + 6) % 7
	currentTime := now.Format("15:04")

	for _, sched := range schedules {
		if !sched.Enabled {
			continue
		}
		if ValidateClock(sched.Start) != nil || ValidateClock(sched.End) != nil {
			continue
		}
		if sched.Start == sched.End {
			// Zero-width window, disabled in practice.
			continue
		}

		if sched.Start <= sched.End {
			// Same-day window.
			if containsDay(sched.Days, currentDay) &&
				sched.Start <= currentTime && currentTime <= sched.End {
				return true
			}
			continue
		}

		// Overnight window.
		if containsDay(sched.Days, currentDay) && currentTime >= sched.Start {
			return true
		}
		if containsDay(sched.Days, previousDay) && currentTime <= sched.End {
			return true
		}
	}
	return false
}

// WeekdayIndex maps a time to the 0=Monday .. 6=Sunday numbering used by
// Schedule.Days (Go's time.Weekday starts at Sunday).
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ValidateClock checks a zero-padded "HH:MM" clock string. Zero padding
// matters: window comparison relies on lexicographic ordering.
func ValidateClock(clock string) error {
	if len(clock) != 5 || clock[2] != ':' {
		return fmt.Errorf("invalid time %q, expected HH:MM", clock)
	}
	hh, ok1 := twoDigits(clock[0], clock[1])
	mm, ok2 := twoDigits(clock[3], clock[4])
	if !ok1 || !ok2 || hh > 23 || mm > 59 {
		return fmt.Errorf("invalid time %q, expected HH:MM", clock)
	}
	return nil
}

// ValidateDays checks that every weekday index is within 0=Monday .. 6=Sunday.
func ValidateDays(days []int) error {
	if len(days) == 0 {
		return fmt.Errorf("schedule needs at least one weekday")
	}
	for _, d := range days {
		if d < 0 || d > 6 {
			return fmt.Errorf("invalid weekday %d, expected 0 (Monday) to 6 (Sunday)", d)
		}
	}
	return nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
