// Package schedule answers "what is happening now" for a day of festival events.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

// ParseClock parses "HH:MM" (leading zero on the hour is optional).
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return Clock{}, fmt.Errorf("schedule: invalid time %q, expected HH:MM", s)
	}
	return ClockOf(t), nil
}

// Valid reports whether c is a real time of day.
func (c Clock) Valid() bool {
	return c.Hour >= 0 && c.Hour <= 23 && c.Minute >= 0 && c.Minute <= 59
}

// Before reports whether c is strictly earlier than o.
func (c Clock) Before(o Clock) bool {
	if c.Hour != o.Hour {
		return c.Hour < o.Hour
	}
	return c.Minute < o.Minute
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Event is a scheduled festival item.
type Event struct {
	At          Clock
	Description string
}

// FindCurrent returns the event running at now.
//
// Matching is coarse: an event is running when the hour equals the event's
// hour and the minute is at or past the event's minute. An event stays
// current until the hour ends, even if a later event in the same hour has
// started; the first match in the order of events wins.
func FindCurrent(now Clock, events []Event) (Event, bool) {
	for _, ev := range events {
		if now.Hour == ev.At.Hour && now.Minute >= ev.At.Minute {
			return ev, true
		}
	}
	return Event{}, false
}
