// README: Wall-clock schedule parsing and the departure/expiry predicates shared by feed, chat and history.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GraceWindow is how long after departure a ride stays discoverable.
const GraceWindow = time.Hour

const dateLayout = "2006-01-02"

var ErrMalformedSchedule = errors.New("malformed schedule")

// ToInstant combines a YYYY-MM-DD date and an "hh:mm AM|PM" clock into an
// instant in loc.
func ToInstant(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, ErrMalformedSchedule
	}
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrMalformedSchedule, date)
	}
	hour, minute, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}

func parseClock(clock string) (int, int, error) {
	parts := strings.Fields(clock)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: clock %q", ErrMalformedSchedule, clock)
	}
	hm := strings.Split(parts[0], ":")
	if len(hm) != 2 {
		return 0, 0, fmt.Errorf("%w: clock %q", ErrMalformedSchedule, clock)
	}
	hour, err := strconv.Atoi(hm[0])
	if err != nil || hour < 1 || hour > 12 {
		return 0, 0, fmt.Errorf("%w: hour %q", ErrMalformedSchedule, hm[0])
	}
	minute, err := strconv.Atoi(hm[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute %q", ErrMalformedSchedule, hm[1])
	}
	switch strings.ToUpper(parts[1]) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	default:
		return 0, 0, fmt.Errorf("%w: meridiem %q", ErrMalformedSchedule, parts[1])
	}
	return hour, minute, nil
}

// FormatClock renders hour/minute/meridiem the way rides store them, e.g. "09:05 PM".
func FormatClock(hour, minute int, meridiem string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(meridiem))
	if hour < 1 || hour > 12 || minute < 0 || minute > 59 || (m != "AM" && m != "PM") {
		return "", ErrMalformedSchedule
	}
	return fmt.Sprintf("%02d:%02d %s", hour, minute, m), nil
}

// IsPastDeparture reports whether now is strictly after the scheduled
// departure. A malformed schedule is never past departure.
func IsPastDeparture(date, clock string, now time.Time) bool {
	dep, err := ToInstant(date, clock, now.Location())
	if err != nil {
		return false
	}
	return now.After(dep)
}

// IsExpired reports whether now is strictly after departure plus GraceWindow.
// A malformed schedule never expires.
func IsExpired(date, clock string, now time.Time) bool {
	dep, err := ToInstant(date, clock, now.Location())
	if err != nil {
		return false
	}
	return now.After(dep.Add(GraceWindow))
}
