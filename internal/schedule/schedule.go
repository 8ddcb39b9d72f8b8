// Package schedule turns "every <weekday> from HH:MM to HH:MM" into the
// concrete start and end instants of that weekday's next occurrence.
//
// Weekdays use time.Weekday numbering throughout: 0=Sunday .. 6=Saturday.
package schedule

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidClock   = errors.New("invalid clock time, expected HH:MM")
	ErrInvalidWeekday = errors.New("invalid day of week, expected 0 (Sunday) to 6 (Saturday)")
	ErrEmptySlot      = errors.New("start and end time are equal")
	ErrNoDays         = errors.New("at least one day of week is required")
)

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "H:MM" or "HH:MM" in 24-hour notation.
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) minutes() int {
	return c.Hour*60 + c.Minute
}

// ParseWeekday parses a 0-based weekday number.
func ParseWeekday(s string) (time.Weekday, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
	}
	return WeekdayFromInt(n)
}

func WeekdayFromInt(n int) (time.Weekday, error) {
	if n < int(time.Sunday) || n > int(time.Saturday) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWeekday, n)
	}
	return time.Weekday(n), nil
}

// DaysUntil returns how many days ahead target is from today, in [0, 6].
// Today itself counts as upcoming.
func DaysUntil(today, target time.Weekday) int {
	return (int(target) - int(today) + 7) % 7
}

// Slot is a concrete start/end pair.
type Slot struct {
	Day   time.Weekday
	Start time.Time
	End   time.Time
}

// NextOccurrence computes the slot on the nearest date, seen from now in loc,
// that falls on day. When day is today the slot is today even if start has
// already passed. An end clock earlier than start is taken to cross midnight.
func NextOccurrence(now time.Time, loc *time.Location, day time.Weekday, start, end Clock) (Slot, error) {
	if day < time.Sunday || day > time.Saturday {
		return Slot{}, fmt.Errorf("%w: %d", ErrInvalidWeekday, day)
	}
	if start == end {
		return Slot{}, ErrEmptySlot
	}
	if loc == nil {
		loc = time.UTC
	}

	local := now.In(loc)
	y, m, d := local.Date()
	d += DaysUntil(local.Weekday(), day)

	startAt := time.Date(y, m, d, start.Hour, start.Minute, 0, 0, loc)
	endDay := d
	if end.minutes() < start.minutes() {
		endDay++
	}
	endAt := time.Date(y, m, endDay, end.Hour, end.Minute, 0, 0, loc)

	return Slot{Day: day, Start: startAt, End: endAt}, nil
}

// Weekly computes one slot per distinct day, ordered by date.
func Weekly(now time.Time, loc *time.Location, days []time.Weekday, start, end Clock) ([]Slot, error) {
	if len(days) == 0 {
		return nil, ErrNoDays
	}

	unique := slices.Clone(days)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	slots := make([]Slot, 0, len(unique))
	for _, day := range unique {
		slot, err := NextOccurrence(now, loc, day, start, end)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}

	slices.SortFunc(slots, func(a, b Slot) int {
		return a.Start.Compare(b.Start)
	})
	return slots, nil
}
