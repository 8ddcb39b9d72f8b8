package schedule

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "08:00", want: Clock{8, 0}},
		{in: "8:05", want: Clock{8, 5}},
		{in: "23:59", want: Clock{23, 59}},
		{in: " 20:30 ", want: Clock{20, 30}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "1200", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseClock(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidClock) {
					t.Fatalf("ParseClock(%q) error = %v, want ErrInvalidClock", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q) unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseClock(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseWeekday(t *testing.T) {
	for _, in := range []string{"0", "3", "6"} {
		if _, err := ParseWeekday(in); err != nil {
			t.Errorf("ParseWeekday(%q) unexpected error: %v", in, err)
		}
	}
	for _, in := range []string{"-1", "7", "monday", ""} {
		if _, err := ParseWeekday(in); !errors.Is(err, ErrInvalidWeekday) {
			t.Errorf("ParseWeekday(%q) error = %v, want ErrInvalidWeekday", in, err)
		}
	}
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		name          string
		today, target time.Weekday
		want          int
	}{
		{"same day", time.Wednesday, time.Wednesday, 0},
		{"tomorrow", time.Wednesday, time.Thursday, 1},
		{"yesterday rolls to next week", time.Wednesday, time.Tuesday, 6},
		{"saturday to sunday", time.Saturday, time.Sunday, 1},
		{"sunday to saturday", time.Sunday, time.Saturday, 6},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DaysUntil(tc.today, tc.target); got != tc.want {
				t.Errorf("DaysUntil(%v, %v) = %d, want %d", tc.today, tc.target, got, tc.want)
			}
		})
	}
}

func TestNextOccurrence(t *testing.T) {
	loc := mustLocation(t, "Atlantic/Canary")
	// Wednesday 2026-10-14, 21:15 local.
	now := time.Date(2026, time.October, 14, 21, 15, 42, 0, loc)

	t.Run("today even when start has passed", func(t *testing.T) {
		slot, err := NextOccurrence(now, loc, time.Wednesday, Clock{8, 0}, Clock{11, 0})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, time.October, 14, 8, 0, 0, 0, loc)
		if !slot.Start.Equal(want) {
			t.Errorf("start = %v, want %v", slot.Start, want)
		}
		if !slot.End.Equal(want.Add(3 * time.Hour)) {
			t.Errorf("end = %v, want %v", slot.End, want.Add(3*time.Hour))
		}
		if !slot.Start.Before(now) {
			t.Errorf("expected start %v to be in the past relative to %v", slot.Start, now)
		}
	})

	t.Run("tomorrow", func(t *testing.T) {
		slot, err := NextOccurrence(now, loc, time.Thursday, Clock{19, 0}, Clock{21, 0})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, time.October, 15, 19, 0, 0, 0, loc)
		if !slot.Start.Equal(want) {
			t.Errorf("start = %v, want %v", slot.Start, want)
		}
	})

	t.Run("day before rolls to next week", func(t *testing.T) {
		slot, err := NextOccurrence(now, loc, time.Tuesday, Clock{19, 0}, Clock{21, 0})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, time.October, 20, 19, 0, 0, 0, loc)
		if !slot.Start.Equal(want) {
			t.Errorf("start = %v, want %v", slot.Start, want)
		}
		if slot.Start.Weekday() != time.Tuesday {
			t.Errorf("weekday = %v, want Tuesday", slot.Start.Weekday())
		}
	})

	t.Run("seconds are zeroed", func(t *testing.T) {
		slot, _ := NextOccurrence(now, loc, time.Friday, Clock{20, 0}, Clock{22, 0})
		if slot.Start.Second() != 0 || slot.Start.Nanosecond() != 0 {
			t.Errorf("start has sub-minute precision: %v", slot.Start)
		}
	})

	t.Run("end before start crosses midnight", func(t *testing.T) {
		slot, err := NextOccurrence(now, loc, time.Saturday, Clock{22, 0}, Clock{2, 0})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slot.Start.Before(slot.End) {
			t.Fatalf("start %v not before end %v", slot.Start, slot.End)
		}
		want := time.Date(2026, time.October, 18, 2, 0, 0, 0, loc)
		if !slot.End.Equal(want) {
			t.Errorf("end = %v, want %v", slot.End, want)
		}
	})

	t.Run("equal start and end", func(t *testing.T) {
		_, err := NextOccurrence(now, loc, time.Saturday, Clock{22, 0}, Clock{22, 0})
		if !errors.Is(err, ErrEmptySlot) {
			t.Errorf("error = %v, want ErrEmptySlot", err)
		}
	})

	t.Run("invalid weekday", func(t *testing.T) {
		_, err := NextOccurrence(now, loc, time.Weekday(7), Clock{8, 0}, Clock{9, 0})
		if !errors.Is(err, ErrInvalidWeekday) {
			t.Errorf("error = %v, want ErrInvalidWeekday", err)
		}
	})

	t.Run("weekday is evaluated in the venue location", func(t *testing.T) {
		// 23:30 UTC on Saturday is already Sunday in Asia/Tokyo.
		utcNow := time.Date(2026, time.October, 17, 23, 30, 0, 0, time.UTC)
		tokyo := mustLocation(t, "Asia/Tokyo")
		slot, err := NextOccurrence(utcNow, tokyo, time.Sunday, Clock{10, 0}, Clock{11, 0})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, time.October, 18, 10, 0, 0, 0, tokyo)
		if !slot.Start.Equal(want) {
			t.Errorf("start = %v, want %v", slot.Start, want)
		}
	})
}

func TestNextOccurrenceAcrossDSTChange(t *testing.T) {
	loc := mustLocation(t, "Atlantic/Canary")
	// Clocks go back on Sunday 2026-10-25. Friday before the change.
	now := time.Date(2026, time.October, 23, 12, 0, 0, 0, loc)

	slot, err := NextOccurrence(now, loc, time.Monday, Clock{20, 0}, Clock{22, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slot.Start.Hour() != 20 || slot.Start.Day() != 26 {
		t.Errorf("start = %v, want 2026-10-26 20:00 local", slot.Start)
	}
	if got := slot.End.Sub(slot.Start); got != 2*time.Hour {
		t.Errorf("duration = %v, want 2h", got)
	}
}

func TestWeekly(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, time.October, 14, 9, 0, 0, 0, loc) // Wednesday

	days := []time.Weekday{time.Friday, time.Sunday, time.Wednesday, time.Saturday, time.Friday}
	slots, err := Weekly(now, loc, days, Clock{20, 0}, Clock{22, 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(slots) != 4 {
		t.Fatalf("len(slots) = %d, want 4 (duplicates removed)", len(slots))
	}

	seen := map[string]bool{}
	for i, slot := range slots {
		if slot.Start.Hour() != 20 || slot.Start.Minute() != 0 {
			t.Errorf("slot %d start clock = %s, want 20:00", i, slot.Start.Format("15:04"))
		}
		if slot.End.Hour() != 22 || slot.End.Minute() != 30 {
			t.Errorf("slot %d end clock = %s, want 22:30", i, slot.End.Format("15:04"))
		}
		if slot.Start.Weekday() != slot.Day {
			t.Errorf("slot %d weekday = %v, want %v", i, slot.Start.Weekday(), slot.Day)
		}
		date := slot.Start.Format(time.DateOnly)
		if seen[date] {
			t.Errorf("duplicate date %s", date)
		}
		seen[date] = true
		if i > 0 && !slots[i-1].Start.Before(slot.Start) {
			t.Errorf("slots not ordered: %v then %v", slots[i-1].Start, slot.Start)
		}
	}

	if slots[0].Day != time.Wednesday {
		t.Errorf("first slot = %v, want Wednesday (today)", slots[0].Day)
	}
}

func TestWeeklyRequiresDays(t *testing.T) {
	_, err := Weekly(time.Now(), time.UTC, nil, Clock{8, 0}, Clock{9, 0})
	if !errors.Is(err, ErrNoDays) {
		t.Errorf("error = %v, want ErrNoDays", err)
	}
}
