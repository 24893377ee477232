package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestToInstant(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	cases := []struct {
		date, clock string
		wantHour    int
		wantMinute  int
	}{
		{"2024-01-01", "12:00 AM", 0, 0},
		{"2024-01-01", "12:30 PM", 12, 30},
		{"2024-01-01", "01:15 PM", 13, 15},
		{"2024-01-01", "11:45 PM", 23, 45},
		{"2024-01-01", "10:00 AM", 10, 0},
		{"2024-01-01", "9:05 am", 9, 5},
	}
	for _, tc := range cases {
		got, err := ToInstant(tc.date, tc.clock, loc)
		if err != nil {
			t.Fatalf("ToInstant(%q, %q): %v", tc.date, tc.clock, err)
		}
		if got.Hour() != tc.wantHour || got.Minute() != tc.wantMinute {
			t.Errorf("ToInstant(%q, %q) = %02d:%02d, want %02d:%02d",
				tc.date, tc.clock, got.Hour(), got.Minute(), tc.wantHour, tc.wantMinute)
		}
		if got.Location() != loc {
			t.Errorf("expected instant in %v, got %v", loc, got.Location())
		}
	}
}

func TestToInstantMalformed(t *testing.T) {
	cases := []struct{ date, clock string }{
		{"", "10:00 AM"},
		{"2024-01-01", ""},
		{"01/01/2024", "10:00 AM"},
		{"2024-01-01", "10:00"},
		{"2024-01-01", "13:00 PM"},
		{"2024-01-01", "00:10 AM"},
		{"2024-01-01", "10:60 AM"},
		{"2024-01-01", "10:00 XM"},
		{"2024-01-01", "ten:00 AM"},
	}
	for _, tc := range cases {
		if _, err := ToInstant(tc.date, tc.clock, time.UTC); !errors.Is(err, ErrMalformedSchedule) {
			t.Errorf("ToInstant(%q, %q): expected ErrMalformedSchedule, got %v", tc.date, tc.clock, err)
		}
	}
}

func TestDepartureAndExpiryBoundaries(t *testing.T) {
	dep := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name        string
		now         time.Time
		wantPast    bool
		wantExpired bool
	}{
		{"before", dep.Add(-time.Minute), false, false},
		{"exactly at departure", dep, false, false},
		{"just after departure", dep.Add(time.Second), true, false},
		{"exactly at grace end", dep.Add(GraceWindow), true, false},
		{"after grace", dep.Add(61 * time.Minute), true, true},
	}
	for _, tc := range cases {
		if got := IsPastDeparture("2024-01-01", "10:00 AM", tc.now); got != tc.wantPast {
			t.Errorf("%s: IsPastDeparture = %v, want %v", tc.name, got, tc.wantPast)
		}
		if got := IsExpired("2024-01-01", "10:00 AM", tc.now); got != tc.wantExpired {
			t.Errorf("%s: IsExpired = %v, want %v", tc.name, got, tc.wantExpired)
		}
	}
}

func TestMalformedScheduleFailsOpen(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if IsPastDeparture("", "", now) {
		t.Error("malformed schedule must not be past departure")
	}
	if IsExpired("garbage", "10:00 AM", now) {
		t.Error("malformed schedule must not be expired")
	}
}

func TestFormatClock(t *testing.T) {
	got, err := FormatClock(9, 5, "pm")
	if err != nil || got != "09:05 PM" {
		t.Fatalf("FormatClock = %q, %v", got, err)
	}
	if _, err := FormatClock(0, 0, "AM"); !errors.Is(err, ErrMalformedSchedule) {
		t.Errorf("expected ErrMalformedSchedule for hour 0, got %v", err)
	}
	if _, err := FormatClock(10, 0, "noon"); !errors.Is(err, ErrMalformedSchedule) {
		t.Errorf("expected ErrMalformedSchedule for bad meridiem, got %v", err)
	}
}
