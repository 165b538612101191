package core

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		n    int
		want time.Time
	}{
		{"simple month", date(2024, time.March, 5), 1, date(2024, time.April, 5)},
		{"jan 31 clamps to leap feb", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"jan 31 clamps to non-leap feb", date(2023, time.January, 31), 1, date(2023, time.February, 28)},
		{"may 31 clamps to june 30", date(2024, time.May, 31), 1, date(2024, time.June, 30)},
		{"year boundary", date(2024, time.December, 15), 1, date(2025, time.January, 15)},
		{"multiple months", date(2024, time.January, 31), 3, date(2024, time.April, 30)},
		{"backwards", date(2024, time.March, 31), -1, date(2024, time.February, 29)},
		{"zero is midnight same day", time.Date(2024, time.March, 5, 17, 30, 0, 0, time.UTC), 0, date(2024, time.March, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AddMonths(tt.in, tt.n); !got.Equal(tt.want) {
				t.Errorf("AddMonths(%v, %d) = %v, want %v", tt.in, tt.n, got, tt.want)
			}
		})
	}
}

func TestMonthKeys(t *testing.T) {
	if got := MonthKeyOf(date(2024, time.March, 31)); got != "2024-03" {
		t.Errorf("MonthKeyOf = %q, want 2024-03", got)
	}

	tests := []struct {
		key  string
		n    int
		want string
	}{
		{"2024-01", 1, "2024-02"},
		{"2024-12", 1, "2025-01"},
		{"2024-01", -1, "2023-12"},
		{"2024-06", 7, "2025-01"},
		{"not-a-key", 1, "not-a-key"},
	}
	for _, tt := range tests {
		if got := AddMonthsToKey(tt.key, tt.n); got != tt.want {
			t.Errorf("AddMonthsToKey(%q, %d) = %q, want %q", tt.key, tt.n, got, tt.want)
		}
	}
}

func TestCompareMonths(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2024-01", "2024-02", -1},
		{"2024-02", "2024-01", 1},
		{"2024-02", "2024-02", 0},
		{"2023-12", "2024-01", -1},
	}
	for _, tt := range tests {
		if got := CompareMonths(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareMonths(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDateInMonth(t *testing.T) {
	got, err := DateInMonth("2024-02", 31)
	if err != nil {
		t.Fatalf("DateInMonth: %v", err)
	}
	if !got.Equal(date(2024, time.February, 29)) {
		t.Errorf("DateInMonth(2024-02, 31) = %v, want 2024-02-29", got)
	}

	if _, err := DateInMonth("garbage", 1); err == nil {
		t.Error("DateInMonth with bad key: expected error")
	}
}

func TestIsWithinDays(t *testing.T) {
	now := time.Date(2024, time.March, 10, 15, 45, 0, 0, time.UTC)

	tests := []struct {
		name string
		d    time.Time
		n    int
		want bool
	}{
		{"today inclusive", date(2024, time.March, 10), 7, true},
		{"boundary inclusive", date(2024, time.March, 17), 7, true},
		{"one past boundary", date(2024, time.March, 18), 7, false},
		{"yesterday excluded", date(2024, time.March, 9), 7, false},
		{"time of day ignored", time.Date(2024, time.March, 17, 23, 59, 0, 0, time.UTC), 7, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithinDays(tt.d, now, tt.n); got != tt.want {
				t.Errorf("IsWithinDays(%v, %d) = %v, want %v", tt.d, tt.n, got, tt.want)
			}
		})
	}
}

func TestIsWithinDaysAcrossLocations(t *testing.T) {
	// Due dates are stored as UTC midnights; the clock reading is local.
	west := time.FixedZone("UTC-5", -5*60*60)
	east := time.FixedZone("UTC+13", 13*60*60)

	tests := []struct {
		name string
		d    time.Time
		now  time.Time
		n    int
		want bool
	}{
		{
			"due today, clock west of UTC",
			time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.June, 10, 12, 0, 0, 0, west),
			7, true,
		},
		{
			"due today, clock east of UTC",
			time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.June, 10, 12, 0, 0, 0, east),
			7, true,
		},
		{
			"due yesterday by local calendar",
			time.Date(2024, time.June, 9, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.June, 10, 0, 30, 0, 0, west),
			7, false,
		},
		{
			"boundary day, clock west of UTC",
			time.Date(2024, time.June, 17, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.June, 10, 23, 0, 0, 0, west),
			7, true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithinDays(tt.d, tt.now, tt.n); got != tt.want {
				t.Errorf("IsWithinDays(%v, %v, %d) = %v, want %v", tt.d, tt.now, tt.n, got, tt.want)
			}
		})
	}
}

func TestSameDayAcrossLocations(t *testing.T) {
	west := time.FixedZone("UTC-5", -5*60*60)
	a := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, time.June, 10, 18, 0, 0, 0, west)
	if !SameDay(a, b) {
		t.Errorf("SameDay(%v, %v) = false, want true", a, b)
	}
	if SameDay(a, b.AddDate(0, 0, 1)) {
		t.Error("SameDay across different calendar days = true, want false")
	}
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		y    int
		m    time.Month
		want int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}
	for _, tt := range tests {
		if got := DaysInMonth(tt.y, tt.m); got != tt.want {
			t.Errorf("DaysInMonth(%d, %v) = %d, want %d", tt.y, tt.m, got, tt.want)
		}
	}
}
