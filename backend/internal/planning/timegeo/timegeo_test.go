package timegeo

import "testing"

func TestParseFormatHHMM(t *testing.T) {
	cases := map[string]int{
		"00:00": 0,
		"09:05": 9*60 + 5,
		"23:59": 23*60 + 59,
	}
	for s, want := range cases {
		got, err := ParseHHMM(s)
		if err != nil {
			t.Fatalf("ParseHHMM(%q) error: %v", s, err)
		}
		if got != want {
			t.Errorf("ParseHHMM(%q) = %d, want %d", s, got, want)
		}
		if FormatHHMM(want) != s {
			t.Errorf("FormatHHMM(%d) = %q, want %q", want, FormatHHMM(want), s)
		}
	}
}

func TestParseHHMMInvalid(t *testing.T) {
	for _, s := range []string{"25:00", "12:60", "abc", "12", "12:3:4"} {
		if _, err := ParseHHMM(s); err == nil {
			t.Errorf("ParseHHMM(%q) expected error, got nil", s)
		}
	}
}

func TestHaversineKmZero(t *testing.T) {
	if d := HaversineKm(1, 1, 1, 1); d != 0 {
		t.Errorf("HaversineKm same point = %v, want 0", d)
	}
}

func TestHaversineKmKnownDistance(t *testing.T) {
	// Paris to London, roughly 344 km great-circle.
	d := HaversineKm(48.8566, 2.3522, 51.5074, -0.1278)
	if d < 330 || d > 360 {
		t.Errorf("HaversineKm(Paris, London) = %v, want ~344", d)
	}
}

func mondayWindow() OpeningHours {
	oh := NewOpeningHours()
	oh.Windows = []Window{
		{HasDayOfWeek: true, DayOfWeek: 1, StartMin: 9 * 60, EndMin: 18 * 60},
	}
	oh.LastEntryByDay = map[int]int{1: 17 * 60}
	return oh
}

func TestApplicableWindowsDayOfWeek(t *testing.T) {
	oh := mondayWindow()
	ws := oh.ApplicableWindows(1, "2026-08-03", NoHolidays{})
	if len(ws) != 1 {
		t.Fatalf("expected 1 applicable window on Monday, got %d", len(ws))
	}
	ws = oh.ApplicableWindows(2, "2026-08-04", NoHolidays{})
	if len(ws) != 0 {
		t.Fatalf("expected 0 applicable windows on Tuesday, got %d", len(ws))
	}
}

func TestLastEntryForDay(t *testing.T) {
	oh := mondayWindow()
	m, ok := oh.LastEntryForDay(1)
	if !ok || m != 17*60 {
		t.Fatalf("LastEntryForDay(1) = (%d, %v), want (1020, true)", m, ok)
	}
	_, ok = oh.LastEntryForDay(2)
	if ok {
		t.Fatalf("LastEntryForDay(2) should be absent")
	}
}

func TestClosedDates(t *testing.T) {
	oh := NewOpeningHours()
	oh.ClosedDates = []string{"2026-01-01"}
	if !oh.IsClosedDate("2026-01-01") {
		t.Errorf("expected 2026-01-01 to be closed")
	}
	if oh.IsClosedDate("2026-01-02") {
		t.Errorf("expected 2026-01-02 to be open")
	}
}

func TestHolidayDatesTakePriority(t *testing.T) {
	oh := NewOpeningHours()
	oh.Windows = []Window{
		{HasDayOfWeek: true, DayOfWeek: 1, StartMin: 9 * 60, EndMin: 18 * 60},
		{HolidayDates: []string{"2026-12-25"}, StartMin: 10 * 60, EndMin: 14 * 60},
	}
	ws := oh.ApplicableWindows(1, "2026-12-25", NoHolidays{})
	if len(ws) != 1 || ws[0].StartMin != 10*60 {
		t.Fatalf("expected holiday-dated window to take priority, got %+v", ws)
	}
}
