package actrealtime

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{
			name:  "summer daylight time",
			value: "20240701 12:34",
			want:  time.Date(2024, 7, 1, 19, 34, 0, 0, time.UTC),
		},
		{
			name:  "winter standard time",
			value: "20240115 08:15",
			want:  time.Date(2024, 1, 15, 16, 15, 0, 0, time.UTC),
		},
		{
			name:  "minutes default to zero",
			value: "20240701 12",
			want:  time.Date(2024, 7, 1, 19, 0, 0, 0, time.UTC),
		},
		{
			name:  "spring forward day uses daylight offset",
			value: "20240310 12:00",
			want:  time.Date(2024, 3, 10, 19, 0, 0, 0, time.UTC),
		},
		{
			name:  "day before spring forward uses standard offset",
			value: "20240309 12:00",
			want:  time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC),
		},
		{
			name:  "fall back ambiguous hour keeps daylight offset",
			value: "20241103 01:30",
			want:  time.Date(2024, 11, 3, 8, 30, 0, 0, time.UTC),
		},
		{
			name:  "after fall back uses standard offset",
			value: "20241103 12:00",
			want:  time.Date(2024, 11, 3, 20, 0, 0, 0, time.UTC),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := ParseTimestamp(test.value)
			if !got.Equal(test.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", test.value, got, test.want)
			}
		})
	}
}

func TestParseTimestampMalformedFallsBackToNow(t *testing.T) {
	current := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	for _, value := range []string{
		"",
		"garbage",
		"2024071 12:34",
		"20240701",
		"20240741 12:34",
		"20240701 25:00",
		"20240701 12:61",
		"2024ab01 12:34",
	} {
		got := parseTimestamp(value, now)
		if !got.Equal(current) {
			t.Errorf("parseTimestamp(%q) = %v, want fallback %v", value, got, current)
		}
	}
}

func TestLegacyZoneOffset(t *testing.T) {
	if got := legacyZoneOffset(2024, 7, 1); got != -7*time.Hour {
		t.Errorf("July offset = %v, want -7h", got)
	}
	if got := legacyZoneOffset(2024, 1, 15); got != -8*time.Hour {
		t.Errorf("January offset = %v, want -8h", got)
	}
}

func TestOffsetForZoneName(t *testing.T) {
	tests := []struct {
		name string
		want time.Duration
	}{
		{"PST", -8 * time.Hour},
		{"PDT", -7 * time.Hour},
		{"EST", -5 * time.Hour},
		{"UTC", 0},
		{"-08", -8 * time.Hour},
		{"+0530", 5*time.Hour + 30*time.Minute},
		{"UTC-7", -7 * time.Hour},
		{"GMT+01:00", time.Hour},
		{"XYZ", 0},
	}

	for _, test := range tests {
		if got := offsetForZoneName(test.name); got != test.want {
			t.Errorf("offsetForZoneName(%q) = %v, want %v", test.name, got, test.want)
		}
	}
}

func TestInUSDaylightTime(t *testing.T) {
	tests := []struct {
		year, month, day int
		want             bool
	}{
		{2024, 6, 15, true},
		{2024, 12, 25, false},
		{2024, 3, 9, false},
		{2024, 3, 10, true},
		{2024, 11, 2, true},
		{2024, 11, 3, false},
	}

	for _, test := range tests {
		if got := inUSDaylightTime(test.year, test.month, test.day); got != test.want {
			t.Errorf("inUSDaylightTime(%d, %d, %d) = %v, want %v", test.year, test.month, test.day, got, test.want)
		}
	}
}
