package actrealtime

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Upstream timestamps are local wall-clock strings ("YYYYMMDD HH:MM",
// minutes optional) in US Pacific time. The primary resolution path is
// the platform tz database, which also settles both DST transition
// days: time.Date resolves the ambiguous fall-back hour to the
// pre-transition offset. When the zone cannot be loaded the parser
// falls back to legacy abbreviation and numeric-offset rules.
const pacificZoneName = "America/Los_Angeles"

var legacyZoneOffsets = map[string]time.Duration{
	"PST": -8 * time.Hour,
	"PDT": -7 * time.Hour,
	"MST": -7 * time.Hour,
	"MDT": -6 * time.Hour,
	"CST": -6 * time.Hour,
	"CDT": -5 * time.Hour,
	"EST": -5 * time.Hour,
	"EDT": -4 * time.Hour,
	"UTC": 0,
	"GMT": 0,
}

var numericOffsetPattern = regexp.MustCompile(`^(?:UTC|GMT)?([+-])(\d{1,2})(?::?(\d{2}))?$`)

// ParseTimestamp converts an upstream local-time string into a UTC
// instant. Malformed input is recoverable: it logs a warning and
// returns the current time.
func ParseTimestamp(value string) time.Time {
	return parseTimestamp(value, time.Now)
}

func parseTimestamp(value string, now func() time.Time) time.Time {
	year, month, day, hour, minute, ok := splitTimestamp(value)
	if !ok {
		log.Warn().Str("value", value).Msg("Invalid upstream timestamp")
		return now().UTC()
	}

	if location, err := time.LoadLocation(pacificZoneName); err == nil {
		return time.Date(year, time.Month(month), day, hour, minute, 0, 0, location).UTC()
	}

	offset := legacyZoneOffset(year, month, day)

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC).Add(-offset)
}

func splitTimestamp(value string) (year int, month int, day int, hour int, minute int, ok bool) {
	parts := strings.Split(value, " ")
	if len(parts) != 2 || len(parts[0]) != 8 {
		return 0, 0, 0, 0, 0, false
	}

	var err error
	if year, err = strconv.Atoi(parts[0][:4]); err != nil {
		return 0, 0, 0, 0, 0, false
	}
	if month, err = strconv.Atoi(parts[0][4:6]); err != nil {
		return 0, 0, 0, 0, 0, false
	}
	if day, err = strconv.Atoi(parts[0][6:8]); err != nil {
		return 0, 0, 0, 0, 0, false
	}

	clock := strings.SplitN(parts[1], ":", 2)
	if hour, err = strconv.Atoi(clock[0]); err != nil {
		return 0, 0, 0, 0, 0, false
	}

	if len(clock) == 2 {
		if minute, err = strconv.Atoi(clock[1]); err != nil {
			return 0, 0, 0, 0, 0, false
		}
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, 0, 0, 0, false
	}

	return year, month, day, hour, minute, true
}

// legacyZoneOffset approximates the Pacific offset without a tz
// database: US DST runs from the second Sunday of March to the first
// Sunday of November. The abbreviation is then resolved through the
// legacy table, with a numeric-offset escape hatch; anything unknown
// means zero offset.
func legacyZoneOffset(year int, month int, day int) time.Duration {
	abbreviation := "PST"
	if inUSDaylightTime(year, month, day) {
		abbreviation = "PDT"
	}

	return offsetForZoneName(abbreviation)
}

func offsetForZoneName(name string) time.Duration {
	if offset, ok := legacyZoneOffsets[name]; ok {
		return offset
	}

	if match := numericOffsetPattern.FindStringSubmatch(name); match != nil {
		hours, _ := strconv.Atoi(match[2])
		minutes := 0
		if match[3] != "" {
			minutes, _ = strconv.Atoi(match[3])
		}

		offset := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
		if match[1] == "-" {
			offset = -offset
		}

		return offset
	}

	return 0
}

func inUSDaylightTime(year int, month int, day int) bool {
	switch {
	case month > 3 && month < 11:
		return true
	case month < 3 || month > 11:
		return false
	case month == 3:
		return day >= nthSunday(year, 3, 2)
	default: // November
		return day < nthSunday(year, 11, 1)
	}
}

func nthSunday(year int, month int, n int) int {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	offset := (7 - int(first.Weekday())) % 7

	return 1 + offset + (n-1)*7
}
