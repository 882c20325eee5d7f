package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// clockPattern splits a header time into hour, minute, optional seconds and
// optional meridiem.
var clockPattern = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})(?::(\d{2}))?[\s\x{00A0}\x{202F}]*([AP]M)?$`)

// dateSeparators are normalized to "/" before any date parsing.
var dateSeparators = strings.NewReplacer("-", "/", ".", "/")

// TimestampResolver turns header date and time strings into a Timestamp.
type TimestampResolver struct {
	loc *time.Location
}

// NewTimestampResolver creates a resolver that interprets wall-clock values in loc.
// A nil loc means time.Local.
func NewTimestampResolver(loc *time.Location) *TimestampResolver {
	if loc == nil {
		loc = time.Local
	}
	return &TimestampResolver{loc: loc}
}

// Resolve attempts the general-purpose parser first and falls back to a
// structural reading of the three date parts. It never fails: anything it
// cannot place on the calendar comes back as Unresolved. The clock is
// checked before either stage, so "13:05 PM" is unresolved in both.
func (r *TimestampResolver) Resolve(date, clock string) Timestamp {
	date = dateSeparators.Replace(date)
	clock = normalizeClock(clock)

	if _, _, _, ok := parseClock(clock); !ok {
		return Unresolved
	}

	if t, err := dateparse.ParseIn(date+" "+clock, r.loc, dateparse.PreferMonthFirst(true)); err == nil {
		return Resolved(t)
	}

	if t, ok := r.structural(date, clock); ok {
		return Resolved(t)
	}

	return Unresolved
}

// ResolveTimestamp resolves a header date and time in the local zone.
func ResolveTimestamp(date, clock string) Timestamp {
	return NewTimestampResolver(nil).Resolve(date, clock)
}

// structural builds the time from the numeric date parts, month-first and
// then day-first when month-first is not a real calendar date.
func (r *TimestampResolver) structural(date, clock string) (time.Time, bool) {
	parts := strings.Split(date, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	first, err1 := strconv.Atoi(parts[0])
	second, err2 := strconv.Atoi(parts[1])
	year, ok := expandYear(parts[2])
	if err1 != nil || err2 != nil || !ok {
		return time.Time{}, false
	}

	hour, minute, sec, ok := parseClock(clock)
	if !ok {
		return time.Time{}, false
	}

	for _, order := range [][2]int{{first, second}, {second, first}} {
		month, day := order[0], order[1]
		if !validDate(year, month, day) {
			continue
		}
		return time.Date(year, time.Month(month), day, hour, minute, sec, 0, r.loc), true
	}

	return time.Time{}, false
}

// expandYear accepts two- and four-digit years. Two-digit years pivot the
// same way Go's "06" layout does.
func expandYear(s string) (int, bool) {
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	switch len(s) {
	case 4:
		return y, true
	case 2:
		if y >= 69 {
			return 1900 + y, true
		}
		return 2000 + y, true
	default:
		return 0, false
	}
}

func parseClock(clock string) (hour, minute, sec int, ok bool) {
	m := clockPattern.FindStringSubmatch(clock)
	if m == nil {
		return 0, 0, 0, false
	}

	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		sec, _ = strconv.Atoi(m[3])
	}
	if minute > 59 || sec > 59 {
		return 0, 0, 0, false
	}

	switch strings.ToUpper(m[4]) {
	case "":
		if hour > 23 {
			return 0, 0, 0, false
		}
	case "AM":
		if hour < 1 || hour > 12 {
			return 0, 0, 0, false
		}
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 1 || hour > 12 {
			return 0, 0, 0, false
		}
		if hour != 12 {
			hour += 12
		}
	}

	return hour, minute, sec, true
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	// Day 0 of the following month is the last day of this one.
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return day <= last
}

// normalizeClock strips brackets and folds the no-break spaces phones put
// before AM/PM into a plain space.
func normalizeClock(clock string) string {
	clock = strings.NewReplacer("[", "", "]", "", "\u00a0", " ", "\u202f", " ").Replace(clock)
	return strings.TrimSpace(clock)
}
