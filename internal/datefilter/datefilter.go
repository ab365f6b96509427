// Package datefilter parses the target date entered by the user and the
// day labels shown on the watch history page.
package datefilter

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned when the input matches neither M/D nor YYYY/M/D.
var ErrInvalidDate = errors.New("invalid date format (use M/D or YYYY/M/D)")

// Header labels used by the history page for the two most recent days.
const (
	LabelToday     = "今日"
	LabelYesterday = "昨日"
)

var (
	shortPattern  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})$`)
	fullPattern   = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`)
	headerPattern = regexp.MustCompile(`^(\d{1,2})月(\d{1,2})日$`)
)

// Target is the earliest day (inclusive) that should be counted.
type Target struct {
	Date time.Time
}

// ParseTarget parses M/D or YYYY/M/D into a Target normalized to local midnight.
// Short dates take the current year, or the previous one when that would put
// the date in the future.
func ParseTarget(input string, now time.Time) (Target, error) {
	input = strings.TrimSpace(input)

	if m := shortPattern.FindStringSubmatch(input); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		date, ok := inferYear(month, day, now)
		if !ok {
			return Target{}, fmt.Errorf("%w: %q", ErrInvalidDate, input)
		}
		return Target{Date: date}, nil
	}

	if m := fullPattern.FindStringSubmatch(input); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		date, ok := makeDate(year, month, day, now.Location())
		if !ok {
			return Target{}, fmt.Errorf("%w: %q", ErrInvalidDate, input)
		}
		return Target{Date: date}, nil
	}

	return Target{}, fmt.Errorf("%w: %q", ErrInvalidDate, input)
}

// ParseChunkHeader resolves a day header ("今日", "昨日" or "10月3日") to a date.
// It returns false for labels it does not recognize.
func ParseChunkHeader(label string, now time.Time) (time.Time, bool) {
	label = strings.TrimSpace(label)
	today := Midnight(now)

	switch label {
	case LabelToday:
		return today, true
	case LabelYesterday:
		return today.AddDate(0, 0, -1), true
	}

	m := headerPattern.FindStringSubmatch(label)
	if m == nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	return inferYear(month, day, now)
}

// Midnight truncates t to the start of its day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// inferYear places month/day in the current year, rolling back one year when
// the result is after today.
func inferYear(month, day int, now time.Time) (time.Time, bool) {
	today := Midnight(now)
	date, ok := makeDate(today.Year(), month, day, now.Location())
	if ok && !date.After(today) {
		return date, true
	}
	// 2/29 may exist only in one of the two candidate years.
	return makeDate(today.Year()-1, month, day, now.Location())
}

// makeDate builds a date and rejects values time.Date would normalize (13/40, 2/30).
func makeDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if date.Month() != time.Month(month) || date.Day() != day {
		return time.Time{}, false
	}
	return date, true
}

// IsBefore reports whether date is strictly older than the target day.
// The scroll loop uses it to know the page has loaded far enough.
func (t Target) IsBefore(date time.Time) bool {
	return date.Before(t.Date)
}

// Includes reports whether date falls on or after the target day.
func (t Target) Includes(date time.Time) bool {
	return !date.Before(t.Date)
}

// String returns the target as YYYY/M/D.
func (t Target) String() string {
	return FormatLong(t.Date)
}

// FormatLong formats a date as YYYY/M/D.
func FormatLong(date time.Time) string {
	return fmt.Sprintf("%d/%d/%d", date.Year(), int(date.Month()), date.Day())
}

// FormatShort formats a date as M/D.
func FormatShort(date time.Time) string {
	return fmt.Sprintf("%d/%d", int(date.Month()), date.Day())
}
