// Package calendar holds the pure weekday and date arithmetic used by the
// reminder engine. Nothing here keeps state or performs I/O.
package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// WeekDay is a day of the week, Sunday = 0 ... Saturday = 6.
type WeekDay int

const (
	Sunday WeekDay = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// Invalid is returned by DayIndex for names outside the canonical table.
const Invalid WeekDay = -1

// DaysPerWeek is the modulus for all week-relative arithmetic.
const DaysPerWeek = 7

// MinutesPerDay bounds TimeOfDay.
const MinutesPerDay = 24 * 60

var dayNames = [DaysPerWeek]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// DayNames returns the canonical weekday names in index order.
func DayNames() []string {
	out := make([]string, DaysPerWeek)
	copy(out, dayNames[:])
	return out
}

// DayIndex looks up a canonical, case-sensitive weekday name.
// It returns Invalid when the name is not one of the seven.
func DayIndex(name string) WeekDay {
	for i, n := range dayNames {
		if n == name {
			return WeekDay(i)
		}
	}
	return Invalid
}

// ParseWeekDay is DayIndex with an explicit ok result.
func ParseWeekDay(name string) (WeekDay, bool) {
	d := DayIndex(name)
	return d, d != Invalid
}

// Valid reports whether d is in 0..6.
func (d WeekDay) Valid() bool {
	return d >= Sunday && d <= Saturday
}

func (d WeekDay) String() string {
	if !d.Valid() {
		return "WeekDay(" + strconv.Itoa(int(d)) + ")"
	}
	return dayNames[d]
}

// Time converts d to the standard library weekday.
func (d WeekDay) Time() time.Weekday {
	return time.Weekday(d)
}

// FromTime converts a standard library weekday.
func FromTime(wd time.Weekday) WeekDay {
	return WeekDay(wd)
}

// TimeOfDay is minutes since midnight, 0..1439.
type TimeOfDay int

var hhmmPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// IsHHMM reports whether s is a 24-hour HH:MM string with leading zeros.
func IsHHMM(s string) bool {
	return hhmmPattern.MatchString(s)
}

// ParseTimeOfDay parses a strict HH:MM string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := hhmmPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid time %q: want HH:MM (00:00-23:59)", s)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	return TimeOfDay(h*60 + min), nil
}

// MinutesOfDay converts an already validated HH:MM string to minutes.
// Malformed input yields 0.
func MinutesOfDay(hhmm string) int {
	t, err := ParseTimeOfDay(hhmm)
	if err != nil {
		return 0
	}
	return int(t)
}

// MinutesOf returns the minutes since midnight of t's wall clock.
func MinutesOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// NthWeekdayOfMonth returns the nth occurrence of wd in the given month.
// nth is 1..5, or -1 for the last occurrence. ok is false when the month
// has no such occurrence or nth is out of range. The result is midnight UTC.
func NthWeekdayOfMonth(year int, month time.Month, wd WeekDay, nth int) (time.Time, bool) {
	if !wd.Valid() {
		return time.Time{}, false
	}
	switch {
	case nth == -1:
		return LastWeekdayOfMonth(year, month, wd), true
	case nth < 1 || nth > 5:
		return time.Time{}, false
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := DaysUntilWeekday(FromTime(first.Weekday()), wd)
	day := 1 + offset + (nth-1)*DaysPerWeek
	if day > DaysInMonth(year, month) {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

// LastWeekdayOfMonth returns the final occurrence of wd in the month.
func LastWeekdayOfMonth(year int, month time.Month, wd WeekDay) time.Time {
	lastDay := DaysInMonth(year, month)
	last := time.Date(year, month, lastDay, 0, 0, 0, 0, time.UTC)
	back := DaysUntilWeekday(wd, FromTime(last.Weekday()))
	return last.AddDate(0, 0, -back)
}

// DaysInMonth returns the number of days in month of year.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysUntilWeekday is the smallest non-negative day count that takes from
// to target. Equal days yield 0.
func DaysUntilWeekday(from, target WeekDay) int {
	return Mod(int(target)-int(from), DaysPerWeek)
}

// Mod is a modulus that never returns a negative value for positive n.
func Mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ISODate formats the calendar date of t as YYYY-MM-DD.
func ISODate(t time.Time) string {
	return t.Format("2006-01-02")
}
