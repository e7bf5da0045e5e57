package holiday

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"weeklyreminder/internal/calendar"
)

// Rule is a declarative holiday pattern that resolves to at most one date
// per year. The set of implementations is closed: Fixed, NthWeekday and
// ExplicitDate.
type Rule interface {
	RuleName() string
	// resolve returns the date for year. reason is non-empty when the
	// rule cannot produce a date for a reason worth reporting.
	resolve(year int) (date time.Time, ok bool, reason string)
	// RRule returns a yearly recurrence for the rule, or nil for rules
	// that do not recur.
	RRule(from time.Time) *rrule.RRule
}

// Fixed is the same month/day every year.
type Fixed struct {
	Name  string
	Month time.Month
	Day   int
}

// NthWeekday is the nth weekday of a month; Nth == -1 means the last one.
type NthWeekday struct {
	Name    string
	Month   time.Month
	Weekday calendar.WeekDay
	Nth     int
}

// ExplicitDate is a single calendar date.
type ExplicitDate struct {
	Name string
	Date time.Time
}

func (r Fixed) RuleName() string        { return r.Name }
func (r NthWeekday) RuleName() string   { return r.Name }
func (r ExplicitDate) RuleName() string { return r.Name }

func (r Fixed) resolve(year int) (time.Time, bool, string) {
	d := time.Date(year, r.Month, r.Day, 0, 0, 0, 0, time.UTC)
	if d.Month() != r.Month {
		return time.Time{}, false, fmt.Sprintf("%s %d does not exist in %d", r.Month, r.Day, year)
	}
	return d, true, ""
}

func (r NthWeekday) resolve(year int) (time.Time, bool, string) {
	d, ok := calendar.NthWeekdayOfMonth(year, r.Month, r.Weekday, r.Nth)
	if !ok {
		return time.Time{}, false, fmt.Sprintf("no occurrence %d of %s in %s %d", r.Nth, r.Weekday, r.Month, year)
	}
	return d, true, ""
}

func (r ExplicitDate) resolve(year int) (time.Time, bool, string) {
	if r.Date.Year() != year {
		return time.Time{}, false, ""
	}
	y, m, d := r.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true, ""
}

var rruleDays = [calendar.DaysPerWeek]rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

// RRuleWeekday maps a WeekDay to its rrule counterpart.
func RRuleWeekday(d calendar.WeekDay) rrule.Weekday {
	return rruleDays[d]
}

func (r Fixed) RRule(from time.Time) *rrule.RRule {
	rr, err := rrule.NewRRule(rrule.ROption{
		Freq:       rrule.YEARLY,
		Dtstart:    calendar.StartOfDay(from),
		Bymonth:    []int{int(r.Month)},
		Bymonthday: []int{r.Day},
	})
	if err != nil {
		return nil
	}
	return rr
}

func (r NthWeekday) RRule(from time.Time) *rrule.RRule {
	wd := RRuleWeekday(r.Weekday)
	rr, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.YEARLY,
		Dtstart:   calendar.StartOfDay(from),
		Bymonth:   []int{int(r.Month)},
		Byweekday: []rrule.Weekday{wd.Nth(r.Nth)},
	})
	if err != nil {
		return nil
	}
	return rr
}

func (r ExplicitDate) RRule(time.Time) *rrule.RRule {
	return nil
}
