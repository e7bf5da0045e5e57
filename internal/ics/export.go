package ics

import (
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"weeklyreminder/internal/calendar"
	"weeklyreminder/internal/holiday"
	"weeklyreminder/internal/reminder"
)

const (
	productID = "-//weeklyreminder//weekly reminders//EN"

	// floatingFormat is a DATE-TIME without zone: wall-clock time wherever
	// the calendar is opened, which is how reminder windows are defined.
	floatingFormat = "20060102T150405"
)

// Export renders holiday rules and reminders as an iCalendar document.
// Fixed and nth-weekday rules become yearly recurring all-day events
// starting with their first date on or after January 1 of from's year;
// explicit dates become one-off all-day events. Reminders are weekly
// recurring events anchored in the Sunday-based week containing from.
// UIDs are stable across exports.
func Export(rules []holiday.Rule, reminders []reminder.Reminder, from time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	stamp := from.UTC()
	yearStart := time.Date(from.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	for _, rule := range rules {
		day, recurrence, ok := firstDate(rule, yearStart)
		if !ok {
			continue
		}
		key := rule.RuleName() + "/" + recurrence
		if recurrence == "" {
			key = rule.RuleName() + "/" + calendar.ISODate(day)
		}
		ev := cal.AddEvent(stableUID("holiday", key))
		ev.SetDtStampTime(stamp)
		ev.SetSummary(rule.RuleName())
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		if recurrence != "" {
			ev.AddRrule(recurrence)
		}
		ev.SetProperty(ical.ComponentPropertyCategories, "HOLIDAY")
	}

	week := weekStart(from)
	for _, r := range reminders {
		for i, sp := range spans(r.ShowOn, week) {
			ev := cal.AddEvent(stableUID("reminder", r.Name+"/"+strconv.Itoa(i)))
			ev.SetDtStampTime(stamp)
			ev.SetSummary(r.Name)
			if r.Message != "" {
				ev.SetDescription(r.Message)
			}
			if sp.allDay {
				ev.SetAllDayStartAt(sp.start)
				ev.SetAllDayEndAt(sp.end)
			} else {
				ev.SetProperty(ical.ComponentPropertyDtStart, sp.start.Format(floatingFormat))
				ev.SetProperty(ical.ComponentPropertyDtEnd, sp.end.Format(floatingFormat))
			}
			ev.AddRrule(WeeklyRRule(calendar.FromTime(sp.start.Weekday())))
			ev.SetProperty(ical.ComponentPropertyCategories, "REMINDER")
		}
	}

	return cal.Serialize()
}

// firstDate returns the first all-day date of rule and, for recurring
// rules, the RRULE value that repeats it.
func firstDate(rule holiday.Rule, yearStart time.Time) (time.Time, string, bool) {
	if d, ok := rule.(holiday.ExplicitDate); ok {
		y, m, dd := d.Date.Date()
		return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC), "", true
	}
	rr := rule.RRule(yearStart)
	if rr == nil {
		return time.Time{}, "", false
	}
	first := rr.After(yearStart, true)
	if first.IsZero() {
		return time.Time{}, "", false
	}
	return first, rr.OrigOptions.RRuleString(), true
}

// WeeklyRRule is the RRULE value repeating every week on day.
func WeeklyRRule(day calendar.WeekDay) string {
	opt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{holiday.RRuleWeekday(day)},
	}
	return opt.RRuleString()
}

type span struct {
	start, end time.Time
	allDay     bool
}

// spans lays a ShowOn out as concrete intervals in the week starting at
// week. A same-day window whose start is after its end is active outside
// [end, start) and becomes two intervals on that day.
func spans(so reminder.ShowOn, week time.Time) []span {
	at := func(p reminder.Point) time.Time {
		return week.AddDate(0, 0, int(p.Day)).Add(time.Duration(p.Time) * time.Minute)
	}

	switch s := so.(type) {
	case reminder.AllDay:
		day := week.AddDate(0, 0, int(s.Day))
		return []span{{start: day, end: day.AddDate(0, 0, 1), allDay: true}}

	case reminder.Window:
		start := at(s.Start)
		if s.SameDay() {
			if s.Start.Time <= s.End.Time {
				if s.Start.Time == s.End.Time {
					return nil
				}
				return []span{{start: start, end: at(s.End)}}
			}
			day := week.AddDate(0, 0, int(s.Start.Day))
			out := []span{{start: start, end: day.AddDate(0, 0, 1)}}
			if s.End.Time > 0 {
				out = append([]span{{start: day, end: at(s.End)}}, out...)
			}
			return out
		}
		end := week.AddDate(0, 0, int(s.Start.Day)+s.SpanDays()).
			Add(time.Duration(s.End.Time) * time.Minute)
		return []span{{start: start, end: end}}
	}
	return nil
}

// weekStart is midnight of the Sunday on or before t, in t's location.
func weekStart(t time.Time) time.Time {
	day := calendar.StartOfDay(t)
	return day.AddDate(0, 0, -int(t.Weekday()))
}

func stableUID(kind, key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("weeklyreminder:"+kind+":"+key)).String() + "@weeklyreminder"
}
