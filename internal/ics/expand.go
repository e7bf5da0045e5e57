package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"weeklyreminder/internal/calendar"
	"weeklyreminder/internal/config"
	appLog "weeklyreminder/internal/log"
)

const defaultMaxDatesPerEvent = 1000

// ExpandConfig bounds feed expansion.
type ExpandConfig struct {
	// RangeStart / RangeEnd are inclusive calendar dates.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxDatesPerEvent caps a single event's expansion. Zero means
	// defaultMaxDatesPerEvent.
	MaxDatesPerEvent int
}

// YearRange covers January 1 of year through December 31 of year+1,
// which is what the holiday cache can ask for before the next refresh.
func YearRange(year int) ExpandConfig {
	return ExpandConfig{
		RangeStart: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(year+1, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// ExpandHolidays turns parsed feed events into explicit-date holiday
// declarations. Multi-day events contribute every covered date and
// duplicate (date, name) pairs are dropped.
func ExpandHolidays(events []ParsedEvent, cfg ExpandConfig) ([]config.HolidayDecl, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxDatesPerEvent <= 0 {
		cfg.MaxDatesPerEvent = defaultMaxDatesPerEvent
	}
	lo := dateOnly(cfg.RangeStart)
	hi := dateOnly(cfg.RangeEnd)

	type key struct{ date, name string }
	seen := make(map[key]bool)
	out := make([]config.HolidayDecl, 0)

	add := func(ev ParsedEvent, day time.Time) {
		if day.Before(lo) || day.After(hi) {
			return
		}
		k := key{calendar.ISODate(day), ev.Summary}
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, config.HolidayDecl{Type: config.HolidayDate, Name: ev.Summary, Date: k.date})
	}

	for _, ev := range events {
		starts, truncated := occurrenceStarts(ev, lo, hi, cfg.MaxDatesPerEvent)
		if truncated {
			appLog.Warn("holiday feed event truncated", "uid", ev.UID, "summary", ev.Summary, "cap", cfg.MaxDatesPerEvent)
		}
		for _, s := range starts {
			for _, day := range coveredDays(ev, s) {
				add(ev, day)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// occurrenceStarts returns the start dates of ev that can touch [lo, hi].
func occurrenceStarts(ev ParsedEvent, lo, hi time.Time, limit int) ([]time.Time, bool) {
	start := dateOnly(ev.Start)
	if ev.RawRRule == "" {
		return []time.Time{start}, false
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(start)

	set := rrule.Set{}
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(dateOnly(ex))
	}

	// Widen the lower bound so a multi-day occurrence starting just before
	// the range still contributes its in-range days.
	span := eventDays(ev)
	times := set.Between(lo.AddDate(0, 0, -span), hi, true)
	if len(times) > limit {
		return times[:limit], true
	}
	return times, false
}

// coveredDays lists the dates an occurrence starting at s covers.
func coveredDays(ev ParsedEvent, s time.Time) []time.Time {
	n := eventDays(ev)
	days := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, dateOnly(s).AddDate(0, 0, i))
	}
	return days
}

// eventDays is the number of dates covered by one occurrence. Timed
// events count the day they start on only.
func eventDays(ev ParsedEvent) int {
	if !ev.AllDay {
		return 1
	}
	d := int(dateOnly(ev.End).Sub(dateOnly(ev.Start)).Hours() / 24)
	if d < 1 {
		return 1
	}
	return d
}

// dateOnly keeps the calendar date of t as UTC midnight.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
