package engine

import (
	"time"

	"weeklyreminder/internal/calendar"
	"weeklyreminder/internal/holiday"
	"weeklyreminder/internal/reminder"
)

// IsActive reports whether r's weekly schedule covers now. Only now's
// weekday and wall-clock minute are consulted.
func IsActive(r reminder.Reminder, now time.Time) bool {
	day := calendar.FromTime(now.Weekday())
	minute := calendar.MinutesOf(now)

	switch s := r.ShowOn.(type) {
	case reminder.AllDay:
		return day == s.Day
	case reminder.Window:
		return inWindow(s, day, minute)
	default:
		return false
	}
}

func inWindow(w reminder.Window, day calendar.WeekDay, minute calendar.TimeOfDay) bool {
	start, end := w.Start, w.End

	if w.SameDay() {
		if day != start.Day {
			return false
		}
		if start.Time <= end.Time {
			return start.Time <= minute && minute < end.Time
		}
		// start > end on the same weekday: active except [end, start).
		return minute >= start.Time || minute < end.Time
	}

	span := w.SpanDays()
	rel := calendar.DaysUntilWeekday(start.Day, day)
	switch {
	case rel == 0:
		return minute >= start.Time
	case rel < span:
		return true
	case rel == span:
		return minute < end.Time
	default:
		return false
	}
}

// EventDate is midnight of the next occurrence of r's event weekday on or
// after now, in now's location. Today counts.
func EventDate(r reminder.Reminder, now time.Time) time.Time {
	today := calendar.FromTime(now.Weekday())
	ahead := calendar.DaysUntilWeekday(today, r.EventWeekDay())
	y, m, d := now.Date()
	return time.Date(y, m, d+ahead, 0, 0, 0, 0, now.Location())
}

// ShouldExcludeForHoliday reports whether r opts into holiday exclusion
// and its upcoming event date is a holiday.
func ShouldExcludeForHoliday(r reminder.Reminder, now time.Time, holidays *holiday.Calculator) bool {
	if !r.ExcludeHolidays || holidays == nil || holidays.Empty() {
		return false
	}
	if !r.EventWeekDay().Valid() {
		return false
	}
	return holidays.IsHoliday(EventDate(r, now))
}
