// Package reminder defines validated, immutable weekly reminders.
package reminder

import (
	"fmt"

	"weeklyreminder/internal/calendar"
)

// ShowOn is either AllDay or Window.
type ShowOn interface {
	isShowOn()
	fmt.Stringer
}

// AllDay is active for the full 24 hours of Day.
type AllDay struct {
	Day calendar.WeekDay
}

// Point is a week-relative instant.
type Point struct {
	Day  calendar.WeekDay
	Time calendar.TimeOfDay
}

// Window is active during [Start, End) in week-relative time.
type Window struct {
	Start Point
	End   Point
}

func (AllDay) isShowOn() {}
func (Window) isShowOn() {}

func (a AllDay) String() string {
	return a.Day.String() + " (all day)"
}

func (p Point) String() string {
	return p.Day.String() + " " + p.Time.String()
}

func (w Window) String() string {
	return w.Start.String() + " - " + w.End.String()
}

// SameDay reports whether both endpoints name the same weekday.
func (w Window) SameDay() bool {
	return w.Start.Day == w.End.Day
}

// SpanDays is the number of day boundaries between start and end,
// (end - start) mod 7.
func (w Window) SpanDays() int {
	return calendar.DaysUntilWeekday(w.Start.Day, w.End.Day)
}

// Reminder is a validated reminder definition.
type Reminder struct {
	Name            string
	Message         string
	ShowOn          ShowOn
	ExcludeHolidays bool
	// EventDay overrides the derived event day when set.
	EventDay *calendar.WeekDay
}

// EventWeekDay is the weekday the real-world event happens on: the
// explicit EventDay, else the all-day Day, else the window's end day.
func (r Reminder) EventWeekDay() calendar.WeekDay {
	if r.EventDay != nil {
		return *r.EventDay
	}
	switch s := r.ShowOn.(type) {
	case AllDay:
		return s.Day
	case Window:
		return s.End.Day
	default:
		return calendar.Invalid
	}
}

func (r Reminder) String() string {
	return fmt.Sprintf("%s [%v]", r.Name, r.ShowOn)
}
