package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"weeklyreminder/internal/calendar"
	"weeklyreminder/internal/config"
	"weeklyreminder/internal/holiday"
	"weeklyreminder/internal/reminder"
)

func ip(v int) *int { return &v }

func sp(v string) *string { return &v }

func validAllDay() config.ReminderDecl {
	return config.ReminderDecl{
		Name:    "Trash Day",
		Message: "Take out the trash",
		ShowOn:  &config.ShowOnDecl{AllDay: true, Day: "Tuesday"},
	}
}

func validWindow() config.ReminderDecl {
	return config.ReminderDecl{
		Name:    "Street Cleaning",
		Message: "Move your car",
		ShowOn: &config.ShowOnDecl{
			Start: &config.PointDecl{Day: "Wednesday", Time: "18:00"},
			End:   &config.PointDecl{Day: "Thursday", Time: "14:00"},
		},
		ExcludeHolidays: true,
		EventDay:        sp("Thursday"),
	}
}

func TestReminderAllDay(t *testing.T) {
	r, err := Reminder(validAllDay())
	require.NoError(t, err)
	assert.Equal(t, "Trash Day", r.Name)
	assert.Equal(t, reminder.AllDay{Day: calendar.Tuesday}, r.ShowOn)
	assert.False(t, r.ExcludeHolidays)
	assert.Nil(t, r.EventDay)
}

func TestReminderWindow(t *testing.T) {
	r, err := Reminder(validWindow())
	require.NoError(t, err)
	assert.Equal(t, reminder.Window{
		Start: reminder.Point{Day: calendar.Wednesday, Time: 18 * 60},
		End:   reminder.Point{Day: calendar.Thursday, Time: 14 * 60},
	}, r.ShowOn)
	assert.True(t, r.ExcludeHolidays)
	require.NotNil(t, r.EventDay)
	assert.Equal(t, calendar.Thursday, *r.EventDay)
}

func TestReminderRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *config.ReminderDecl)
		want   string
	}{
		{"missing name", func(d *config.ReminderDecl) { d.Name = "" }, "name is required"},
		{"missing message", func(d *config.ReminderDecl) { d.Message = "" }, "message is required"},
		{"missing showOn", func(d *config.ReminderDecl) { d.ShowOn = nil }, "showOn is required"},
		{"missing end", func(d *config.ReminderDecl) { d.ShowOn.End = nil }, "both start and end"},
		{"lowercase day", func(d *config.ReminderDecl) { d.ShowOn.Start.Day = "wednesday" }, "showOn.start.day"},
		{"no leading zero", func(d *config.ReminderDecl) { d.ShowOn.End.Time = "9:00" }, "showOn.end.time"},
		{"hour 24", func(d *config.ReminderDecl) { d.ShowOn.Start.Time = "24:00" }, "HH:MM"},
		{"string excludeHolidays", func(d *config.ReminderDecl) { d.ExcludeHolidays = "yes" }, "excludeHolidays must be a boolean"},
		{"bad eventDay", func(d *config.ReminderDecl) { d.EventDay = sp("Thu") }, "eventDay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validWindow()
			start, end := *d.ShowOn.Start, *d.ShowOn.End
			d.ShowOn = &config.ShowOnDecl{Start: &start, End: &end}
			tt.mutate(&d)

			_, err := Reminder(d)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReminderAllDayRequiresDay(t *testing.T) {
	d := validAllDay()
	d.ShowOn.Day = ""
	_, err := Reminder(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "showOn.day is required")

	d.ShowOn.Day = "Caturday"
	_, err = Reminder(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Caturday")
}

func TestRemindersDropsInvalidAndKeepsOrder(t *testing.T) {
	broken := validAllDay()
	broken.Name = "Broken"
	broken.Message = ""

	rs, diags := Reminders([]config.ReminderDecl{validAllDay(), broken, validWindow()})
	require.Len(t, rs, 2)
	assert.Equal(t, "Trash Day", rs[0].Name)
	assert.Equal(t, "Street Cleaning", rs[1].Name)

	require.Len(t, diags, 1)
	assert.Equal(t, KindReminder, diags[0].Kind)
	assert.Equal(t, 1, diags[0].Index)
	assert.Equal(t, "Broken", diags[0].Name)
	assert.Contains(t, diags[0].String(), `reminder "Broken"`)
}

func TestRemindersFromYAMLKeepsSiblingsOfMalformedEntry(t *testing.T) {
	doc := `
reminders:
  - name: Good
    message: hi
    showOn: {allDay: true, day: Monday}
  - name: Bad
    message: hi
    showOn: [1, 2]
  - name: Quoted
    message: hi
    showOn: {allDay: true, day: Friday}
    excludeHolidays: "true"
`
	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)

	rs, diags := Reminders(cfg.Reminders)
	require.Len(t, rs, 1)
	assert.Equal(t, "Good", rs[0].Name)
	require.Len(t, diags, 2)
	assert.Equal(t, "Bad", diags[0].Name)
	assert.Equal(t, "Quoted", diags[1].Name)
	assert.Contains(t, diags[1].Message(), "boolean")
}

func TestHolidayRule(t *testing.T) {
	tests := []struct {
		name string
		decl config.HolidayDecl
		want holiday.Rule
	}{
		{
			name: "fixed",
			decl: config.HolidayDecl{Type: "fixed", Name: "Christmas", Month: ip(12), Day: ip(25)},
			want: holiday.Fixed{Name: "Christmas", Month: time.December, Day: 25},
		},
		{
			name: "nth weekday",
			decl: config.HolidayDecl{Type: "nthWeekday", Name: "Thanksgiving", Month: ip(11), Weekday: ip(4), Nth: ip(4)},
			want: holiday.NthWeekday{Name: "Thanksgiving", Month: time.November, Weekday: calendar.Thursday, Nth: 4},
		},
		{
			name: "last weekday with sunday",
			decl: config.HolidayDecl{Type: "nthWeekday", Name: "Last Sunday", Month: ip(3), Weekday: ip(0), Nth: ip(-1)},
			want: holiday.NthWeekday{Name: "Last Sunday", Month: time.March, Weekday: calendar.Sunday, Nth: -1},
		},
		{
			name: "explicit date",
			decl: config.HolidayDecl{Type: "date", Name: "Observed", Date: "2026-07-03"},
			want: holiday.ExplicitDate{Name: "Observed", Date: time.Date(2026, time.July, 3, 0, 0, 0, 0, time.UTC)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HolidayRule(tt.decl)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHolidayRuleRejects(t *testing.T) {
	tests := []struct {
		name string
		decl config.HolidayDecl
		want string
	}{
		{"unknown type", config.HolidayDecl{Type: "easter", Name: "Easter"}, `unknown type "easter"`},
		{"missing type", config.HolidayDecl{Name: "X", Month: ip(1), Day: ip(1)}, "type is required"},
		{"month 13", config.HolidayDecl{Type: "fixed", Name: "X", Month: ip(13), Day: ip(1)}, "month must be <= 12"},
		{"day 0", config.HolidayDecl{Type: "fixed", Name: "X", Month: ip(1), Day: ip(0)}, "day must be >= 1"},
		{"fixed missing day", config.HolidayDecl{Type: "fixed", Name: "X", Month: ip(1)}, "day is required"},
		{"fixed with nth", config.HolidayDecl{Type: "fixed", Name: "X", Month: ip(1), Day: ip(1), Nth: ip(1)}, "must not set nth"},
		{"nth zero", config.HolidayDecl{Type: "nthWeekday", Name: "X", Month: ip(1), Weekday: ip(1), Nth: ip(0)}, "nth must be one of"},
		{"nth six", config.HolidayDecl{Type: "nthWeekday", Name: "X", Month: ip(1), Weekday: ip(1), Nth: ip(6)}, "nth must be one of"},
		{"weekday 7", config.HolidayDecl{Type: "nthWeekday", Name: "X", Month: ip(1), Weekday: ip(7), Nth: ip(1)}, "weekday must be <= 6"},
		{"nth missing weekday", config.HolidayDecl{Type: "nthWeekday", Name: "X", Month: ip(1), Nth: ip(1)}, "weekday is required"},
		{"bad date", config.HolidayDecl{Type: "date", Name: "X", Date: "2026-13-01"}, "YYYY-MM-DD"},
		{"date with month", config.HolidayDecl{Type: "date", Name: "X", Date: "2026-01-01", Month: ip(1)}, "must not set month"},
		{"missing name", config.HolidayDecl{Type: "fixed", Month: ip(1), Day: ip(1)}, "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := HolidayRule(tt.decl)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHolidayRuleFromYAMLWithWrongFieldType(t *testing.T) {
	var decls []config.HolidayDecl
	doc := `
- {type: nthWeekday, name: Named Weekday, month: 5, weekday: Monday, nth: -1}
- {type: fixed, name: Fine, month: 1, day: 1}
`
	require.NoError(t, yaml.Unmarshal([]byte(doc), &decls))

	rules, diags := HolidayRules(decls)
	require.Len(t, rules, 1)
	assert.Equal(t, "Fine", rules[0].RuleName())
	require.Len(t, diags, 1)
	assert.Equal(t, "Named Weekday", diags[0].Name)
	assert.Equal(t, KindHoliday, diags[0].Kind)
}

func TestTestMode(t *testing.T) {
	day, tod, err := TestMode(config.TestMode{Day: "Tuesday", Time: "15:30"})
	require.NoError(t, err)
	assert.Equal(t, calendar.Tuesday, day)
	assert.Equal(t, calendar.TimeOfDay(15*60+30), tod)

	_, _, err = TestMode(config.TestMode{Day: "Tue", Time: "15:30"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestAll(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Holidays = append(cfg.Holidays, config.HolidayDecl{Type: "lunar", Name: "Moon"})

	res := All(cfg)
	assert.Len(t, res.Reminders, len(cfg.Reminders))
	assert.Len(t, res.Holidays, 11)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "Moon", res.Diagnostics[0].Name)
}
