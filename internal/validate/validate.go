// Package validate turns raw reminder and holiday declarations into typed
// values. Invalid records are reported as diagnostics and dropped; they
// never stop the remaining records from loading.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"weeklyreminder/internal/calendar"
	"weeklyreminder/internal/config"
	"weeklyreminder/internal/holiday"
	appLog "weeklyreminder/internal/log"
	"weeklyreminder/internal/reminder"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid declaration")

const (
	KindReminder = "reminder"
	KindHoliday  = "holiday"
	KindTestMode = "testMode"
)

// Diagnostic describes one rejected declaration.
type Diagnostic struct {
	Kind  string `json:"kind"`
	Index int    `json:"index"`
	Name  string `json:"name"`
	Err   error  `json:"-"`
}

func (d Diagnostic) Message() string {
	if d.Err == nil {
		return ""
	}
	return d.Err.Error()
}

func (d Diagnostic) String() string {
	name := d.Name
	if name == "" {
		name = fmt.Sprintf("#%d", d.Index)
	}
	return fmt.Sprintf("%s %q: %v", d.Kind, name, d.Err)
}

var (
	structValidator *validator.Validate
	validatorOnce   sync.Once
)

func fieldValidator() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
			return calendar.DayIndex(fl.Field().String()) != calendar.Invalid
		})
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			return calendar.IsHHMM(fl.Field().String())
		})
		structValidator = v
	})
	return structValidator
}

type reminderCheck struct {
	Name    string `validate:"required"`
	Message string `validate:"required"`
}

type allDayCheck struct {
	Day string `validate:"required,weekday"`
}

type pointCheck struct {
	Day  string `validate:"required,weekday"`
	Time string `validate:"required,hhmm"`
}

type fixedCheck struct {
	Name  string `validate:"required"`
	Month *int   `validate:"required,min=1,max=12"`
	Day   *int   `validate:"required,min=1,max=31"`
}

type nthCheck struct {
	Name    string `validate:"required"`
	Month   *int   `validate:"required,min=1,max=12"`
	Weekday *int   `validate:"required,min=0,max=6"`
	Nth     *int   `validate:"required,oneof=-1 1 2 3 4 5"`
}

type dateCheck struct {
	Name string `validate:"required"`
	Date string `validate:"required,datetime=2006-01-02"`
}

// check runs the struct validator and rewrites its errors with prefix.
func check(prefix string, s any) error {
	err := fieldValidator().Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, describe(prefix, fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(prefix string, fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	if prefix != "" {
		field = prefix + "." + field
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "weekday":
		return fmt.Sprintf("%s %q is not one of %s", field, fe.Value(), strings.Join(calendar.DayNames(), ", "))
	case "hhmm":
		return fmt.Sprintf("%s %q is not HH:MM (00:00-23:59)", field, fe.Value())
	case "min":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s %q is not YYYY-MM-DD", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalid, err)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// Reminder validates one declaration.
func Reminder(d config.ReminderDecl) (reminder.Reminder, error) {
	if err := d.DecodeErr(); err != nil {
		return reminder.Reminder{}, invalid(err)
	}
	if err := check("", reminderCheck{Name: d.Name, Message: d.Message}); err != nil {
		return reminder.Reminder{}, invalid(err)
	}
	if d.ShowOn == nil {
		return reminder.Reminder{}, invalidf("showOn is required")
	}

	so, err := parseShowOn(*d.ShowOn)
	if err != nil {
		return reminder.Reminder{}, invalid(err)
	}

	out := reminder.Reminder{
		Name:    d.Name,
		Message: d.Message,
		ShowOn:  so,
	}

	if d.ExcludeHolidays != nil {
		b, ok := d.ExcludeHolidays.(bool)
		if !ok {
			return reminder.Reminder{}, invalidf("excludeHolidays must be a boolean, got %T", d.ExcludeHolidays)
		}
		out.ExcludeHolidays = b
	}

	if d.EventDay != nil {
		day, ok := calendar.ParseWeekDay(*d.EventDay)
		if !ok {
			return reminder.Reminder{}, invalidf("eventDay %q is not one of %s", *d.EventDay, strings.Join(calendar.DayNames(), ", "))
		}
		out.EventDay = &day
	}

	return out, nil
}

func parseShowOn(s config.ShowOnDecl) (reminder.ShowOn, error) {
	if s.AllDay {
		if err := check("showOn", allDayCheck{Day: s.Day}); err != nil {
			return nil, err
		}
		return reminder.AllDay{Day: calendar.DayIndex(s.Day)}, nil
	}

	if s.Start == nil || s.End == nil {
		return nil, errors.New("showOn needs allDay: true with day, or both start and end")
	}
	start, err := point("showOn.start", *s.Start)
	if err != nil {
		return nil, err
	}
	end, err := point("showOn.end", *s.End)
	if err != nil {
		return nil, err
	}
	return reminder.Window{Start: start, End: end}, nil
}

func point(prefix string, p config.PointDecl) (reminder.Point, error) {
	if err := check(prefix, pointCheck{Day: p.Day, Time: p.Time}); err != nil {
		return reminder.Point{}, err
	}
	t, err := calendar.ParseTimeOfDay(p.Time)
	if err != nil {
		return reminder.Point{}, err
	}
	return reminder.Point{Day: calendar.DayIndex(p.Day), Time: t}, nil
}

// HolidayRule validates one holiday declaration.
func HolidayRule(d config.HolidayDecl) (holiday.Rule, error) {
	if err := d.DecodeErr(); err != nil {
		return nil, invalid(err)
	}

	switch d.Type {
	case config.HolidayFixed:
		if err := forbid(d, "weekday", "nth", "date"); err != nil {
			return nil, err
		}
		if err := check("", fixedCheck{Name: d.Name, Month: d.Month, Day: d.Day}); err != nil {
			return nil, invalid(err)
		}
		return holiday.Fixed{Name: d.Name, Month: time.Month(*d.Month), Day: *d.Day}, nil

	case config.HolidayNthWeekday:
		if err := forbid(d, "day", "date"); err != nil {
			return nil, err
		}
		if err := check("", nthCheck{Name: d.Name, Month: d.Month, Weekday: d.Weekday, Nth: d.Nth}); err != nil {
			return nil, invalid(err)
		}
		return holiday.NthWeekday{
			Name:    d.Name,
			Month:   time.Month(*d.Month),
			Weekday: calendar.WeekDay(*d.Weekday),
			Nth:     *d.Nth,
		}, nil

	case config.HolidayDate:
		if err := forbid(d, "month", "day", "weekday", "nth"); err != nil {
			return nil, err
		}
		if err := check("", dateCheck{Name: d.Name, Date: d.Date}); err != nil {
			return nil, invalid(err)
		}
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			return nil, invalid(err)
		}
		return holiday.ExplicitDate{Name: d.Name, Date: date}, nil

	case "":
		return nil, invalidf("type is required (%s, %s or %s)", config.HolidayFixed, config.HolidayNthWeekday, config.HolidayDate)

	default:
		return nil, invalidf("unknown type %q", d.Type)
	}
}

// forbid rejects fields that belong to another rule type.
func forbid(d config.HolidayDecl, fields ...string) error {
	var set []string
	for _, f := range fields {
		present := false
		switch f {
		case "month":
			present = d.Month != nil
		case "day":
			present = d.Day != nil
		case "weekday":
			present = d.Weekday != nil
		case "nth":
			present = d.Nth != nil
		case "date":
			present = d.Date != ""
		}
		if present {
			set = append(set, f)
		}
	}
	if len(set) == 0 {
		return nil
	}
	return invalidf("%s rule must not set %s", d.Type, strings.Join(set, ", "))
}

// Reminders validates decls in order, keeping the valid ones.
func Reminders(decls []config.ReminderDecl) ([]reminder.Reminder, []Diagnostic) {
	out := make([]reminder.Reminder, 0, len(decls))
	var diags []Diagnostic
	seen := make(map[string]bool, len(decls))

	for i, d := range decls {
		r, err := Reminder(d)
		if err != nil {
			diags = append(diags, Diagnostic{Kind: KindReminder, Index: i, Name: d.Name, Err: err})
			continue
		}
		if seen[r.Name] {
			appLog.Warn("duplicate reminder name; both are kept", "reminder", r.Name)
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	return out, diags
}

// HolidayRules validates decls in order, keeping the valid ones.
func HolidayRules(decls []config.HolidayDecl) ([]holiday.Rule, []Diagnostic) {
	out := make([]holiday.Rule, 0, len(decls))
	var diags []Diagnostic

	for i, d := range decls {
		r, err := HolidayRule(d)
		if err != nil {
			diags = append(diags, Diagnostic{Kind: KindHoliday, Index: i, Name: d.Name, Err: err})
			continue
		}
		out = append(out, r)
	}
	return out, diags
}

// TestMode parses a testMode block into a weekday and time.
func TestMode(tm config.TestMode) (calendar.WeekDay, calendar.TimeOfDay, error) {
	if err := check("testMode", pointCheck{Day: tm.Day, Time: tm.Time}); err != nil {
		return calendar.Invalid, 0, invalid(err)
	}
	t, err := calendar.ParseTimeOfDay(tm.Time)
	if err != nil {
		return calendar.Invalid, 0, invalid(err)
	}
	return calendar.DayIndex(tm.Day), t, nil
}

// Result is the validated form of a whole configuration.
type Result struct {
	Reminders   []reminder.Reminder
	Holidays    []holiday.Rule
	Diagnostics []Diagnostic
}

// All validates every reminder and holiday in cfg and logs each
// diagnostic as a warning.
func All(cfg *config.Config) Result {
	var res Result
	var diags []Diagnostic

	res.Reminders, diags = Reminders(cfg.Reminders)
	res.Diagnostics = append(res.Diagnostics, diags...)

	res.Holidays, diags = HolidayRules(cfg.Holidays)
	res.Diagnostics = append(res.Diagnostics, diags...)

	for _, d := range res.Diagnostics {
		appLog.Warn("invalid "+d.Kind+" skipped", "name", d.Name, "index", d.Index, "reason", d.Message())
	}
	appLog.Info("configuration validated",
		"reminders", len(res.Reminders),
		"holidays", len(res.Holidays),
		"rejected", len(res.Diagnostics),
	)
	return res
}
