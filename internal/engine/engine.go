// Package engine evaluates which reminders are active at an instant and
// keeps the last result so callers only re-render on membership changes.
package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"weeklyreminder/internal/calendar"
	"weeklyreminder/internal/config"
	"weeklyreminder/internal/holiday"
	appLog "weeklyreminder/internal/log"
	"weeklyreminder/internal/model"
	"weeklyreminder/internal/reminder"
	"weeklyreminder/internal/validate"
)

// ErrShutdown is returned by Tick after Shutdown.
var ErrShutdown = errors.New("engine: shut down")

// Clock returns the instant a tick evaluates against.
type Clock func() time.Time

// WallClock is the default Clock.
func WallClock() time.Time {
	return time.Now()
}

// FixedWeekClock pins "now" to day at tod within the Sunday-based week that
// contains base(). The date part still follows base so holiday lookups see
// a real calendar date.
func FixedWeekClock(day calendar.WeekDay, tod calendar.TimeOfDay, base Clock) Clock {
	if base == nil {
		base = WallClock
	}
	return func() time.Time {
		now := base()
		offset := int(day) - int(now.Weekday())
		y, m, d := now.Date()
		return time.Date(y, m, d+offset, int(tod)/60, int(tod)%60, 0, 0, now.Location())
	}
}

// State is the evaluation state carried between ticks.
type State struct {
	Active    []model.ActiveReminder `json:"active"`
	LastCheck time.Time              `json:"last_check"`
	Ticks     int                    `json:"ticks"`
}

// Result is the outcome of one tick.
type Result struct {
	Active    []model.ActiveReminder
	Changed   bool
	CheckedAt time.Time
}

// Engine owns the validated reminders, the holiday calculator and the
// evaluation state. Methods are safe for concurrent use; ticks are
// serialized.
type Engine struct {
	id string

	reminders   []reminder.Reminder
	holidays    *holiday.Calculator
	clock       Clock
	diagnostics []validate.Diagnostic

	mu        sync.RWMutex
	state     State
	activeSet map[string]struct{}
	shutdown  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the clock used by Now.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// New builds an engine over already validated reminders and rules.
func New(reminders []reminder.Reminder, rules []holiday.Rule, opts ...Option) *Engine {
	rs := make([]reminder.Reminder, len(reminders))
	copy(rs, reminders)

	e := &Engine{
		id:        uuid.NewString(),
		reminders: rs,
		holidays:  holiday.NewCalculator(rules),
		clock:     WallClock,
		activeSet: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize validates cfg and returns an engine over the valid records.
// Invalid records become diagnostics; they are logged and skipped.
func Initialize(cfg *config.Config, opts ...Option) *Engine {
	res := validate.All(cfg)

	var clockOpt []Option
	if cfg.TestMode != nil {
		day, tod, err := validate.TestMode(*cfg.TestMode)
		if err != nil {
			d := validate.Diagnostic{Kind: validate.KindTestMode, Name: cfg.TestMode.Day, Err: err}
			res.Diagnostics = append(res.Diagnostics, d)
			appLog.Warn("invalid testMode ignored; using wall clock", "reason", d.Message())
		} else {
			appLog.Info("test mode enabled", "day", day.String(), "time", tod.String())
			clockOpt = append(clockOpt, WithClock(FixedWeekClock(day, tod, WallClock)))
		}
	}

	e := New(res.Reminders, res.Holidays, append(clockOpt, opts...)...)
	e.diagnostics = res.Diagnostics

	appLog.Info("engine initialized", "engine", e.id, "reminders", len(e.reminders), "holidays", len(res.Holidays))
	return e
}

// ID identifies this engine instance in logs.
func (e *Engine) ID() string {
	return e.id
}

// Now reads the engine's clock.
func (e *Engine) Now() time.Time {
	return e.clock()
}

// Reminders returns the validated reminders in declaration order.
func (e *Engine) Reminders() []reminder.Reminder {
	out := make([]reminder.Reminder, len(e.reminders))
	copy(out, e.reminders)
	return out
}

// HolidayRules returns the validated holiday rules.
func (e *Engine) HolidayRules() []holiday.Rule {
	return e.holidays.Rules()
}

// Diagnostics returns every declaration rejected at initialization.
func (e *Engine) Diagnostics() []validate.Diagnostic {
	out := make([]validate.Diagnostic, len(e.diagnostics))
	copy(out, e.diagnostics)
	return out
}

// Holidays resolves the holiday rules for year without touching the
// engine's cache.
func (e *Engine) Holidays(year int) []holiday.Instance {
	instances, _ := holiday.ResolveYear(e.holidays.Rules(), year)
	return instances
}

// State returns a copy of the current evaluation state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := e.state
	s.Active = cloneActive(e.state.Active)
	return s
}

// Tick evaluates every reminder at now. Changed is true only when the set
// of active reminder names differs from the previous tick.
func (e *Engine) Tick(now time.Time) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown {
		return Result{}, ErrShutdown
	}

	active := e.evaluate(now)

	names := make(map[string]struct{}, len(active))
	for _, a := range active {
		names[a.Name] = struct{}{}
	}
	changed := !sameSet(e.activeSet, names)

	e.state.LastCheck = now
	e.state.Ticks++
	e.state.Active = active
	e.activeSet = names

	if changed {
		appLog.Info("active reminders changed", "engine", e.id, "count", len(active), "at", now.Format(time.RFC3339))
	} else {
		appLog.Debug("tick", "engine", e.id, "count", len(active), "at", now.Format(time.RFC3339))
	}

	return Result{Active: cloneActive(active), Changed: changed, CheckedAt: now}, nil
}

// Shutdown stops the engine; subsequent ticks fail with ErrShutdown. The
// last state stays readable.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shutdown {
		return
	}
	e.shutdown = true
	appLog.Info("engine shut down", "engine", e.id, "ticks", e.state.Ticks)
}

func (e *Engine) evaluate(now time.Time) []model.ActiveReminder {
	active := make([]model.ActiveReminder, 0)
	for _, r := range e.reminders {
		if !IsActive(r, now) {
			continue
		}
		if ShouldExcludeForHoliday(r, now, e.holidays) {
			appLog.Debug("reminder suppressed by holiday",
				"reminder", r.Name,
				"event_date", calendar.ISODate(EventDate(r, now)),
				"holiday", e.holidays.Lookup(EventDate(r, now)),
			)
			continue
		}
		active = append(active, model.ActiveReminder{Name: r.Name, Message: r.Message})
	}
	return active
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func cloneActive(in []model.ActiveReminder) []model.ActiveReminder {
	out := make([]model.ActiveReminder, len(in))
	copy(out, in)
	return out
}
