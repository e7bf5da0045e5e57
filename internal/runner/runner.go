// Package runner drives engine ticks on a schedule and forwards
// membership changes to a Renderer.
package runner

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"weeklyreminder/internal/engine"
	appLog "weeklyreminder/internal/log"
	"weeklyreminder/internal/model"
)

// Renderer receives the active reminders whenever the set changes. An
// empty slice means "show nothing".
type Renderer interface {
	Render(active []model.ActiveReminder)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(active []model.ActiveReminder)

func (f RendererFunc) Render(active []model.ActiveReminder) { f(active) }

// Ticker is the part of the engine the runner needs.
type Ticker interface {
	Now() time.Time
	Tick(now time.Time) (engine.Result, error)
}

// Runner owns the cron scheduler. Pause stops scheduling without touching
// engine state; Resume ticks immediately and re-arms the schedule.
type Runner struct {
	ticker   Ticker
	renderer Renderer
	schedule cron.Schedule

	cron *cron.Cron

	mu      sync.Mutex
	entry   cron.EntryID
	running bool
	paused  bool

	tickMu sync.Mutex
	faults int
}

// Schedule returns the tick schedule for the given interval or cron spec.
// A non-empty spec wins over the interval.
func Schedule(interval time.Duration, spec string) (cron.Schedule, error) {
	if spec != "" {
		s, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, fmt.Errorf("parse refresh schedule %q: %w", spec, err)
		}
		return s, nil
	}
	if interval <= 0 {
		return nil, errors.New("tick interval must be positive")
	}
	return cron.Every(interval), nil
}

// New returns a stopped runner.
func New(t Ticker, r Renderer, schedule cron.Schedule) *Runner {
	if r == nil {
		r = RendererFunc(func([]model.ActiveReminder) {})
	}
	logger := cronLogger{}
	return &Runner{
		ticker:   t,
		renderer: r,
		schedule: schedule,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.SkipIfStillRunning(logger)),
		),
	}
}

// Start performs an immediate tick and starts the schedule.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.paused = false

	r.TickNow()
	r.entry = r.cron.Schedule(r.schedule, cron.FuncJob(r.TickNow))
	r.cron.Start()
	appLog.Info("runner started")
}

// Pause stops scheduling ticks; the last computed state is kept.
func (r *Runner) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running || r.paused {
		return
	}
	r.cron.Remove(r.entry)
	r.paused = true
	appLog.Info("runner paused")
}

// Resume ticks immediately and re-arms the schedule. Missed ticks are not
// replayed.
func (r *Runner) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running || !r.paused {
		return
	}
	r.paused = false
	r.TickNow()
	r.entry = r.cron.Schedule(r.schedule, cron.FuncJob(r.TickNow))
	appLog.Info("runner resumed")
}

// Stop halts the scheduler and waits for a running tick to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	r.cron.Remove(r.entry)
	r.entry = 0
	ctx := r.cron.Stop()
	<-ctx.Done()
	appLog.Info("runner stopped")
}

// Paused reports whether scheduling is paused.
func (r *Runner) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// Faults counts ticks that failed or panicked.
func (r *Runner) Faults() int {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()
	return r.faults
}

// TickNow runs one tick. Errors and panics are logged and swallowed so
// the schedule keeps going; the engine keeps its previous state.
func (r *Runner) TickNow() {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			r.faults++
			appLog.Error("tick panicked", fmt.Errorf("%v", p))
		}
	}()

	res, err := r.ticker.Tick(r.ticker.Now())
	if err != nil {
		r.faults++
		appLog.Error("tick failed", err)
		return
	}
	if res.Changed {
		r.renderer.Render(res.Active)
	}
}

// cronLogger routes cron's own messages into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
