package runner

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weeklyreminder/internal/calendar"
	"weeklyreminder/internal/engine"
	"weeklyreminder/internal/model"
	"weeklyreminder/internal/reminder"
)

type fakeTicker struct {
	mu      sync.Mutex
	calls   int
	results []engine.Result
	err     error
	panicV  any
}

func (f *fakeTicker) Now() time.Time { return time.Date(2026, time.October, 13, 9, 0, 0, 0, time.UTC) }

func (f *fakeTicker) Tick(time.Time) (engine.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panicV != nil {
		panic(f.panicV)
	}
	if f.err != nil {
		return engine.Result{}, f.err
	}
	if len(f.results) == 0 {
		return engine.Result{}, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r, nil
}

func (f *fakeTicker) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recorder struct {
	mu     sync.Mutex
	frames [][]model.ActiveReminder
}

func (r *recorder) Render(active []model.ActiveReminder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, active)
}

func (r *recorder) Frames() [][]model.ActiveReminder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]model.ActiveReminder(nil), r.frames...)
}

func TestSchedule(t *testing.T) {
	s, err := Schedule(time.Minute, "")
	require.NoError(t, err)
	base := time.Date(2026, time.October, 13, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(time.Minute), s.Next(base))

	s, err = Schedule(time.Minute, "*/15 * * * *")
	require.NoError(t, err)
	assert.Equal(t, base.Add(15*time.Minute), s.Next(base))

	_, err = Schedule(time.Minute, "not a cron")
	assert.Error(t, err)

	_, err = Schedule(0, "")
	assert.Error(t, err)
}

func TestTickNowRendersOnlyOnChange(t *testing.T) {
	active := []model.ActiveReminder{{Name: "Trash Day", Message: "m"}}
	ft := &fakeTicker{results: []engine.Result{
		{Active: active, Changed: true},
		{Active: active, Changed: false},
		{Active: []model.ActiveReminder{}, Changed: true},
	}}
	rec := &recorder{}
	r := New(ft, rec, nil)

	r.TickNow()
	r.TickNow()
	r.TickNow()

	frames := rec.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, active, frames[0])
	assert.Empty(t, frames[1])
	assert.Equal(t, 0, r.Faults())
}

func TestTickNowSurvivesFaults(t *testing.T) {
	ft := &fakeTicker{err: errors.New("boom")}
	rec := &recorder{}
	r := New(ft, rec, nil)

	r.TickNow()
	assert.Equal(t, 1, r.Faults())

	ft.mu.Lock()
	ft.err = nil
	ft.panicV = "unexpected"
	ft.mu.Unlock()

	assert.NotPanics(t, r.TickNow)
	assert.Equal(t, 2, r.Faults())
	assert.Empty(t, rec.Frames())
}

func TestPanicKeepsEngineState(t *testing.T) {
	eng := engine.New([]reminder.Reminder{
		{Name: "Trash Day", Message: "m", ShowOn: reminder.AllDay{Day: calendar.Tuesday}},
	}, nil)
	tuesday := time.Date(2026, time.October, 13, 9, 0, 0, 0, time.UTC)
	_, err := eng.Tick(tuesday)
	require.NoError(t, err)

	ticker := panicOnce{Engine: eng}
	r := New(&ticker, nil, nil)
	r.TickNow()

	assert.Equal(t, 1, r.Faults())
	assert.Equal(t, tuesday, eng.State().LastCheck)
	assert.Len(t, eng.State().Active, 1)
}

type panicOnce struct {
	*engine.Engine
}

func (p *panicOnce) Tick(time.Time) (engine.Result, error) {
	panic("evaluation fault")
}

func TestStartPauseResume(t *testing.T) {
	s, err := Schedule(time.Hour, "")
	require.NoError(t, err)

	ft := &fakeTicker{}
	r := New(ft, nil, s)

	r.Start()
	assert.Equal(t, 1, ft.Calls(), "start ticks immediately")
	r.Start()
	assert.Equal(t, 1, ft.Calls(), "second start is a no-op")

	r.Pause()
	assert.True(t, r.Paused())
	assert.Equal(t, 1, ft.Calls())

	r.Resume()
	assert.False(t, r.Paused())
	assert.Equal(t, 2, ft.Calls(), "resume ticks immediately")

	r.Resume()
	assert.Equal(t, 2, ft.Calls(), "resume while running is a no-op")

	r.Stop()
	r.Stop()
}

func TestRestartKeepsOneEntry(t *testing.T) {
	s, err := Schedule(time.Hour, "")
	require.NoError(t, err)

	ft := &fakeTicker{}
	r := New(ft, nil, s)

	r.Start()
	r.Stop()
	assert.Empty(t, r.cron.Entries(), "stop unschedules the tick")

	r.Start()
	defer r.Stop()
	assert.Len(t, r.cron.Entries(), 1)
	assert.Equal(t, 2, ft.Calls())
}

func TestScheduledTicksWithEngine(t *testing.T) {
	s, err := Schedule(time.Second, "")
	require.NoError(t, err)

	eng := engine.New([]reminder.Reminder{
		{Name: "Always", Message: "m", ShowOn: reminder.Window{
			Start: reminder.Point{Day: calendar.Sunday, Time: 0},
			End:   reminder.Point{Day: calendar.Saturday, Time: calendar.MinutesPerDay - 1},
		}},
	}, nil, engine.WithClock(func() time.Time {
		return time.Date(2026, time.October, 13, 9, 0, 0, 0, time.UTC)
	}))
	rec := &recorder{}
	r := New(eng, rec, s)

	r.Start()
	defer r.Stop()

	assert.Eventually(t, func() bool { return eng.State().Ticks >= 2 }, 5*time.Second, 50*time.Millisecond)
	frames := rec.Frames()
	require.Len(t, frames, 1, "later ticks see the same set")
	assert.Equal(t, "Always", frames[0][0].Name)
}
