package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"weeklyreminder/internal/config"
	"weeklyreminder/internal/engine"
	"weeklyreminder/internal/holiday"
	"weeklyreminder/internal/ics"
	appLog "weeklyreminder/internal/log"
	"weeklyreminder/internal/reminder"
	"weeklyreminder/internal/validate"
)

// Engine is the read side of the reminder engine the API exposes.
type Engine interface {
	ID() string
	Now() time.Time
	State() engine.State
	Reminders() []reminder.Reminder
	Holidays(year int) []holiday.Instance
	HolidayRules() []holiday.Rule
	Diagnostics() []validate.Diagnostic
}

// Controller pauses and resumes scheduled ticks.
type Controller interface {
	Pause()
	Resume()
	Paused() bool
}

// Server provides the HTTP status API.
type Server struct {
	cfg  *config.Config
	eng  Engine
	ctl  Controller
	mux  *http.ServeMux
	http *http.Server
}

// NewServer constructs a new Server. ctl may be nil, in which case the
// pause/resume endpoints answer 503.
func NewServer(cfg *config.Config, eng Engine, ctl Controller) *Server {
	s := &Server{
		cfg: cfg,
		eng: eng,
		ctl: ctl,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Start listens on cfg.Listen in the background. Serve errors other than
// a clean shutdown are logged.
func (s *Server) Start() {
	s.http = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server stopped", err, "listen", s.cfg.Listen)
		}
	}()
}

// Shutdown stops the server started by Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="WeeklyReminder", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/active", s.handleActive)
	s.mux.HandleFunc("GET /api/reminders", s.handleReminders)
	s.mux.HandleFunc("GET /api/holidays", s.handleHolidays)
	s.mux.HandleFunc("GET /api/diagnostics", s.handleDiagnostics)
	s.mux.HandleFunc("POST /api/pause", s.handlePause)
	s.mux.HandleFunc("POST /api/resume", s.handleResume)
	s.mux.HandleFunc("GET /calendar.ics", s.handleCalendar)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// activeResponse is the JSON response shape for /api/active.
type activeResponse struct {
	Engine string `json:"engine"`
	engine.State
	Paused bool `json:"paused"`
}

func (s *Server) handleActive(w http.ResponseWriter, _ *http.Request) {
	resp := activeResponse{
		Engine: s.eng.ID(),
		State:  s.eng.State(),
	}
	if s.ctl != nil {
		resp.Paused = s.ctl.Paused()
	}
	writeJSON(w, http.StatusOK, resp)
}

// reminderDTO is a JSON-friendly view of a validated reminder.
type reminderDTO struct {
	Name            string `json:"name"`
	Message         string `json:"message"`
	ShowOn          string `json:"show_on"`
	ExcludeHolidays bool   `json:"exclude_holidays"`
	EventDay        string `json:"event_day,omitempty"`
}

func (s *Server) handleReminders(w http.ResponseWriter, _ *http.Request) {
	rs := s.eng.Reminders()
	out := make([]reminderDTO, 0, len(rs))
	for _, r := range rs {
		dto := reminderDTO{
			Name:            r.Name,
			Message:         r.Message,
			ShowOn:          r.ShowOn.String(),
			ExcludeHolidays: r.ExcludeHolidays,
		}
		if d := r.EventWeekDay(); d.Valid() {
			dto.EventDay = d.String()
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

type holidaysResponse struct {
	Year     int                `json:"year"`
	Holidays []holiday.Instance `json:"holidays"`
}

// handleHolidays lists resolved holidays.
//
// GET /api/holidays?year=2027 (default: the engine's current year)
func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	year := parseIntDefault(r.URL.Query().Get("year"), s.eng.Now().Year())
	if year < 1 || year > 9999 {
		writeError(w, http.StatusBadRequest, "year out of range")
		return
	}
	hs := s.eng.Holidays(year)
	if hs == nil {
		hs = []holiday.Instance{}
	}
	writeJSON(w, http.StatusOK, holidaysResponse{Year: year, Holidays: hs})
}

type diagnosticDTO struct {
	Kind    string `json:"kind"`
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, _ *http.Request) {
	ds := s.eng.Diagnostics()
	out := make([]diagnosticDTO, 0, len(ds))
	for _, d := range ds {
		out = append(out, diagnosticDTO{Kind: d.Kind, Index: d.Index, Name: d.Name, Message: d.Message()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	if s.ctl == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not running")
		return
	}
	s.ctl.Pause()
	writeJSON(w, http.StatusOK, map[string]bool{"paused": s.ctl.Paused()})
}

func (s *Server) handleResume(w http.ResponseWriter, _ *http.Request) {
	if s.ctl == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not running")
		return
	}
	s.ctl.Resume()
	writeJSON(w, http.StatusOK, map[string]bool{"paused": s.ctl.Paused()})
}

// handleCalendar exports the holiday rules and the weekly reminders as
// an iCalendar feed.
func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	now := s.eng.Now()
	body := ics.Export(s.eng.HolidayRules(), s.eng.Reminders(), now)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="weeklyreminder.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
