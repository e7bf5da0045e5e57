package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/xlab/closer"

	"weeklyreminder/internal/calendar"
	"weeklyreminder/internal/engine"
	"weeklyreminder/internal/ics"
	appLog "weeklyreminder/internal/log"
	"weeklyreminder/internal/model"
	"weeklyreminder/internal/runner"
	"weeklyreminder/internal/web"
)

var runListen string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate reminders on a schedule and serve the status API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, eng, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		if runListen != "" {
			cfg.Listen = runListen
		}
		appLog.Info("weeklyreminder starting", "version", version, "engine", eng.ID())

		sched, err := runner.Schedule(time.Duration(cfg.UpdateInterval)*time.Millisecond, cfg.Refresh)
		if err != nil {
			return err
		}
		r := runner.New(eng, runner.RendererFunc(logActive), sched)
		srv := web.NewServer(cfg, eng, r)

		closer.Bind(func() {
			appLog.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				appLog.Error("HTTP shutdown failed", err)
			}
			r.Stop()
			eng.Shutdown()
			appLog.Sync()
		})

		r.Start()
		srv.Start()
		closer.Hold()
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and list rejected declarations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, eng, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer appLog.Sync()

		out := cmd.OutOrStdout()
		diags := eng.Diagnostics()
		fmt.Fprintf(out, "%d reminders, %d holiday rules accepted\n", len(eng.Reminders()), len(eng.HolidayRules()))
		for _, d := range diags {
			fmt.Fprintf(out, "  %s\n", d)
		}
		if len(diags) > 0 {
			return fmt.Errorf("%d declarations rejected", len(diags))
		}
		return nil
	},
}

var holidaysYear int

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "List the resolved holidays for a year",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, eng, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer appLog.Sync()

		year := holidaysYear
		if year == 0 {
			year = eng.Now().Year()
		}
		for _, h := range eng.Holidays(year) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", h.Date, h.Name)
		}
		return nil
	},
}

var activeAt string

var activeCmd = &cobra.Command{
	Use:   "active",
	Short: "Print the reminders active now or at a given weekday and time",
	Example: `  weeklyreminder active
  weeklyreminder active --at "Tuesday 15:30"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var opts []engine.Option
		if activeAt != "" {
			day, tod, err := parseAt(activeAt)
			if err != nil {
				return err
			}
			opts = append(opts, engine.WithClock(engine.FixedWeekClock(day, tod, engine.WallClock)))
		}

		_, eng, err := bootstrap(cmd.Context(), opts...)
		if err != nil {
			return err
		}
		defer appLog.Sync()

		now := eng.Now()
		res, err := eng.Tick(now)
		if err != nil {
			return err
		}
		printActive(cmd.OutOrStdout(), now, res.Active)
		return nil
	},
}

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export-ics",
	Short: "Write holidays and reminders as an iCalendar file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, eng, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer appLog.Sync()

		now := eng.Now()
		body := ics.Export(eng.HolidayRules(), eng.Reminders(), now)
		if exportOut == "" || exportOut == "-" {
			_, err = io.WriteString(cmd.OutOrStdout(), body)
			return err
		}
		if err := os.WriteFile(exportOut, []byte(body), 0o644); err != nil {
			return err
		}
		appLog.Info("calendar exported", "path", exportOut, "bytes", len(body))
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runListen, "listen", "", "HTTP listen address (overrides config if set)")
	holidaysCmd.Flags().IntVar(&holidaysYear, "year", 0, "Year to resolve (default: current year)")
	activeCmd.Flags().StringVar(&activeAt, "at", "", `Evaluate at "<Weekday> HH:MM" in the current week`)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: stdout)")
}

// parseAt parses "<Weekday> HH:MM".
func parseAt(s string) (calendar.WeekDay, calendar.TimeOfDay, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return calendar.Invalid, 0, errors.New(`--at must look like "Tuesday 15:30"`)
	}
	day, ok := calendar.ParseWeekDay(fields[0])
	if !ok {
		return calendar.Invalid, 0, fmt.Errorf("unknown weekday %q", fields[0])
	}
	tod, err := calendar.ParseTimeOfDay(fields[1])
	if err != nil {
		return calendar.Invalid, 0, err
	}
	return day, tod, nil
}

func printActive(w io.Writer, now time.Time, active []model.ActiveReminder) {
	fmt.Fprintf(w, "%s %s\n", now.Weekday(), now.Format("2006-01-02 15:04"))
	if len(active) == 0 {
		fmt.Fprintln(w, "  (nothing to show)")
		return
	}
	for _, a := range active {
		fmt.Fprintf(w, "  %s: %s\n", a.Name, a.Message)
	}
}

// logActive is the renderer used by run: every membership change is logged.
func logActive(active []model.ActiveReminder) {
	names := make([]string, 0, len(active))
	for _, a := range active {
		names = append(names, a.Name)
	}
	appLog.Info("active reminders changed", "count", len(active), "names", names)
}
