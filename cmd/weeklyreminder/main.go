package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"weeklyreminder/internal/config"
	"weeklyreminder/internal/engine"
	"weeklyreminder/internal/ics"
	appLog "weeklyreminder/internal/log"
)

const version = "0.1.0"

var (
	cfgPath string
	noFeeds bool
)

var rootCmd = &cobra.Command{
	Use:   "weeklyreminder",
	Short: "Weekly reminder engine",
	Long: `weeklyreminder decides which recurring weekly reminders are showing
right now. Reminders are declared in YAML as all-day or time-window
patterns and may be suppressed around holidays.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(runCmd, checkCmd, holidaysCmd, activeCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "/etc/weeklyreminder/config.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&noFeeds, "no-feeds", false, "Skip fetching holiday ICS feeds")
}

// loadConfig reads the config file, applies environment overrides and
// configures the logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	appLog.Init(appLog.ParseLevel(cfg.LogLevel), cfg.Production)
	appLog.Debug("effective config",
		"path", cfgPath,
		"listen", cfg.Listen,
		"update_interval_ms", cfg.UpdateInterval,
		"refresh", cfg.Refresh,
		"holidays", len(cfg.Holidays),
		"holiday_feeds", len(cfg.HolidayFeeds),
		"reminders", len(cfg.Reminders),
	)
	return cfg, nil
}

// bootstrap loads the config, merges holiday feed dates into it and builds
// the engine.
func bootstrap(ctx context.Context, opts ...engine.Option) (*config.Config, *engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	if !noFeeds && len(cfg.HolidayFeeds) > 0 {
		fetchCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		decls, errs := ics.LoadHolidays(fetchCtx, ics.NewFetcher(feedCacheDir(cfg)), cfg.HolidayFeeds, time.Now().Year())
		if len(errs) > 0 {
			appLog.Warn("some holiday feeds could not be loaded", "failed", len(errs))
		}
		cfg.Holidays = append(cfg.Holidays, decls...)
	}

	return cfg, engine.Initialize(cfg, opts...), nil
}

func feedCacheDir(cfg *config.Config) string {
	if cfg.CacheDir == "" {
		return ""
	}
	return filepath.Join(cfg.CacheDir, "feeds")
}
