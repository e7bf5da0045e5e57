package ics

import (
	"context"
	"fmt"

	"weeklyreminder/internal/config"
	appLog "weeklyreminder/internal/log"
)

// SourcesFromConfig converts configured feeds into fetch sources. Feeds
// without an ID are numbered by position.
func SourcesFromConfig(feeds []config.FeedConfig) []Source {
	out := make([]Source, 0, len(feeds))
	for i, f := range feeds {
		id := f.ID
		if id == "" {
			id = fmt.Sprintf("feed-%d", i)
		}
		out = append(out, Source{ID: id, URL: f.URL})
	}
	return out
}

// LoadHolidays fetches, parses and expands every configured feed for
// year and year+1. A failing feed is reported in errs; the declarations
// of the remaining feeds are still returned.
func LoadHolidays(ctx context.Context, f *Fetcher, feeds []config.FeedConfig, year int) ([]config.HolidayDecl, []error) {
	if len(feeds) == 0 {
		return nil, nil
	}

	results, errs := f.FetchAll(ctx, SourcesFromConfig(feeds))

	var events []ParsedEvent
	for _, res := range results {
		evs, err := ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("feed %s: %w", res.Source.ID, err))
			appLog.Error("holiday feed parse failed", err, "id", res.Source.ID)
			continue
		}
		events = append(events, evs...)
	}

	decls, err := ExpandHolidays(events, YearRange(year))
	if err != nil {
		return nil, append(errs, err)
	}
	appLog.Info("holiday feeds loaded", "feeds", len(feeds), "events", len(events), "dates", len(decls))
	return decls, errs
}
