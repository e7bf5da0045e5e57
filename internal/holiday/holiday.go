// Package holiday resolves declarative holiday rules into concrete dates
// and answers "is this date a holiday" with a single-year cache.
package holiday

import (
	"sort"
	"time"

	"weeklyreminder/internal/calendar"
	appLog "weeklyreminder/internal/log"
)

// Instance is a rule resolved to a concrete date for one year.
type Instance struct {
	Date string `json:"date" yaml:"date"` // YYYY-MM-DD
	Name string `json:"name" yaml:"name"`
}

// Skip records why a rule produced no instance for a year.
type Skip struct {
	Rule   string
	Year   int
	Reason string
}

// ResolveYear resolves every rule for year. Instances are ordered by date,
// ties keep declaration order. Rules that cannot produce a date are
// reported in skips and otherwise ignored.
func ResolveYear(rules []Rule, year int) (instances []Instance, skips []Skip) {
	instances = make([]Instance, 0, len(rules))
	for _, r := range rules {
		if r == nil {
			continue
		}
		d, ok, reason := r.resolve(year)
		if !ok {
			if reason != "" {
				skips = append(skips, Skip{Rule: r.RuleName(), Year: year, Reason: reason})
			}
			continue
		}
		instances = append(instances, Instance{Date: calendar.ISODate(d), Name: r.RuleName()})
	}
	sort.SliceStable(instances, func(i, j int) bool {
		return instances[i].Date < instances[j].Date
	})
	return instances, skips
}

// cache holds the resolved instances of exactly one year.
type cache struct {
	year      int
	instances []Instance
	dates     map[string]struct{}
}

// Calculator owns the rule set and the single-slot year cache. It is not
// safe for concurrent use; the engine serializes access.
type Calculator struct {
	rules []Rule
	cache *cache

	// computations counts ResolveYear runs.
	computations int
}

// NewCalculator returns a calculator over rules. The slice is copied.
func NewCalculator(rules []Rule) *Calculator {
	rs := make([]Rule, len(rules))
	copy(rs, rules)
	return &Calculator{rules: rs}
}

// Rules returns the configured rules.
func (c *Calculator) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Empty reports whether no rules are configured.
func (c *Calculator) Empty() bool {
	return len(c.rules) == 0
}

// ForDate returns the holiday instances of date's year, recomputing only
// when the year differs from the cached one.
func (c *Calculator) ForDate(date time.Time) []Instance {
	year := date.Year()
	if c.cache == nil || c.cache.year != year {
		c.cache = c.compute(year)
	}
	return c.cache.instances
}

// IsHoliday reports whether date's calendar day matches a holiday.
func (c *Calculator) IsHoliday(date time.Time) bool {
	c.ForDate(date)
	_, ok := c.cache.dates[calendar.ISODate(date)]
	return ok
}

// Lookup returns the names of the holidays on date's calendar day.
func (c *Calculator) Lookup(date time.Time) []string {
	key := calendar.ISODate(date)
	var names []string
	for _, inst := range c.ForDate(date) {
		if inst.Date == key {
			names = append(names, inst.Name)
		}
	}
	return names
}

// CachedYear returns the year currently resident, or 0.
func (c *Calculator) CachedYear() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.year
}

func (c *Calculator) compute(year int) *cache {
	c.computations++
	instances, skips := ResolveYear(c.rules, year)
	for _, s := range skips {
		appLog.Warn("holiday skipped for year", "holiday", s.Rule, "year", s.Year, "reason", s.Reason)
	}

	dates := make(map[string]struct{}, len(instances))
	for _, inst := range instances {
		dates[inst.Date] = struct{}{}
	}
	appLog.Debug("holidays resolved", "year", year, "count", len(instances))

	return &cache{year: year, instances: instances, dates: dates}
}
