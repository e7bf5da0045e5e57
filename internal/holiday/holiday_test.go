package holiday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weeklyreminder/internal/calendar"
)

func usFederal() []Rule {
	return []Rule{
		Fixed{Name: "New Year's Day", Month: time.January, Day: 1},
		NthWeekday{Name: "Martin Luther King Jr. Day", Month: time.January, Weekday: calendar.Monday, Nth: 3},
		NthWeekday{Name: "Presidents' Day", Month: time.February, Weekday: calendar.Monday, Nth: 3},
		NthWeekday{Name: "Memorial Day", Month: time.May, Weekday: calendar.Monday, Nth: -1},
		Fixed{Name: "Juneteenth", Month: time.June, Day: 19},
		Fixed{Name: "Independence Day", Month: time.July, Day: 4},
		NthWeekday{Name: "Labor Day", Month: time.September, Weekday: calendar.Monday, Nth: 1},
		NthWeekday{Name: "Columbus Day", Month: time.October, Weekday: calendar.Monday, Nth: 2},
		Fixed{Name: "Veterans Day", Month: time.November, Day: 11},
		NthWeekday{Name: "Thanksgiving", Month: time.November, Weekday: calendar.Thursday, Nth: 4},
		Fixed{Name: "Christmas Day", Month: time.December, Day: 25},
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveYearUSFederal2026(t *testing.T) {
	got, skips := ResolveYear(usFederal(), 2026)
	assert.Empty(t, skips)

	want := []Instance{
		{"2026-01-01", "New Year's Day"},
		{"2026-01-19", "Martin Luther King Jr. Day"},
		{"2026-02-16", "Presidents' Day"},
		{"2026-05-25", "Memorial Day"},
		{"2026-06-19", "Juneteenth"},
		{"2026-07-04", "Independence Day"},
		{"2026-09-07", "Labor Day"},
		{"2026-10-12", "Columbus Day"},
		{"2026-11-11", "Veterans Day"},
		{"2026-11-26", "Thanksgiving"},
		{"2026-12-25", "Christmas Day"},
	}
	assert.Equal(t, want, got)
}

func TestResolveYearExplicitDateOnlyInItsYear(t *testing.T) {
	rules := []Rule{
		ExplicitDate{Name: "Observed", Date: date(2026, time.July, 3)},
	}

	got, skips := ResolveYear(rules, 2026)
	assert.Equal(t, []Instance{{"2026-07-03", "Observed"}}, got)
	assert.Empty(t, skips)

	got, skips = ResolveYear(rules, 2027)
	assert.Empty(t, got)
	assert.Empty(t, skips, "a date outside the year is not worth reporting")
}

func TestResolveYearSkipsImpossibleOccurrences(t *testing.T) {
	rules := []Rule{
		NthWeekday{Name: "Fifth Thursday", Month: time.February, Weekday: calendar.Thursday, Nth: 5},
		Fixed{Name: "Leap Day", Month: time.February, Day: 29},
		Fixed{Name: "Pi Day", Month: time.March, Day: 14},
	}

	got, skips := ResolveYear(rules, 2026)
	assert.Equal(t, []Instance{{"2026-03-14", "Pi Day"}}, got)
	require.Len(t, skips, 2)
	assert.Equal(t, "Fifth Thursday", skips[0].Rule)
	assert.Equal(t, "Leap Day", skips[1].Rule)

	// February 2024 has five Thursdays, the last one on Leap Day.
	got, skips = ResolveYear(rules, 2024)
	assert.Equal(t, []Instance{{"2024-02-29", "Fifth Thursday"}, {"2024-02-29", "Leap Day"}, {"2024-03-14", "Pi Day"}}, got)
	assert.Empty(t, skips)

	// February 2028 starts on a Tuesday: four Thursdays, but a Leap Day.
	got, skips = ResolveYear(rules, 2028)
	assert.Equal(t, []Instance{{"2028-02-29", "Leap Day"}, {"2028-03-14", "Pi Day"}}, got)
	require.Len(t, skips, 1)
	assert.Equal(t, "Fifth Thursday", skips[0].Rule)
	assert.Equal(t, 2028, skips[0].Year)
}

func TestCalculatorCachesOneYear(t *testing.T) {
	c := NewCalculator(usFederal())
	assert.Equal(t, 0, c.CachedYear())

	assert.True(t, c.IsHoliday(date(2026, time.November, 26)))
	assert.False(t, c.IsHoliday(date(2026, time.November, 25)))
	assert.Equal(t, 1, c.computations, "same-year lookups reuse the cache")
	assert.Equal(t, 2026, c.CachedYear())

	assert.True(t, c.IsHoliday(date(2027, time.November, 25)))
	assert.Equal(t, 2, c.computations, "a new year replaces the slot")
	assert.Equal(t, 2027, c.CachedYear())

	assert.True(t, c.IsHoliday(date(2026, time.December, 25)))
	assert.Equal(t, 3, c.computations, "only one year is resident")
}

func TestCalculatorIgnoresTimeOfDay(t *testing.T) {
	c := NewCalculator(usFederal())
	loc := time.FixedZone("TEST", -5*3600)
	assert.True(t, c.IsHoliday(time.Date(2026, time.July, 4, 23, 59, 0, 0, loc)))
	assert.Equal(t, []string{"Independence Day"}, c.Lookup(time.Date(2026, time.July, 4, 8, 0, 0, 0, loc)))
	assert.Nil(t, c.Lookup(date(2026, time.July, 5)))
}

func TestCalculatorEmpty(t *testing.T) {
	c := NewCalculator(nil)
	assert.True(t, c.Empty())
	assert.False(t, c.IsHoliday(date(2026, time.January, 1)))
	assert.Empty(t, c.ForDate(date(2026, time.January, 1)))
}

func TestRuleRRuleAgreesWithResolve(t *testing.T) {
	from := date(2026, time.January, 1)
	until := date(2030, time.December, 31)

	for _, r := range usFederal() {
		rr := r.RRule(from)
		require.NotNil(t, rr, r.RuleName())

		occ := rr.Between(from, until, true)
		require.Len(t, occ, 5, r.RuleName())
		for _, o := range occ {
			got, _ := ResolveYear([]Rule{r}, o.Year())
			require.Len(t, got, 1)
			assert.Equal(t, got[0].Date, calendar.ISODate(o), r.RuleName())
		}
	}

	assert.Nil(t, ExplicitDate{Name: "x", Date: from}.RRule(from))
}
