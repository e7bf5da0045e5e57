package reminder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"weeklyreminder/internal/calendar"
)

func TestEventWeekDay(t *testing.T) {
	wed := calendar.Wednesday

	tests := []struct {
		name string
		r    Reminder
		want calendar.WeekDay
	}{
		{
			name: "explicit event day wins",
			r:    Reminder{ShowOn: AllDay{Day: calendar.Tuesday}, EventDay: &wed},
			want: calendar.Wednesday,
		},
		{
			name: "all day uses its day",
			r:    Reminder{ShowOn: AllDay{Day: calendar.Friday}},
			want: calendar.Friday,
		},
		{
			name: "window uses end day",
			r: Reminder{ShowOn: Window{
				Start: Point{Day: calendar.Wednesday, Time: 18 * 60},
				End:   Point{Day: calendar.Thursday, Time: 14 * 60},
			}},
			want: calendar.Thursday,
		},
		{
			name: "missing show on",
			r:    Reminder{},
			want: calendar.Invalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.EventWeekDay())
		})
	}
}

func TestWindowSpan(t *testing.T) {
	w := Window{
		Start: Point{Day: calendar.Friday, Time: 20 * 60},
		End:   Point{Day: calendar.Monday, Time: 8 * 60},
	}
	assert.False(t, w.SameDay())
	assert.Equal(t, 3, w.SpanDays())
	assert.Equal(t, "Friday 20:00 - Monday 08:00", w.String())

	same := Window{Start: Point{Day: calendar.Saturday}, End: Point{Day: calendar.Saturday, Time: 12 * 60}}
	assert.True(t, same.SameDay())
	assert.Equal(t, 0, same.SpanDays())
}
