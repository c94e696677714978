package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/dwsmith1983/guardian/internal/schedule"
	"github.com/dwsmith1983/guardian/pkg/types"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// weeklyWindow spans [from, to) in minutes since Sunday 00:00. from > to
// wraps over the end of the week.
type weeklyWindow struct {
	from, to int
}

func (w weeklyWindow) contains(minute int) bool {
	if w.from <= w.to {
		return minute >= w.from && minute < w.to
	}
	return minute >= w.from || minute < w.to
}

// Blackout is a compiled calendar of periods during which changes must not
// be implemented.
type Blackout struct {
	name            string
	loc             *time.Location
	windows         []weeklyWindow
	lastWeekOfMonth bool
	dates           map[string]bool
}

// DefaultCalendar is the standard change freeze: Friday 18:00 through Monday
// 06:00 and the last week of every month.
func DefaultCalendar() types.Calendar {
	return types.Calendar{
		Name:            "default",
		Windows:         []types.BlackoutWindow{{From: "friday 18:00", To: "monday 06:00"}},
		LastWeekOfMonth: true,
	}
}

// Default returns the compiled DefaultCalendar.
func Default() *Blackout {
	b, err := Compile(DefaultCalendar())
	if err != nil {
		panic(fmt.Sprintf("default blackout calendar: %v", err))
	}
	return b
}

// Compile validates a calendar definition.
func Compile(cal types.Calendar) (*Blackout, error) {
	b := &Blackout{
		name:            cal.Name,
		loc:             time.UTC,
		lastWeekOfMonth: cal.LastWeekOfMonth,
		dates:           make(map[string]bool, len(cal.Dates)),
	}
	if cal.Timezone != "" {
		loc, err := time.LoadLocation(cal.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", cal.Timezone, err)
		}
		b.loc = loc
	}
	for i, w := range cal.Windows {
		from, err := parseWeekTime(w.From)
		if err != nil {
			return nil, fmt.Errorf("windows[%d].from: %w", i, err)
		}
		to, err := parseWeekTime(w.To)
		if err != nil {
			return nil, fmt.Errorf("windows[%d].to: %w", i, err)
		}
		if from == to {
			return nil, fmt.Errorf("windows[%d]: empty window", i)
		}
		b.windows = append(b.windows, weeklyWindow{from: from, to: to})
	}
	for _, d := range cal.Dates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", d, err)
		}
		b.dates[d] = true
	}
	return b, nil
}

// parseWeekTime parses "friday 18:00" into minutes since Sunday 00:00.
func parseWeekTime(s string) (int, error) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) != 2 {
		return 0, fmt.Errorf("invalid weekly time %q: want \"<weekday> HH:MM\"", s)
	}
	day, ok := weekdays[fields[0]]
	if !ok {
		return 0, fmt.Errorf("invalid weekday %q", fields[0])
	}
	hour, minute, err := schedule.ParseTimeOfDay(fields[1])
	if err != nil {
		return 0, err
	}
	return (int(day)*24+hour)*60 + minute, nil
}

// Name returns the calendar name.
func (b *Blackout) Name() string { return b.name }

// Contains reports whether t falls inside a blackout period, evaluated in
// the calendar's timezone.
func (b *Blackout) Contains(t time.Time) bool {
	local := t.In(b.loc)

	if b.dates[local.Format("2006-01-02")] {
		return true
	}
	if b.lastWeekOfMonth && local.Day() > daysIn(local.Year(), local.Month())-7 {
		return true
	}
	minute := (int(local.Weekday())*24+local.Hour())*60 + local.Minute()
	for _, w := range b.windows {
		if w.contains(minute) {
			return true
		}
	}
	return false
}

// Resolve sets ImplementedDuringBlackout on a change whose implementation
// time falls inside the calendar. A flag already reported by the source is
// kept.
func (b *Blackout) Resolve(rec types.ChangeRecord) types.ChangeRecord {
	if rec.ImplementedAt != nil && b.Contains(*rec.ImplementedAt) {
		rec.ImplementedDuringBlackout = true
	}
	return rec
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
