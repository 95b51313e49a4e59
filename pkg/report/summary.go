package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/codeGROOVE-dev/freetime/pkg/availability"
)

// DayTotal is the free time found on one date.
type DayTotal struct {
	Date    time.Time
	Hours   float64
	Slots   int
	Weekday time.Weekday
}

// DailyTotals groups slots by their start date, in order.
func DailyTotals(slots []availability.FreeSlot, loc *time.Location) []DayTotal {
	if loc == nil {
		loc = time.UTC
	}
	var out []DayTotal
	for _, s := range slots {
		start := s.Start.In(loc)
		y, m, d := start.Date()
		date := time.Date(y, m, d, 0, 0, 0, 0, loc)
		if n := len(out); n > 0 && out[n-1].Date.Equal(date) {
			out[n-1].Hours += s.DurationHours
			out[n-1].Slots++
			continue
		}
		out = append(out, DayTotal{Date: date, Weekday: date.Weekday(), Hours: s.DurationHours, Slots: 1})
	}
	return out
}

// barColor picks green for mostly free days, yellow for half days and red below that.
func barColor(hours, dayHours float64) *color.Color {
	switch {
	case hours >= dayHours*0.75:
		return color.New(color.FgGreen)
	case hours >= dayHours*0.4:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// WriteSummary draws one bar per day, one block per half hour of free time.
func WriteSummary(w io.Writer, slots []availability.FreeSlot, opts Options) error {
	totals := DailyTotals(slots, opts.location())
	if len(totals) == 0 {
		return nil
	}

	dayHours := float64(opts.BusinessEndHour - opts.BusinessStartHour)
	width := int(dayHours * 2)

	var b strings.Builder
	b.WriteString("\n")
	color.New(color.Bold).Fprintln(&b, "Free time per day")
	b.WriteString(strings.Repeat("─", 12+width+8) + "\n")
	for _, t := range totals {
		blocks := min(int(t.Hours*2+0.5), width)
		fmt.Fprintf(&b, "%s(%s) ", t.Date.Format("01-02"), WeekdayLabel(t.Weekday, opts.Language))
		barColor(t.Hours, dayHours).Fprint(&b, strings.Repeat("█", blocks))
		color.New(color.FgHiBlack).Fprint(&b, strings.Repeat("·", width-blocks))
		fmt.Fprintf(&b, " %5.2fh\n", t.Hours)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}
