// Package report renders free slots as a text listing or a JSON document.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/text/language"

	"github.com/codeGROOVE-dev/freetime/pkg/availability"
)

// Options controls what the reports show.
type Options struct {
	Location          *time.Location
	Language          language.Tag
	BusinessStartHour int
	BusinessEndHour   int
	MinHours          float64
	Days              int
	ExcludeHolidays   bool
	ShowTotal         bool
}

func (o Options) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.UTC
}

// Display formats a slot as "2006-01-02(曜) 15:04 - 15:04" in the report zone.
func (o Options) Display(s availability.FreeSlot) string {
	start := s.Start.In(o.location())
	end := s.End.In(o.location())
	return fmt.Sprintf("%s(%s) %s - %s",
		start.Format(time.DateOnly), WeekdayLabel(start.Weekday(), o.Language),
		start.Format("15:04"), end.Format("15:04"))
}

// FormatHours prints an hour count the way the header always has: at least one decimal.
func FormatHours(h float64) string {
	s := strconv.FormatFloat(h, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// TotalHours sums the slot durations.
func TotalHours(slots []availability.FreeSlot) float64 {
	var total float64
	for _, s := range slots {
		total += s.DurationHours
	}
	return total
}

// WriteText writes the human-readable listing.
func WriteText(w io.Writer, slots []availability.FreeSlot, opts Options) error {
	var b strings.Builder

	header := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)
	slotColor := color.New(color.FgCyan)
	totalColor := color.New(color.FgGreen, color.Bold)

	header.Fprintf(&b, "Finding available time slots (weekdays, %d:00-%d:00) of %s+ hours for the next %d days\n",
		opts.BusinessStartHour, opts.BusinessEndHour, FormatHours(opts.MinHours), opts.Days)
	if opts.ExcludeHolidays {
		dim.Fprintln(&b, "Holidays are excluded. Use --include-holidays to include them.")
	}
	fmt.Fprintf(&b, "Found %d available time slots:\n", len(slots))

	for _, s := range slots {
		slotColor.Fprintln(&b, opts.Display(s))
	}

	if opts.ShowTotal {
		b.WriteString("\n")
		totalColor.Fprintf(&b, "合計空き時間: %.2f時間\n", TotalHours(slots))
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
