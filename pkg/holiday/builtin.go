package holiday

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	jpholiday "github.com/rabitt1ove/jp-holidays"
)

// Builtin is an offline Oracle over the Japanese national holiday dataset.
// Company holidays can be layered on with AddCustom.
type Builtin struct {
	cal    *jpholiday.Calendar
	loc    *time.Location
	logger *slog.Logger
}

// NewBuiltin returns a Builtin oracle whose Sets are keyed in loc.
func NewBuiltin(loc *time.Location, logger *slog.Logger) *Builtin {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Builtin{
		cal:    jpholiday.New(),
		loc:    loc,
		logger: logger,
	}
}

// AddCustom registers an extra non-working day given as YYYY-MM-DD.
func (b *Builtin) AddCustom(date, name string) error {
	t, err := time.ParseInLocation(time.DateOnly, date, b.loc)
	if err != nil {
		return fmt.Errorf("parsing custom holiday %q: %w", date, err)
	}
	b.cal.AddCustomHoliday(onJSTDate(t, b.loc), name)
	b.logger.Debug("custom holiday added", "date", date, "name", name)
	return nil
}

// IsHoliday reports whether day's calendar date is a holiday.
func (b *Builtin) IsHoliday(_ context.Context, day time.Time) (bool, error) {
	return b.cal.IsHoliday(onJSTDate(day, b.loc)), nil
}

// Between returns all holidays whose dates fall within [from, to].
func (b *Builtin) Between(_ context.Context, from, to time.Time) (*Set, error) {
	set := NewSet(b.loc)
	for _, h := range b.cal.HolidaysBetween(onJSTDate(from, b.loc), onJSTDate(to, b.loc)) {
		// h.Date is midnight UTC of the holiday's calendar date.
		set.AddDate(h.Date.Format(time.DateOnly), h.Name)
	}
	b.logger.Debug("builtin holidays listed", "from", from.Format(time.DateOnly), "to", to.Format(time.DateOnly), "count", set.Len())
	return set, nil
}

// jst matches the zone jpholiday normalizes every input to.
var jst = time.FixedZone("Asia/Tokyo", 9*60*60)

// onJSTDate returns noon JST of t's calendar date in loc, so jpholiday sees the
// same calendar date the caller meant whatever the reference zone is.
func onJSTDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 12, 0, 0, 0, jst)
}
