// Package availability finds free time in a workday calendar.
//
// A Finder walks the dates of a search range, drops weekends, holidays and
// days already over, and resolves each remaining day's busy intervals into
// buffer-padded free slots inside business hours.
package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/freetime/pkg/holiday"
	"github.com/codeGROOVE-dev/freetime/pkg/tzconvert"
)

// Source provides busy intervals for a time range.
// Implementations return intervals with explicit zones and omit all-day entries.
type Source interface {
	BusyIntervals(ctx context.Context, from, to time.Time) ([]BusyInterval, error)
}

// Finder resolves availability across a date range.
// It holds no mutable state; concurrent Find calls are safe when the source
// and holiday oracle are.
type Finder struct {
	source   Source
	holidays holiday.Oracle
	logger   *slog.Logger
	norm     *tzconvert.Normalizer
	cfg      Config
}

// New creates a Finder for the given configuration and calendar source.
func New(cfg Config, source Source, opts ...Option) (*Finder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if source == nil {
		return nil, errors.New("calendar source is required")
	}

	optHolder := &OptionHolder{}
	for _, opt := range opts {
		opt(optHolder)
	}
	if cfg.ExcludeHolidays && optHolder.holidays == nil {
		return nil, errors.New("holiday exclusion requires a holiday oracle")
	}

	logger := optHolder.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Finder{
		cfg:      cfg,
		source:   source,
		holidays: optHolder.holidays,
		logger:   logger,
		norm:     tzconvert.NewNormalizer(cfg.Location, cfg.BusinessStartHour, cfg.BusinessEndHour, cfg.Buffer),
	}, nil
}

// Config returns the configuration the Finder was built with.
func (f *Finder) Config() Config {
	return f.cfg
}

// Find returns the free slots of every business day in the query range, in
// chronological order. Source and oracle failures abort the whole search.
func (f *Finder) Find(ctx context.Context, q Query) ([]FreeSlot, error) {
	if q.From.After(q.To) {
		f.logger.Debug("empty search range", "from", q.From, "to", q.To)
		return nil, nil
	}

	now := f.norm.ToReferenceZone(q.Now)
	start := f.norm.ToReferenceZone(q.From)
	if start.Before(now) {
		start = now
	}
	end := f.norm.ToReferenceZone(q.To)

	firstDay, _ := f.norm.DayBounds(start)
	lastDay, rangeEnd := f.norm.DayBounds(end)
	if firstDay.After(lastDay) {
		f.logger.Debug("search range is entirely in the past", "now", now, "to", end)
		return nil, nil
	}

	// Whole days are fetched so meetings past To's time of day still block the last day.
	busy, err := f.source.BusyIntervals(ctx, firstDay, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("listing busy intervals: %w", err)
	}
	busy = f.normalize(busy)
	f.logger.Debug("busy intervals loaded", "count", len(busy), "from", firstDay, "to", rangeEnd)

	var holidays *holiday.Set
	if f.cfg.ExcludeHolidays {
		if lister, ok := f.holidays.(holiday.Lister); ok {
			holidays, err = lister.Between(ctx, firstDay, lastDay)
			if err != nil {
				return nil, fmt.Errorf("listing holidays: %w", err)
			}
		}
	}

	params := Params{Buffer: f.cfg.Buffer, MinDuration: f.cfg.MinDuration}
	var slots []FreeSlot
	for day := firstDay; !day.After(lastDay); day = nextDay(day) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		if f.cfg.ExcludeHolidays {
			isHoliday, err := f.isHoliday(ctx, day, holidays)
			if err != nil {
				return nil, fmt.Errorf("checking holiday %s: %w", f.norm.DateKey(day), err)
			}
			if isHoliday {
				f.logger.Debug("skipping holiday", "date", f.norm.DateKey(day))
				continue
			}
		}

		window := f.norm.BusinessWindow(day)
		if window.RawEnd.Before(now) {
			f.logger.Debug("skipping past day", "date", f.norm.DateKey(day))
			continue
		}

		dayStart, dayEnd := f.norm.DayBounds(day)
		daySlots := ResolveDay(window, overlapping(busy, dayStart, dayEnd), now, params)
		f.logger.Debug("day resolved", "date", f.norm.DateKey(day), "slots", len(daySlots))
		slots = append(slots, daySlots...)
	}

	return slots, nil
}

func (f *Finder) isHoliday(ctx context.Context, day time.Time, batch *holiday.Set) (bool, error) {
	if batch != nil {
		return batch.Contains(day), nil
	}
	return f.holidays.IsHoliday(ctx, day)
}

// normalize converts intervals to the reference zone and drops degenerate ones.
func (f *Finder) normalize(busy []BusyInterval) []BusyInterval {
	out := make([]BusyInterval, 0, len(busy))
	for _, b := range busy {
		if !b.Start.Before(b.End) {
			f.logger.Debug("dropping non-increasing busy interval", "start", b.Start, "end", b.End)
			continue
		}
		out = append(out, BusyInterval{
			Start: f.norm.ToReferenceZone(b.Start),
			End:   f.norm.ToReferenceZone(b.End),
		})
	}
	return out
}

// overlapping returns the intervals that intersect [from, to).
func overlapping(busy []BusyInterval, from, to time.Time) []BusyInterval {
	var out []BusyInterval
	for _, b := range busy {
		if b.End.After(from) && b.Start.Before(to) {
			out = append(out, b)
		}
	}
	return out
}

func nextDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, day.Location())
}
