package calendar

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/codeGROOVE-dev/freetime/pkg/holiday"
	"github.com/codeGROOVE-dev/freetime/pkg/tzconvert"
)

// DefaultHolidayCalendar is Google's public calendar of Japanese holidays.
const DefaultHolidayCalendar = "ja.japanese#holiday@group.v.calendar.google.com"

// HolidayOracle treats every event on a public holiday calendar as a holiday.
// It implements holiday.Lister.
type HolidayOracle struct {
	svc        *calendar.Service
	logger     *slog.Logger
	loc        *time.Location
	calendarID string
}

// NewHolidayOracle creates an oracle over calendarID whose days are taken in loc.
func NewHolidayOracle(ctx context.Context, calendarID string, loc *time.Location, opts ...Option) (*HolidayOracle, error) {
	if calendarID == "" {
		calendarID = DefaultHolidayCalendar
	}
	if loc == nil {
		return nil, errors.New("holiday location is required")
	}
	svc, logger, err := newService(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &HolidayOracle{svc: svc, logger: logger, loc: loc, calendarID: calendarID}, nil
}

func (h *HolidayOracle) midnight(t time.Time) time.Time {
	y, m, d := t.In(h.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, h.loc)
}

// IsHoliday reports whether the calendar has any event during day's full date.
func (h *HolidayOracle) IsHoliday(ctx context.Context, day time.Time) (bool, error) {
	start := h.midnight(day)
	end := start.AddDate(0, 0, 1)

	events, err := h.svc.Events.List(h.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return false, classify("holidays.list", err)
	}

	found := len(events.Items) > 0
	if found {
		h.logger.Debug("holiday found", "date", start.Format(time.DateOnly), "name", events.Items[0].Summary)
	}
	return found, nil
}

// Between returns the holidays on the dates from through to, inclusive.
func (h *HolidayOracle) Between(ctx context.Context, from, to time.Time) (*holiday.Set, error) {
	start := h.midnight(from)
	end := h.midnight(to).AddDate(0, 0, 1)
	set := holiday.NewSet(h.loc)

	err := h.svc.Events.List(h.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		MaxResults(pageSize).
		Pages(ctx, func(page *calendar.Events) error {
			for _, item := range page.Items {
				h.addEvent(set, item)
			}
			return nil
		})
	if err != nil {
		return nil, classify("holidays.list", err)
	}

	h.logger.Debug("holidays listed", "from", start.Format(time.DateOnly), "to", to.Format(time.DateOnly), "count", set.Len())
	return set, nil
}

// addEvent records the dates covered by item. All-day events have an exclusive end date.
func (h *HolidayOracle) addEvent(set *holiday.Set, item *calendar.Event) {
	if item == nil || item.Start == nil {
		return
	}

	if item.Start.Date != "" {
		first, err := time.ParseInLocation(time.DateOnly, item.Start.Date, h.loc)
		if err != nil {
			h.logger.Debug("skipping holiday with bad date", "date", item.Start.Date, "error", err)
			return
		}
		last := first.AddDate(0, 0, 1)
		if item.End != nil && item.End.Date != "" {
			if end, err := time.ParseInLocation(time.DateOnly, item.End.Date, h.loc); err == nil && end.After(first) {
				last = end
			}
		}
		for d := first; d.Before(last); d = d.AddDate(0, 0, 1) {
			set.AddDate(d.Format(time.DateOnly), item.Summary)
		}
		return
	}

	if item.Start.DateTime != "" {
		t, err := tzconvert.ParseInstant(item.Start.DateTime)
		if err != nil {
			h.logger.Debug("skipping holiday with bad time", "start", item.Start.DateTime, "error", err)
			return
		}
		set.Add(t, item.Summary)
	}
}
