package calendar

import (
	"context"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/codeGROOVE-dev/freetime/pkg/availability"
	"github.com/codeGROOVE-dev/freetime/pkg/tzconvert"
)

const pageSize = 250

// BusyIntervals returns the timed events overlapping [from, to).
// All-day events, cancelled events and entries with unusable times are skipped.
// Any page failure fails the whole call.
func (c *Client) BusyIntervals(ctx context.Context, from, to time.Time) ([]availability.BusyInterval, error) {
	call := c.svc.Events.List(c.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(pageSize)

	var busy []availability.BusyInterval
	pages := 0
	err := call.Pages(ctx, func(page *calendar.Events) error {
		pages++
		for _, item := range page.Items {
			if b, ok := c.busyInterval(item); ok {
				busy = append(busy, b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, classify("events.list", err)
	}

	c.logger.Debug("listed calendar events", "calendar", c.calendarID, "pages", pages, "busy", len(busy))
	return busy, nil
}

func (c *Client) busyInterval(item *calendar.Event) (availability.BusyInterval, bool) {
	if item == nil || item.Status == "cancelled" {
		return availability.BusyInterval{}, false
	}
	if item.Start == nil || item.End == nil || item.Start.DateTime == "" || item.End.DateTime == "" {
		c.logger.Debug("skipping event without start/end time", "id", item.Id, "summary", item.Summary)
		return availability.BusyInterval{}, false
	}

	start, err := tzconvert.ParseInstant(item.Start.DateTime)
	if err != nil {
		c.logger.Debug("skipping event with bad start", "id", item.Id, "start", item.Start.DateTime, "error", err)
		return availability.BusyInterval{}, false
	}
	end, err := tzconvert.ParseInstant(item.End.DateTime)
	if err != nil {
		c.logger.Debug("skipping event with bad end", "id", item.Id, "end", item.End.DateTime, "error", err)
		return availability.BusyInterval{}, false
	}
	if !start.Before(end) {
		c.logger.Debug("skipping event that does not move forward", "id", item.Id, "start", start, "end", end)
		return availability.BusyInterval{}, false
	}
	return availability.BusyInterval{Start: start, End: end}, true
}
