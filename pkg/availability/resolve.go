package availability

import (
	"slices"
	"time"

	"github.com/codeGROOVE-dev/freetime/pkg/tzconvert"
)

// Params are the per-query knobs the day resolver needs.
type Params struct {
	Buffer      time.Duration
	MinDuration time.Duration
}

// ResolveDay finds the free slots of a single day.
//
// busy may contain intervals from other days or outside business hours; they are
// clipped to the raw window and dropped when they do not overlap it. The result is
// ordered by start and every slot lies within the effective window, keeps Buffer
// away from every busy interval and lasts at least MinDuration.
//
// The leading and trailing gaps are gated on EffectiveStart+MinDuration and
// last.End+MinDuration, while inter-meeting gaps are checked on their buffered
// width. Every emitted slot still satisfies MinDuration.
func ResolveDay(window tzconvert.DayWindow, busy []BusyInterval, now time.Time, p Params) []FreeSlot {
	if window.RawEnd.Before(now) {
		return nil
	}

	effStart, effEnd := window.EffectiveStart, window.EffectiveEnd
	if now.After(effStart) && now.Before(effEnd) {
		effStart = now
	}
	if !effStart.Before(effEnd) || !now.Before(effEnd) {
		return nil
	}

	blocks := mergeBusy(clipBusy(busy, window.RawStart, window.RawEnd))

	var slots []FreeSlot
	emit := func(start, end time.Time) {
		if start.Before(effStart) {
			start = effStart
		}
		if end.After(effEnd) {
			end = effEnd
		}
		if !end.After(start) || end.Sub(start) < p.MinDuration {
			return
		}
		slots = append(slots, FreeSlot{
			Start:         start,
			End:           end,
			DurationHours: end.Sub(start).Hours(),
		})
	}

	if len(blocks) == 0 {
		emit(effStart, effEnd)
		return slots
	}

	first := blocks[0]
	if first.Start.After(effStart.Add(p.MinDuration)) {
		emit(effStart, first.Start.Add(-p.Buffer))
	}

	for i := range len(blocks) - 1 {
		emit(blocks[i].End.Add(p.Buffer), blocks[i+1].Start.Add(-p.Buffer))
	}

	last := blocks[len(blocks)-1]
	if effEnd.After(last.End.Add(p.MinDuration)) {
		emit(last.End.Add(p.Buffer), effEnd)
	}

	return slots
}

// clipBusy trims intervals to [rawStart, rawEnd) and drops the ones that do not overlap it.
func clipBusy(busy []BusyInterval, rawStart, rawEnd time.Time) []BusyInterval {
	clipped := make([]BusyInterval, 0, len(busy))
	for _, b := range busy {
		if !b.End.After(rawStart) || !b.Start.Before(rawEnd) {
			continue
		}
		start, end := b.Start, b.End
		if start.Before(rawStart) {
			start = rawStart
		}
		if end.After(rawEnd) {
			end = rawEnd
		}
		clipped = append(clipped, BusyInterval{Start: start, End: end})
	}
	return clipped
}

// mergeBusy sorts intervals by start and coalesces the ones that overlap or touch.
// After merging, the last block ends at the latest busy instant of the day.
func mergeBusy(busy []BusyInterval) []BusyInterval {
	if len(busy) == 0 {
		return nil
	}
	slices.SortFunc(busy, func(a, b BusyInterval) int {
		return a.Start.Compare(b.Start)
	})

	merged := []BusyInterval{busy[0]}
	for _, b := range busy[1:] {
		cur := &merged[len(merged)-1]
		if b.Start.After(cur.End) {
			merged = append(merged, b)
			continue
		}
		if b.End.After(cur.End) {
			cur.End = b.End
		}
	}
	return merged
}
