// Package tzconvert provides foolproof timezone normalization for availability math.
// Every instant that enters the system is converted to a single reference zone here,
// and every business-hour window is computed here, so the rest of the codebase never
// has to reason about zones.
package tzconvert

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayWindow holds the business-hour bounds of one calendar date.
// RawStart/RawEnd are the nominal business hours; EffectiveStart/EffectiveEnd are
// the raw window shrunk inward by the buffer on each side.
type DayWindow struct {
	Date           time.Time // reference-zone midnight
	RawStart       time.Time
	RawEnd         time.Time
	EffectiveStart time.Time
	EffectiveEnd   time.Time
}

// Empty reports whether the effective window has no capacity.
// This happens when the buffer is at least half of the raw window.
func (w DayWindow) Empty() bool {
	return !w.EffectiveStart.Before(w.EffectiveEnd)
}

// Normalizer converts instants to a reference zone and derives business windows.
// A Normalizer is immutable and safe for concurrent use.
type Normalizer struct {
	loc       *time.Location
	startHour int
	endHour   int
	buffer    time.Duration
}

// NewNormalizer returns a Normalizer for the given reference zone and business hours.
// A nil location means UTC.
//
// Example:
//
//	jst := time.FixedZone("Asia/Tokyo", 9*60*60)
//	n := NewNormalizer(jst, 10, 18, 30*time.Minute)
//	w := n.BusinessWindow(someDate) // 10:00-18:00 raw, 10:30-17:30 effective
func NewNormalizer(loc *time.Location, startHour, endHour int, buffer time.Duration) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{
		loc:       loc,
		startHour: startHour,
		endHour:   endHour,
		buffer:    buffer,
	}
}

// Location returns the reference zone.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// ToReferenceZone converts t to the reference zone.
// It is idempotent: ToReferenceZone(ToReferenceZone(t)) == ToReferenceZone(t).
func (n *Normalizer) ToReferenceZone(t time.Time) time.Time {
	return t.In(n.loc)
}

// DayBounds returns midnight-to-midnight of t's calendar date in the reference zone.
// dayEnd is always dayStart + 24h.
func (n *Normalizer) DayBounds(t time.Time) (dayStart, dayEnd time.Time) {
	dayStart = n.midnight(t)
	return dayStart, dayStart.Add(24 * time.Hour)
}

// BusinessWindow returns the raw and buffer-adjusted business window for t's date.
func (n *Normalizer) BusinessWindow(t time.Time) DayWindow {
	day := n.midnight(t)
	y, m, d := day.Date()
	rawStart := time.Date(y, m, d, n.startHour, 0, 0, 0, n.loc)
	rawEnd := time.Date(y, m, d, n.endHour, 0, 0, 0, n.loc)
	return DayWindow{
		Date:           day,
		RawStart:       rawStart,
		RawEnd:         rawEnd,
		EffectiveStart: rawStart.Add(n.buffer),
		EffectiveEnd:   rawEnd.Add(-n.buffer),
	}
}

// DateKey returns t's reference-zone calendar date as YYYY-MM-DD.
func (n *Normalizer) DateKey(t time.Time) string {
	return t.In(n.loc).Format(time.DateOnly)
}

// SameDate reports whether a and b fall on the same reference-zone date.
func (n *Normalizer) SameDate(a, b time.Time) bool {
	ay, am, ad := a.In(n.loc).Date()
	by, bm, bd := b.In(n.loc).Date()
	return ay == by && am == bm && ad == bd
}

func (n *Normalizer) midnight(t time.Time) time.Time {
	y, m, d := t.In(n.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, n.loc)
}

// zonelessLayouts are accepted by ParseInstant and interpreted as UTC.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ErrEmptyInstant is returned by ParseInstant for blank input.
var ErrEmptyInstant = errors.New("empty timestamp")

// ParseInstant parses an external timestamp.
// RFC 3339 input keeps its offset. Input without any zone designator is
// treated as UTC; this is the only place that policy is applied.
//
// Examples:
//   - "2026-10-20T12:00:00+09:00" -> 12:00 JST
//   - "2026-10-20T03:00:00Z"      -> 03:00 UTC
//   - "2026-10-20T03:00:00"       -> 03:00 UTC
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyInstant
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// LoadLocation loads an IANA zone, falling back to fixed zones for "UTC"
// and "UTC+N"/"UTC-N" names when the zone database does not know them.
func LoadLocation(name string) (*time.Location, error) {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc, nil
	}
	if strings.HasPrefix(name, "UTC") {
		offset := ParseTimezoneOffset(name)
		return time.FixedZone(name, offset*60*60), nil
	}
	return nil, fmt.Errorf("unknown timezone %q", name)
}

// ParseTimezoneOffset extracts the hour offset from a "UTC", "UTC+9" or "UTC-4" string.
// Anything that does not parse yields 0.
func ParseTimezoneOffset(timezone string) int {
	if len(timezone) < 3 || timezone[:3] != "UTC" {
		return 0
	}
	offsetStr := timezone[3:]
	if offsetStr == "" {
		return 0
	}

	sign := 1
	switch offsetStr[0] {
	case '-':
		sign = -1
		offsetStr = offsetStr[1:]
	case '+':
		offsetStr = offsetStr[1:]
	default:
	}

	offset := 0
	for _, ch := range offsetStr {
		if ch < '0' || ch > '9' {
			break
		}
		offset = offset*10 + int(ch-'0')
	}
	return sign * offset
}
