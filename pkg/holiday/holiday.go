// Package holiday defines the holiday oracle consumed by the availability finder,
// a date-keyed Set for batched lookups, and an offline oracle backed by the
// built-in Japanese national holiday dataset.
package holiday

import (
	"context"
	"sort"
	"time"
)

// Oracle answers whether a calendar date is a holiday.
// The date is the reference-zone midnight of the day being checked; the whole
// day is considered.
type Oracle interface {
	IsHoliday(ctx context.Context, day time.Time) (bool, error)
}

// Lister is an Oracle that can also return every holiday in a range at once.
// The finder prefers it so a two-week search costs one lookup instead of ten.
type Lister interface {
	Oracle
	Between(ctx context.Context, from, to time.Time) (*Set, error)
}

// Set is a collection of holiday dates keyed by their calendar date in one zone.
// The zero value is not usable; create one with NewSet.
type Set struct {
	loc  *time.Location
	days map[string]string
}

// NewSet returns an empty Set whose dates are interpreted in loc.
func NewSet(loc *time.Location) *Set {
	if loc == nil {
		loc = time.UTC
	}
	return &Set{loc: loc, days: make(map[string]string)}
}

// Add records t's date (in the set's zone) as a holiday with the given name.
func (s *Set) Add(t time.Time, name string) {
	s.days[t.In(s.loc).Format(time.DateOnly)] = name
}

// AddDate records a YYYY-MM-DD calendar date as given, without zone conversion.
func (s *Set) AddDate(date, name string) {
	s.days[date] = name
}

// Contains reports whether t's date is in the set.
func (s *Set) Contains(t time.Time) bool {
	_, ok := s.days[t.In(s.loc).Format(time.DateOnly)]
	return ok
}

// Name returns the holiday name for t's date, or "".
func (s *Set) Name(t time.Time) string {
	return s.days[t.In(s.loc).Format(time.DateOnly)]
}

// Len returns the number of dates in the set.
func (s *Set) Len() int {
	return len(s.days)
}

// Dates returns the dates in the set as sorted YYYY-MM-DD strings.
func (s *Set) Dates() []string {
	out := make([]string, 0, len(s.days))
	for d := range s.days {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
