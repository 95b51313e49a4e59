package availability

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/freetime/pkg/holiday"
)

// BusyInterval is a time range the person cannot be scheduled in.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FreeSlot is a contiguous free interval that meets the minimum duration.
type FreeSlot struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DurationHours float64   `json:"duration_hours"`
}

// Duration returns End - Start.
func (s FreeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Config is the static query configuration. It is never mutated by the finder.
type Config struct {
	Location          *time.Location
	BusinessStartHour int
	BusinessEndHour   int
	Buffer            time.Duration
	MinDuration       time.Duration
	ExcludeHolidays   bool
}

// Validate checks the configuration bounds.
// A buffer that eats the whole business window is valid; such days just have no capacity.
func (c Config) Validate() error {
	var errs []error
	if c.Location == nil {
		errs = append(errs, errors.New("reference location is required"))
	}
	if c.BusinessStartHour < 0 || c.BusinessStartHour > 23 {
		errs = append(errs, fmt.Errorf("business start hour %d out of range 0-23", c.BusinessStartHour))
	}
	if c.BusinessEndHour < 0 || c.BusinessEndHour > 23 {
		errs = append(errs, fmt.Errorf("business end hour %d out of range 0-23", c.BusinessEndHour))
	}
	if c.BusinessStartHour >= c.BusinessEndHour {
		errs = append(errs, fmt.Errorf("business start hour %d must be before end hour %d", c.BusinessStartHour, c.BusinessEndHour))
	}
	if c.Buffer < 0 {
		errs = append(errs, fmt.Errorf("buffer %v must not be negative", c.Buffer))
	}
	if c.MinDuration <= 0 {
		errs = append(errs, fmt.Errorf("minimum duration %v must be positive", c.MinDuration))
	}
	return errors.Join(errs...)
}

// Query is one availability search.
// Now is the reference instant used for clipping; From/To bound the search range.
type Query struct {
	Now  time.Time
	From time.Time
	To   time.Time
}

// Option configures a Finder.
type Option func(*OptionHolder)

// OptionHolder holds configuration options.
type OptionHolder struct {
	logger   *slog.Logger
	holidays holiday.Oracle
}

// WithLogger sets the logger used for per-day tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *OptionHolder) {
		o.logger = logger
	}
}

// WithHolidays sets the holiday oracle consulted when Config.ExcludeHolidays is set.
func WithHolidays(oracle holiday.Oracle) Option {
	return func(o *OptionHolder) {
		o.holidays = oracle
	}
}
