// Package main implements the freetime CLI, which lists open time in a Google Calendar.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // reference zone must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/codeGROOVE-dev/freetime/pkg/availability"
	"github.com/codeGROOVE-dev/freetime/pkg/calendar"
	"github.com/codeGROOVE-dev/freetime/pkg/constants"
	"github.com/codeGROOVE-dev/freetime/pkg/holiday"
	"github.com/codeGROOVE-dev/freetime/pkg/httpcache"
	"github.com/codeGROOVE-dev/freetime/pkg/report"
	"github.com/codeGROOVE-dev/freetime/pkg/tzconvert"
)

const versionString = "freetime v1.0.0"

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// options is the parsed command line with environment fallbacks applied.
type options struct {
	lang            language.Tag
	location        *time.Location
	format          string
	weekdayLang     string
	timezone        string
	calendarID      string
	holidaySource   string
	holidayCalendar string
	credentials     string
	tokenFile       string
	cacheDir        string
	extraHolidays   stringList
	minHours        float64
	days            int
	businessStart   int
	businessEnd     int
	bufferMinutes   int
	showTotal       bool
	dailySummary    bool
	includeHolidays bool
	noCache         bool
	verbose         bool
	version         bool
}

func newFlagSet(o *options, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("freetime", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: freetime [flags]\n\nLists open time in your Google Calendar.\n\nFlags:\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&o.format, "format", constants.DefaultOutputFormat, "Output format: text or json")
	fs.StringVar(&o.format, "f", constants.DefaultOutputFormat, "Shorthand for --format")
	fs.Float64Var(&o.minHours, "available-slots", constants.DefaultMinHours, "Minimum slot length in hours")
	fs.Float64Var(&o.minHours, "a", constants.DefaultMinHours, "Shorthand for --available-slots")
	fs.BoolVar(&o.showTotal, "show-total-hours", false, "Show the total free hours")
	fs.BoolVar(&o.showTotal, "t", false, "Shorthand for --show-total-hours")
	fs.StringVar(&o.weekdayLang, "weekday-lang", constants.DefaultWeekdayLanguage, "Weekday label language: ja or en")
	fs.StringVar(&o.weekdayLang, "w", constants.DefaultWeekdayLanguage, "Shorthand for --weekday-lang")
	fs.BoolVar(&o.includeHolidays, "include-holidays", false, "Include public holidays in the search")
	fs.BoolVar(&o.dailySummary, "daily-summary", false, "Show a per-day chart of free hours after the listing")
	fs.IntVar(&o.days, "days", constants.DefaultDaysAhead, "Number of days ahead to search")
	fs.StringVar(&o.timezone, "timezone", "", "Reference timezone (or set FREETIME_TIMEZONE, default "+constants.DefaultTimezone+")")
	fs.IntVar(&o.businessStart, "business-start", constants.DefaultBusinessStartHour, "Business day start hour")
	fs.IntVar(&o.businessEnd, "business-end", constants.DefaultBusinessEndHour, "Business day end hour")
	fs.IntVar(&o.bufferMinutes, "buffer", constants.DefaultBufferMinutes, "Minutes kept free around meetings")
	fs.StringVar(&o.calendarID, "calendar", "", "Calendar ID to read (or set FREETIME_CALENDAR_ID, default primary)")
	fs.StringVar(&o.holidaySource, "holiday-source", constants.DefaultHolidaySource, "Holiday source: google or builtin")
	fs.StringVar(&o.holidayCalendar, "holiday-calendar", calendar.DefaultHolidayCalendar, "Google holiday calendar ID")
	fs.Var(&o.extraHolidays, "extra-holiday", "Additional holiday as YYYY-MM-DD, repeatable (builtin source only)")
	fs.StringVar(&o.credentials, "credentials", "", "OAuth client secret file (or set GOOGLE_CLIENT_SECRET_FILE)")
	fs.StringVar(&o.tokenFile, "token-file", "", "Stored OAuth token (or set FREETIME_TOKEN_FILE)")
	fs.StringVar(&o.cacheDir, "cache-dir", "", "Cache directory (or set CACHE_DIR)")
	fs.BoolVar(&o.noCache, "no-cache", false, "Disable caching")
	fs.BoolVar(&o.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&o.version, "version", false, "Show version")
	return fs
}

// parseOptions parses args (without the program name) and fills unset values from getenv.
func parseOptions(args []string, getenv func(string) string, output io.Writer) (*options, error) {
	o := &options{}
	fs := newFlagSet(o, output)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if o.version {
		return o, nil
	}

	if o.timezone == "" {
		o.timezone = getenv("FREETIME_TIMEZONE")
	}
	if o.timezone == "" {
		o.timezone = constants.DefaultTimezone
	}
	if o.calendarID == "" {
		o.calendarID = getenv("FREETIME_CALENDAR_ID")
	}
	if o.calendarID == "" {
		o.calendarID = constants.DefaultCalendarID
	}
	if o.credentials == "" {
		o.credentials = getenv("GOOGLE_CLIENT_SECRET_FILE")
	}
	if o.credentials == "" {
		o.credentials = constants.DefaultClientSecretFile
	}
	if o.tokenFile == "" {
		o.tokenFile = getenv("FREETIME_TOKEN_FILE")
	}
	if o.tokenFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			o.tokenFile = filepath.Join(home, ".credentials", constants.DefaultTokenFileName)
		} else {
			o.tokenFile = constants.DefaultTokenFileName
		}
	}
	if o.cacheDir == "" {
		o.cacheDir = getenv("CACHE_DIR")
	}
	if o.cacheDir == "" && !o.noCache {
		if dir, err := os.UserCacheDir(); err == nil {
			o.cacheDir = filepath.Join(dir, constants.HolidayCacheDirName)
		}
	}

	var errs []error
	switch o.format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown format %q: want text or json", o.format))
	}
	switch o.holidaySource {
	case "google", "builtin":
	default:
		errs = append(errs, fmt.Errorf("unknown holiday source %q: want google or builtin", o.holidaySource))
	}
	if o.days < 1 {
		errs = append(errs, fmt.Errorf("days %d must be at least 1", o.days))
	}
	if o.minHours <= 0 {
		errs = append(errs, fmt.Errorf("available-slots %v must be positive", o.minHours))
	}

	lang, err := report.ParseLanguage(o.weekdayLang)
	if err != nil {
		errs = append(errs, err)
	}
	o.lang = lang

	loc, err := tzconvert.LoadLocation(o.timezone)
	if err != nil {
		errs = append(errs, err)
	}
	o.location = loc

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := o.availabilityConfig().Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *options) availabilityConfig() availability.Config {
	return availability.Config{
		Location:          o.location,
		BusinessStartHour: o.businessStart,
		BusinessEndHour:   o.businessEnd,
		Buffer:            time.Duration(o.bufferMinutes) * time.Minute,
		MinDuration:       time.Duration(o.minHours * float64(time.Hour)),
		ExcludeHolidays:   !o.includeHolidays,
	}
}

func (o *options) reportOptions() report.Options {
	return report.Options{
		Location:          o.location,
		Language:          o.lang,
		BusinessStartHour: o.businessStart,
		BusinessEndHour:   o.businessEnd,
		MinHours:          o.minHours,
		Days:              o.days,
		ExcludeHolidays:   !o.includeHolidays,
		ShowTotal:         o.showTotal,
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	// Invoked bare, the tool only explains itself.
	if len(os.Args) == 1 {
		newFlagSet(&options{}, os.Stdout).Usage()
		return
	}

	opts, err := parseOptions(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "freetime: %v\n", err)
		os.Exit(2)
	}
	if opts.version {
		fmt.Println(versionString)
		return
	}

	level := slog.LevelError
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := run(ctx, opts, os.Stdout, logger); err != nil {
		cancel()
		logger.Error("search failed", "error", err)
		fmt.Fprintf(os.Stderr, "freetime: %s\n", explain(err))
		os.Exit(1) //nolint:gocritic // cancel already called
	}
}

// explain turns a search failure into a one-line hint for the user.
func explain(err error) string {
	switch {
	case availability.IsKind(err, availability.KindAuthorization):
		return fmt.Sprintf("calendar access was refused; remove the stored token and authorize again (%v)", err)
	case availability.IsKind(err, availability.KindQuota):
		return fmt.Sprintf("calendar API quota exhausted; try again later (%v)", err)
	case availability.IsKind(err, availability.KindConnectivity):
		return fmt.Sprintf("could not reach the calendar API (%v)", err)
	default:
		return err.Error()
	}
}

func run(ctx context.Context, opts *options, out io.Writer, logger *slog.Logger) error {
	oauthCfg, err := loadOAuthConfig(opts.credentials)
	if err != nil {
		return err
	}
	ts, err := tokenSource(ctx, oauthCfg, opts.tokenFile, os.Stdin, os.Stderr, logger)
	if err != nil {
		return err
	}
	httpClient := calendar.NewHTTPClient(ts, nil, logger)

	source, err := calendar.New(ctx, opts.calendarID,
		calendar.WithHTTPClient(httpClient),
		calendar.WithLogger(logger))
	if err != nil {
		return err
	}

	finderOpts := []availability.Option{availability.WithLogger(logger)}
	if !opts.includeHolidays {
		oracle, closeFn, err := holidayOracle(ctx, opts, httpClient, logger)
		if err != nil {
			return err
		}
		defer closeFn()
		finderOpts = append(finderOpts, availability.WithHolidays(oracle))
	}

	finder, err := availability.New(opts.availabilityConfig(), source, finderOpts...)
	if err != nil {
		return err
	}

	now := time.Now()
	slots, err := finder.Find(ctx, availability.Query{
		Now:  now,
		From: now,
		To:   now.AddDate(0, 0, opts.days),
	})
	if err != nil {
		return err
	}
	logger.Debug("search complete", "slots", len(slots), "total_hours", report.TotalHours(slots))

	return write(out, slots, opts)
}

func write(out io.Writer, slots []availability.FreeSlot, opts *options) error {
	ro := opts.reportOptions()
	if opts.format == "json" {
		return report.WriteJSON(out, slots, ro)
	}
	if err := report.WriteText(out, slots, ro); err != nil {
		return err
	}
	if opts.dailySummary {
		return report.WriteSummary(out, slots, ro)
	}
	return nil
}

// holidayOracle builds the configured holiday source. The returned func flushes its cache.
func holidayOracle(ctx context.Context, opts *options, httpClient *http.Client, logger *slog.Logger) (holiday.Oracle, func(), error) {
	noop := func() {}

	if opts.holidaySource == "builtin" {
		b := holiday.NewBuiltin(opts.location, logger)
		for _, d := range opts.extraHolidays {
			if err := b.AddCustom(d, "company holiday"); err != nil {
				return nil, noop, err
			}
		}
		return b, noop, nil
	}

	if len(opts.extraHolidays) > 0 {
		logger.Warn("--extra-holiday is only used with --holiday-source=builtin", "ignored", len(opts.extraHolidays))
	}

	dir := opts.cacheDir
	if opts.noCache {
		dir = ""
	}
	store, err := httpcache.New(dir, constants.HolidayCacheTTL, logger)
	if err != nil {
		return nil, noop, fmt.Errorf("creating holiday cache: %w", err)
	}
	cached := &http.Client{
		Timeout: httpClient.Timeout,
		Transport: &httpcache.Transport{
			Store:  store,
			Base:   httpClient.Transport,
			Logger: logger,
		},
	}

	oracle, err := calendar.NewHolidayOracle(ctx, opts.holidayCalendar, opts.location,
		calendar.WithHTTPClient(cached),
		calendar.WithLogger(logger))
	if err != nil {
		return nil, noop, err
	}
	return oracle, func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to save holiday cache", "error", err)
		}
	}, nil
}
