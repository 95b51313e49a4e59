// Package calendar reads busy time and public holidays from the Google Calendar API.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Client lists events of one calendar. It implements availability.Source.
type Client struct {
	svc        *calendar.Service
	logger     *slog.Logger
	calendarID string
}

// Option configures a Client or HolidayOracle.
type Option func(*OptionHolder)

// OptionHolder holds configuration options.
type OptionHolder struct {
	logger     *slog.Logger
	httpClient *http.Client
	endpoint   string
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *OptionHolder) {
		o.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used for API requests.
// The client is expected to add credentials itself (see NewHTTPClient).
func WithHTTPClient(c *http.Client) Option {
	return func(o *OptionHolder) {
		o.httpClient = c
	}
}

// WithEndpoint overrides the API base URL.
func WithEndpoint(url string) Option {
	return func(o *OptionHolder) {
		o.endpoint = url
	}
}

func newService(ctx context.Context, opts []Option) (*calendar.Service, *slog.Logger, error) {
	optHolder := &OptionHolder{}
	for _, opt := range opts {
		opt(optHolder)
	}
	if optHolder.httpClient == nil {
		return nil, nil, errors.New("an authenticated HTTP client is required")
	}
	logger := optHolder.logger
	if logger == nil {
		logger = slog.Default()
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(optHolder.httpClient)}
	if optHolder.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(optHolder.endpoint))
	}
	svc, err := calendar.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return svc, logger, nil
}

// New creates a Client for calendarID ("primary" for the signed-in user).
func New(ctx context.Context, calendarID string, opts ...Option) (*Client, error) {
	if calendarID == "" {
		return nil, errors.New("calendar ID is required")
	}
	svc, logger, err := newService(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc, calendarID: calendarID, logger: logger}, nil
}

// NewHTTPClient returns an HTTP client that authenticates with ts and retries
// transient failures. base may be nil; it is the innermost transport.
func NewHTTPClient(ts oauth2.TokenSource, base http.RoundTripper, logger *slog.Logger) *http.Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   newRetryTransport(base, logger),
		},
	}
}
