package calendar

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/codeGROOVE-dev/freetime/pkg/availability"
)

// Reasons Google reports on 403 responses that mean "slow down" rather than "forbidden".
var quotaReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
}

// classify wraps err as an *availability.SourceError for operation op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	return &availability.SourceError{Op: op, Kind: kindOf(err), Err: err}
}

func kindOf(err error) availability.ErrorKind {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return availability.KindAuthorization
		case http.StatusTooManyRequests:
			return availability.KindQuota
		case http.StatusForbidden:
			for _, e := range gerr.Errors {
				if quotaReasons[e.Reason] {
					return availability.KindQuota
				}
			}
			return availability.KindAuthorization
		default:
			return availability.KindUnknown
		}
	}

	// oauth2 reports refresh failures as *oauth2.RetrieveError inside a *url.Error,
	// so it must be checked before the generic transport case.
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return availability.KindAuthorization
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return availability.KindConnectivity
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return availability.KindConnectivity
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return availability.KindConnectivity
	}
	return availability.KindUnknown
}
