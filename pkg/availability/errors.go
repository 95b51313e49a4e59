package availability

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures reported by a data source.
type ErrorKind int

const (
	// KindUnknown is any failure that could not be classified.
	KindUnknown ErrorKind = iota
	// KindConnectivity covers network and transport failures.
	KindConnectivity
	// KindAuthorization covers missing, expired or insufficient credentials.
	KindAuthorization
	// KindQuota covers rate limits and exhausted API quota.
	KindQuota
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindAuthorization:
		return "authorization"
	case KindQuota:
		return "quota"
	default:
		return "unknown"
	}
}

// SourceError is returned by calendar sources and holiday oracles.
// The finder passes it through untouched (wrapped) and never retries.
type SourceError struct {
	Err  error
	Op   string
	Kind ErrorKind
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err wraps a SourceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *SourceError
	return errors.As(err, &se) && se.Kind == kind
}
