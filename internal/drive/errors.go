package drive

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Sentinel errors for Drive API status classification.
// Use errors.Is(err, drive.ErrForbidden) to check.
var (
	ErrUnauthorized = errors.New("drive: unauthorized")
	ErrForbidden    = errors.New("drive: forbidden")
	ErrNotFound     = errors.New("drive: not found")
	ErrThrottled    = errors.New("drive: rate limited")
	ErrServerError  = errors.New("drive: server error")
)

// classify wraps a Drive client error with an operation label and, for
// *googleapi.Error values, a sentinel matching the HTTP status.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("drive: %s: %w", op, err)
	}

	sentinel := statusSentinel(gerr.Code)
	if sentinel == nil {
		return fmt.Errorf("drive: %s: HTTP %d: %w", op, gerr.Code, err)
	}

	return fmt.Errorf("drive: %s: HTTP %d %s: %w", op, gerr.Code, gerr.Message, sentinel)
}

// statusSentinel maps an HTTP status code to a sentinel error, or nil when
// no specific classification applies.
func statusSentinel(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
