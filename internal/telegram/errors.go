// Package telegram provides an HTTP client for the Telegram Bot API with
// automatic retry, rate-limit handling, and error classification.
package telegram

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for Bot API error classification.
// Use errors.Is(err, telegram.ErrThrottled) to check.
var (
	ErrBadRequest   = errors.New("telegram: bad request")
	ErrUnauthorized = errors.New("telegram: unauthorized")
	ErrForbidden    = errors.New("telegram: forbidden")
	ErrNotFound     = errors.New("telegram: not found")
	ErrConflict     = errors.New("telegram: conflict")
	ErrThrottled    = errors.New("telegram: throttled")
	ErrServerError  = errors.New("telegram: server error")
)

// APIError wraps a sentinel error with the Bot API error code, description,
// and any retry_after hint from the response parameters.
type APIError struct {
	Code        int
	Description string
	RetryAfter  int
	Err         error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: API error %d: %s", e.Code, e.Description)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyCode maps a Bot API error code (an HTTP status) to a sentinel error.
func classifyCode(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return ErrBadRequest
	}
}

// isRetryable reports whether the given error code should be retried.
// 409 is excluded: it means another getUpdates consumer holds the session,
// and hammering it makes things worse.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
