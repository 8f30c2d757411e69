package weather

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a lookup has nothing to return.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed caller input or a reading that fails
// validation before it is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// NotFoundError is returned when geocoding yields no match.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("location %q not found", e.Query)
}

// UpstreamUnavailableError covers network failures, timeouts and non-success
// statuses from the weather provider. Callers may retry on their own schedule.
type UpstreamUnavailableError struct {
	Provider   string
	Op         string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *UpstreamUnavailableError) Error() string {
	msg := fmt.Sprintf("%s %s unavailable", e.Provider, e.Op)
	switch {
	case e.Timeout:
		msg += ": timeout"
	case e.StatusCode != 0:
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a geocoding miss or a store ErrNotFound.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target) || errors.Is(err, ErrNotFound)
}

// IsUpstreamUnavailable reports whether err is, or wraps, a *UpstreamUnavailableError.
func IsUpstreamUnavailable(err error) bool {
	var target *UpstreamUnavailableError
	return errors.As(err, &target)
}
