package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-insights/internal/weather"
)

const (
	// DefaultTimeout bounds every upstream call.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20
)

var (
	// UserAgent is sent with every upstream request.
	UserAgent = fmt.Sprintf("weather-insights (%s; %s)", runtime.GOOS, runtime.GOARCH)

	// ErrMalformedPayload is wrapped by Normalize when the upstream response lacks
	// its timestamp or identity fields or cannot be decoded.
	ErrMalformedPayload = errors.New("malformed upstream payload")

	errNoHTTPClient  = errors.New("http client not configured")
	errAPIKeyMissing = errors.New("api key is not configured")
)

// HTTPClientConfig bundles the HTTP client and the per-call timeout.
type HTTPClientConfig struct {
	Client  *http.Client
	Timeout time.Duration
}

func (c HTTPClientConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// statusError carries a non-success status out of the circuit breaker.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.code)
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// doRequest executes one bounded request through the circuit breaker and returns
// the response body. Every failure is reported as *weather.UpstreamUnavailableError;
// there is no retry.
func doRequest(
	ctx context.Context,
	provider, op string,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) ([]byte, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	req, err := buildRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s request: %w", provider, op, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
			return nil, &statusError{code: resp.StatusCode}
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return nil, readErr
		}
		return body, nil
	})
	if err != nil {
		upErr := &weather.UpstreamUnavailableError{Provider: provider, Op: op, Err: err}
		var se *statusError
		if errors.As(err, &se) {
			upErr.StatusCode = se.code
		}
		upErr.Timeout = isTimeout(err)
		return nil, upErr
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}
