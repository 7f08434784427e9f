package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-monitor/internal/weather"
)

var (
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// getJSON issues a single GET through the circuit breaker and decodes the
// response body into out. Failures are reported as *weather.ProviderError.
// There are no retries; the next scheduler tick is the retry.
func getJSON(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	op, city, rawURL string,
	out interface{},
) error {
	if client == nil {
		return &weather.ProviderError{Op: op, City: city, Err: errNoHTTPClient}
	}

	_, err := cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, &weather.ProviderError{Op: op, City: city, Err: err}
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, &weather.ProviderError{Op: op, City: city, Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &weather.ProviderError{Op: op, City: city, StatusCode: resp.StatusCode}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, &weather.ProviderError{
				Op:         op,
				City:       city,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("%w: %v", weather.ErrMalformedPayload, err),
			}
		}
		return nil, nil
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &weather.ProviderError{Op: op, City: city, Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
	}
	return err
}
