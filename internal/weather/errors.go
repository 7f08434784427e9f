package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no data is available for a query.
	ErrNotFound = errors.New("no weather data found")

	// ErrInvalidThresholds is returned when a threshold update is partial or ill-ordered.
	ErrInvalidThresholds = errors.New("invalid thresholds")

	// ErrMalformedPayload marks a provider response that could not be decoded.
	ErrMalformedPayload = errors.New("malformed provider payload")
)

// ProviderError reports a failed geocoding or weather call.
// StatusCode is zero when the failure happened before a response was received.
type ProviderError struct {
	Op         string
	City       string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider %s for %q failed", e.Op, e.City)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status code %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StorageError reports a persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
