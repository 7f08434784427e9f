// Package notify fans alert events out to operational side channels.
package notify

import (
	"context"
	"errors"

	"github.com/i474232898/weather-monitor/internal/weather"
)

// Multi delivers every event to each notifier and joins their errors.
type Multi []weather.AlertNotifier

func (m Multi) Notify(ctx context.Context, a weather.AlertEvent) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
