package weather

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type metricCheck struct {
	metric  Metric
	trigger string
	label   string
	value   func(Reading) float64
}

var metricChecks = []metricCheck{
	{MetricTemp, "Temperature", "temp", func(r Reading) float64 { return r.Temp }},
	{MetricFeelsLike, "Feels Like", "feels like", func(r Reading) float64 { return r.FeelsLike }},
	{MetricPressure, "Pressure", "pressure", func(r Reading) float64 { return r.Pressure }},
	{MetricHumidity, "Humidity", "humidity", func(r Reading) float64 { return r.Humidity }},
	{MetricRain, "Rain", "rain", func(r Reading) float64 { return r.Rain }},
	{MetricClouds, "Clouds", "clouds", func(r Reading) float64 { return r.Clouds }},
}

// Breaches returns one unsaved AlertEvent per metric whose value lies outside
// its inclusive range. Metrics missing from t are not checked.
func Breaches(r Reading, t ThresholdSet) []AlertEvent {
	var events []AlertEvent
	for _, check := range metricChecks {
		rng, ok := t[check.metric]
		if !ok {
			continue
		}
		v := check.value(r)
		if rng.Contains(v) {
			continue
		}
		events = append(events, AlertEvent{
			Timestamp: r.Timestamp,
			City:      r.City,
			Metric:    check.trigger,
			Reason:    fmt.Sprintf("Found %s: %g but threshold is %s", check.label, v, rng),
		})
	}
	return events
}

// AlertEvaluator checks readings against thresholds and records breaches.
type AlertEvaluator struct {
	store    Store
	notifier AlertNotifier
}

// NewAlertEvaluator creates an evaluator. notifier may be nil.
func NewAlertEvaluator(store Store, notifier AlertNotifier) *AlertEvaluator {
	return &AlertEvaluator{
		store:    store,
		notifier: notifier,
	}
}

// Evaluate persists an AlertEvent for every breached metric and returns the
// events that were stored. A storage failure on one event does not stop the
// others; the failures are joined into the returned error.
func (e *AlertEvaluator) Evaluate(ctx context.Context, r Reading, t ThresholdSet) ([]AlertEvent, error) {
	var (
		stored []AlertEvent
		errs   []error
	)

	for _, ev := range Breaches(r, t) {
		ev.ID = uuid.New()
		if err := e.store.InsertAlert(ctx, ev); err != nil {
			errs = append(errs, storageErr("insert alert", err))
			continue
		}
		stored = append(stored, ev)

		log.Warn().
			Str("city", ev.City).
			Str("metric", ev.Metric).
			Str("reason", ev.Reason).
			Msg("threshold exceeded")

		if e.notifier != nil {
			if err := e.notifier.Notify(ctx, ev); err != nil {
				log.Error().Err(err).Str("city", ev.City).Str("metric", ev.Metric).Msg("alert notification failed")
			}
		}
	}

	return stored, errors.Join(errs...)
}
