package weather_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/i474232898/weather-monitor/internal/store"
	"github.com/i474232898/weather-monitor/internal/weather"
)

func withinDefaults(city string) weather.Reading {
	return weather.Reading{
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		City:      city,
		Condition: "Clear",
		Temp:      20,
		FeelsLike: 19,
		Pressure:  1013,
		Humidity:  50,
		Rain:      0,
		Clouds:    10,
	}
}

func TestBreachesInclusiveBounds(t *testing.T) {
	thresholds := weather.DefaultThresholds()

	r := withinDefaults("Delhi")
	r.Temp = 100
	if got := weather.Breaches(r, thresholds); len(got) != 0 {
		t.Fatalf("value on the upper bound must not alert, got %+v", got)
	}
	r.Temp = 0
	if got := weather.Breaches(r, thresholds); len(got) != 0 {
		t.Fatalf("value on the lower bound must not alert, got %+v", got)
	}

	r.Temp = 101
	got := weather.Breaches(r, thresholds)
	if len(got) != 1 || got[0].Metric != "Temperature" {
		t.Fatalf("expected exactly one Temperature alert, got %+v", got)
	}
	if want := "Found temp: 101 but threshold is [0, 100]"; got[0].Reason != want {
		t.Fatalf("unexpected reason %q, want %q", got[0].Reason, want)
	}

	r.Temp = -1
	got = weather.Breaches(r, thresholds)
	if len(got) != 1 || got[0].Metric != "Temperature" {
		t.Fatalf("expected exactly one Temperature alert below range, got %+v", got)
	}
}

func TestBreachesEveryMetric(t *testing.T) {
	r := weather.Reading{
		City:      "Mumbai",
		Temp:      120,
		FeelsLike: 130,
		Pressure:  2000,
		Humidity:  101,
		Rain:      150,
		Clouds:    -5,
	}

	got := weather.Breaches(r, weather.DefaultThresholds())
	want := []string{"Temperature", "Feels Like", "Pressure", "Humidity", "Rain", "Clouds"}
	if len(got) != len(want) {
		t.Fatalf("expected %d alerts, got %d", len(want), len(got))
	}
	for i, ev := range got {
		if ev.Metric != want[i] {
			t.Fatalf("alert %d: expected %s, got %s", i, want[i], ev.Metric)
		}
		if ev.City != "Mumbai" {
			t.Fatalf("alert %d: unexpected city %q", i, ev.City)
		}
	}
}

type stubFetcher struct {
	reading weather.Reading
	err     error
	calls   int
}

func (f *stubFetcher) Name() string { return "stub" }

func (f *stubFetcher) Fetch(ctx context.Context, city string) (weather.Reading, error) {
	f.calls++
	if f.err != nil {
		return weather.Reading{}, f.err
	}
	r := f.reading
	r.City = city
	return r, nil
}

type recordingNotifier struct {
	events []weather.AlertEvent
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, a weather.AlertEvent) error {
	n.events = append(n.events, a)
	return n.err
}

// A hot reading against the default thresholds raises only a Temperature alert.
func TestProcessCityRaisesSingleTemperatureAlert(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mem := store.NewMemoryStore()
	thresholds, err := weather.NewThresholdStore(weather.DefaultThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fetcher := &stubFetcher{reading: weather.Reading{
		Timestamp: now,
		Condition: "Clear",
		Temp:      105,
		FeelsLike: 30,
		Pressure:  1013,
		Humidity:  50,
		Rain:      0,
		Clouds:    10,
	}}
	notifier := &recordingNotifier{err: errors.New("broker down")}

	svc := weather.NewService(mem, fetcher, thresholds, weather.Options{
		Notifier: notifier,
		Clock:    func() time.Time { return now },
	})

	if err := svc.ProcessCity(context.Background(), "Delhi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	alerts, err := mem.ListAlerts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d: %+v", len(alerts), alerts)
	}
	if alerts[0].Metric != "Temperature" || alerts[0].City != "Delhi" {
		t.Fatalf("unexpected alert: %+v", alerts[0])
	}
	if !strings.Contains(alerts[0].Reason, "105") {
		t.Fatalf("reason should mention the offending value: %q", alerts[0].Reason)
	}

	// The notifier failure is logged, not returned, and the alert is still stored.
	if len(notifier.events) != 1 {
		t.Fatalf("expected notifier to see one event, got %d", len(notifier.events))
	}

	readings, _ := mem.ListReadings(context.Background())
	if len(readings) != 1 {
		t.Fatalf("expected the reading to be stored, got %d", len(readings))
	}
}

func TestProcessCityFetchFailureSkipsIngestAndAlerts(t *testing.T) {
	mem := store.NewMemoryStore()
	thresholds, _ := weather.NewThresholdStore(weather.DefaultThresholds())
	fetchErr := &weather.ProviderError{Op: "geocode", City: "Atlantis", StatusCode: 404}
	svc := weather.NewService(mem, &stubFetcher{err: fetchErr}, thresholds, weather.Options{})

	err := svc.ProcessCity(context.Background(), "Atlantis")
	var pe *weather.ProviderError
	if !errors.As(err, &pe) || pe.StatusCode != 404 {
		t.Fatalf("expected ProviderError with status 404, got %v", err)
	}

	readings, _ := mem.ListReadings(context.Background())
	alerts, _ := mem.ListAlerts(context.Background())
	if len(readings) != 0 || len(alerts) != 0 {
		t.Fatalf("failed fetch must not store anything, got %d readings, %d alerts", len(readings), len(alerts))
	}
}

type failingAlertStore struct {
	*store.MemoryStore
}

func (failingAlertStore) InsertAlert(ctx context.Context, a weather.AlertEvent) error {
	return errors.New("disk full")
}

func TestEvaluateReportsStorageErrors(t *testing.T) {
	ev := weather.NewAlertEvaluator(failingAlertStore{store.NewMemoryStore()}, nil)

	r := withinDefaults("Chennai")
	r.Temp = 150
	r.Humidity = 150

	stored, err := ev.Evaluate(context.Background(), r, weather.DefaultThresholds())
	if len(stored) != 0 {
		t.Fatalf("expected no stored events, got %d", len(stored))
	}
	var se *weather.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}
