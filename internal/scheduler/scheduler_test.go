package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/weather-monitor/internal/store"
	"github.com/i474232898/weather-monitor/internal/weather"
)

type cityFetcher struct {
	mu      sync.Mutex
	seen    map[string]int
	failFor string
}

func (f *cityFetcher) Name() string { return "test" }

func (f *cityFetcher) Fetch(ctx context.Context, city string) (weather.Reading, error) {
	f.mu.Lock()
	f.seen[city]++
	f.mu.Unlock()

	if city == f.failFor {
		return weather.Reading{}, &weather.ProviderError{Op: "geocode", City: city, StatusCode: 404}
	}
	if _, ok := ctx.Deadline(); !ok {
		return weather.Reading{}, errors.New("fetch must be bounded by a deadline")
	}
	return weather.Reading{
		City:      city,
		Timestamp: time.Now(),
		Condition: "Clear",
		Temp:      25,
		Pressure:  1010,
		Humidity:  40,
	}, nil
}

func TestRunFetchIsolatesCityFailures(t *testing.T) {
	mem := store.NewMemoryStore()
	thresholds, err := weather.NewThresholdStore(weather.DefaultThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fetcher := &cityFetcher{seen: make(map[string]int), failFor: "Atlantis"}
	svc := weather.NewService(mem, fetcher, thresholds, weather.Options{})

	s := New(Config{
		Cities:       []string{"Delhi", "Atlantis", "Mumbai"},
		FetchTimeout: time.Second,
	}, svc)
	s.RunFetch(context.Background())

	for _, city := range []string{"Delhi", "Atlantis", "Mumbai"} {
		if fetcher.seen[city] != 1 {
			t.Fatalf("expected one fetch for %s, got %d", city, fetcher.seen[city])
		}
	}

	readings, _ := mem.ListReadings(context.Background())
	if len(readings) != 2 {
		t.Fatalf("expected readings for the two healthy cities, got %d", len(readings))
	}
	for _, r := range readings {
		if r.City == "Atlantis" {
			t.Fatal("failed city must not be stored")
		}
	}
}

func TestStartAndStop(t *testing.T) {
	mem := store.NewMemoryStore()
	thresholds, _ := weather.NewThresholdStore(weather.DefaultThresholds())
	svc := weather.NewService(mem, &cityFetcher{seen: make(map[string]int)}, thresholds, weather.Options{})

	s := New(Config{Interval: time.Hour, AggregationAt: "23:55"}, svc)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Stop()
}

func TestStartRejectsBadAggregationTime(t *testing.T) {
	svc := weather.NewService(store.NewMemoryStore(), nil, nil, weather.Options{})
	s := New(Config{AggregationAt: "noon"}, svc)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("expected an error for an invalid aggregation time")
	}
}

type clockedFetcher struct {
	mu   sync.Mutex
	now  time.Time
	temp float64
}

func (f *clockedFetcher) set(now time.Time, temp float64) {
	f.mu.Lock()
	f.now, f.temp = now, temp
	f.mu.Unlock()
}

func (f *clockedFetcher) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *clockedFetcher) Name() string { return "clocked" }

func (f *clockedFetcher) Fetch(ctx context.Context, city string) (weather.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return weather.Reading{City: city, Timestamp: f.now, Condition: "Clear", Temp: f.temp, Pressure: 1010}, nil
}

// A reading taken after the daily backstop job still lands in that day's summary.
func TestRunFetchIncludesLateReadingsInDailySummary(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	thresholds, _ := weather.NewThresholdStore(weather.DefaultThresholds())
	fetcher := &clockedFetcher{}
	svc := weather.NewService(mem, fetcher, thresholds, weather.Options{Clock: fetcher.clock})

	s := New(Config{Cities: []string{"Delhi"}, Interval: 5 * time.Minute, FetchTimeout: time.Second}, svc).
		WithClock(fetcher.clock)

	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	fetcher.set(day.Add(12*time.Hour), 20)
	s.RunFetch(ctx)

	// The scheduled backstop job.
	fetcher.set(day.Add(23*time.Hour+55*time.Minute), 20)
	if _, err := svc.Aggregate(ctx, fetcher.clock()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fetcher.set(day.Add(23*time.Hour+58*time.Minute), 35)
	s.RunFetch(ctx)

	summaries, err := mem.ListDailySummaries(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected one summary, got %d", len(summaries))
	}
	if summaries[0].MaxTemp != 35 {
		t.Fatalf("late reading missing from summary: %+v", summaries[0])
	}
}

func TestRunFetchAfterMidnightClosesPreviousDay(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	thresholds, _ := weather.NewThresholdStore(weather.DefaultThresholds())
	fetcher := &clockedFetcher{}
	svc := weather.NewService(mem, fetcher, thresholds, weather.Options{Clock: fetcher.clock})

	s := New(Config{Cities: []string{"Delhi"}, Interval: 5 * time.Minute, FetchTimeout: time.Second}, svc).
		WithClock(fetcher.clock)

	// Ingested after the last tick of June 1 but stamped on June 1.
	midnight := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	if _, err := mem.PurgeAndInsertReading(ctx, time.Time{}, weather.Reading{
		City: "Delhi", Timestamp: midnight.Add(-time.Minute), Temp: 40, Condition: "Clear",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	fetcher.set(midnight.Add(2*time.Minute), 15)
	s.RunFetch(ctx)

	summaries, _ := mem.ListDailySummaries(ctx)
	if len(summaries) != 2 {
		t.Fatalf("expected summaries for both days, got %+v", summaries)
	}
	if summaries[0].Date.Format(weather.DateLayout) != "2024-06-01" || summaries[0].MaxTemp != 40 {
		t.Fatalf("previous day not rolled up: %+v", summaries[0])
	}
}
