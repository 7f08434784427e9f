package weather

import (
	"errors"
	"sync"
	"testing"
)

func TestDefaultThresholdsAreValid(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("default thresholds should validate, got %v", err)
	}
}

func TestThresholdSetValidateRejectsPartialAndInverted(t *testing.T) {
	partial := DefaultThresholds()
	delete(partial, MetricRain)
	if err := partial.Validate(); !errors.Is(err, ErrInvalidThresholds) {
		t.Fatalf("expected ErrInvalidThresholds for partial set, got %v", err)
	}

	inverted := DefaultThresholds()
	inverted[MetricHumidity] = Range{Low: 80, High: 20}
	if err := inverted.Validate(); !errors.Is(err, ErrInvalidThresholds) {
		t.Fatalf("expected ErrInvalidThresholds for inverted range, got %v", err)
	}

	unknown := DefaultThresholds()
	delete(unknown, MetricClouds)
	unknown[Metric("wind")] = Range{Low: 0, High: 10}
	if err := unknown.Validate(); !errors.Is(err, ErrInvalidThresholds) {
		t.Fatalf("expected ErrInvalidThresholds for unknown metric, got %v", err)
	}
}

func TestThresholdSetFromRows(t *testing.T) {
	rows := DefaultThresholds().Rows()
	if len(rows) != len(Metrics) {
		t.Fatalf("expected %d rows, got %d", len(Metrics), len(rows))
	}
	if rows[0].Metric != MetricTemp || rows[2].Metric != MetricPressure {
		t.Fatalf("rows not in evaluation order: %+v", rows)
	}

	set, err := ThresholdSetFromRows(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set[MetricPressure] != (Range{Low: 0, High: 1100}) {
		t.Fatalf("unexpected pressure range: %v", set[MetricPressure])
	}

	dup := append(rows[:5:5], ThresholdRow{Metric: MetricTemp, Low: 0, High: 1})
	if _, err := ThresholdSetFromRows(dup); !errors.Is(err, ErrInvalidThresholds) {
		t.Fatalf("expected duplicate metric to be rejected, got %v", err)
	}
}

func TestThresholdStoreReplace(t *testing.T) {
	s, err := NewThresholdStore(DefaultThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	partial := ThresholdSet{MetricTemp: {Low: -10, High: 40}}
	if err := s.Replace(partial); !errors.Is(err, ErrInvalidThresholds) {
		t.Fatalf("expected partial replace to fail, got %v", err)
	}
	if got := s.Get()[MetricTemp]; got != (Range{Low: 0, High: 100}) {
		t.Fatalf("rejected update must not change the store, got %v", got)
	}

	next := DefaultThresholds()
	next[MetricTemp] = Range{Low: -10, High: 40}
	if err := s.Replace(next); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating the caller's map or a snapshot must not leak into the store.
	next[MetricTemp] = Range{Low: 1, High: 2}
	snap := s.Get()
	snap[MetricTemp] = Range{Low: 3, High: 4}
	if got := s.Get()[MetricTemp]; got != (Range{Low: -10, High: 40}) {
		t.Fatalf("store leaked a mutable reference, got %v", got)
	}
}

func TestThresholdStoreConcurrentAccess(t *testing.T) {
	s, err := NewThresholdStore(DefaultThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			next := DefaultThresholds()
			next[MetricTemp] = Range{Low: 0, High: float64(50 + i)}
			_ = s.Replace(next)
		}(i)
		go func() {
			defer wg.Done()
			if err := s.Get().Validate(); err != nil {
				t.Errorf("reader observed invalid set: %v", err)
			}
		}()
	}
	wg.Wait()
}
