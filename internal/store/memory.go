package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-monitor/internal/weather"
)

// ErrNotFound is returned when no data is available for a query.
var ErrNotFound = weather.ErrNotFound

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	nextID     int64
	readings   []weather.Reading
	summaries  map[string]weather.DailySummary // key: city:date
	alerts     []weather.AlertEvent
	thresholds weather.ThresholdSet
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		summaries: make(map[string]weather.DailySummary),
	}
}

// PurgeAndInsertReading drops readings older than cutoff and appends r under
// one write lock.
func (s *MemoryStore) PurgeAndInsertReading(ctx context.Context, cutoff time.Time, r weather.Reading) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.readings[:0]
	var purged int64
	for _, existing := range s.readings {
		if existing.Timestamp.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, existing)
	}
	s.readings = kept

	s.nextID++
	r.ID = s.nextID
	s.readings = append(s.readings, r)
	return purged, nil
}

// ReadingsBetween returns all readings between from and to (inclusive).
func (s *MemoryStore) ReadingsBetween(ctx context.Context, from, to time.Time) ([]weather.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.Reading
	for _, r := range s.readings {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			result = append(result, r)
		}
	}
	return result, nil
}

// ListReadings returns every stored reading in insertion order.
func (s *MemoryStore) ListReadings(ctx context.Context) ([]weather.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.Reading, len(s.readings))
	copy(out, s.readings)
	return out, nil
}

// LatestReading returns the most recent reading for a city.
func (s *MemoryStore) LatestReading(ctx context.Context, city string) (weather.Reading, error) {
	if err := ctx.Err(); err != nil {
		return weather.Reading{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest weather.Reading
		found  bool
	)
	for _, r := range s.readings {
		if r.City != city {
			continue
		}
		if !found || r.Timestamp.After(latest.Timestamp) {
			latest = r
			found = true
		}
	}
	if !found {
		return weather.Reading{}, ErrNotFound
	}
	return latest, nil
}

// UpsertDailySummaries replaces existing (city, date) rows.
func (s *MemoryStore) UpsertDailySummaries(ctx context.Context, summaries []weather.DailySummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sum := range summaries {
		s.summaries[sum.Key()] = sum
	}
	return nil
}

// ListDailySummaries returns every summary ordered by date, then city.
func (s *MemoryStore) ListDailySummaries(ctx context.Context) ([]weather.DailySummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]weather.DailySummary, 0, len(s.summaries))
	for _, sum := range s.summaries {
		out = append(out, sum)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].City < out[j].City
	})
	return out, nil
}

// InsertAlert appends an alert event.
func (s *MemoryStore) InsertAlert(ctx context.Context, a weather.AlertEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = append(s.alerts, a)
	return nil
}

// ListAlerts returns every alert event in insertion order.
func (s *MemoryStore) ListAlerts(ctx context.Context) ([]weather.AlertEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.AlertEvent, len(s.alerts))
	copy(out, s.alerts)
	return out, nil
}

// LoadThresholds returns the saved threshold set.
func (s *MemoryStore) LoadThresholds(ctx context.Context) (weather.ThresholdSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.thresholds == nil {
		return nil, ErrNotFound
	}
	out := make(weather.ThresholdSet, len(s.thresholds))
	for m, r := range s.thresholds {
		out[m] = r
	}
	return out, nil
}

// SaveThresholds stores a copy of t.
func (s *MemoryStore) SaveThresholds(ctx context.Context, t weather.ThresholdSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cp := make(weather.ThresholdSet, len(t))
	for m, r := range t {
		cp[m] = r
	}

	s.mu.Lock()
	s.thresholds = cp
	s.mu.Unlock()
	return nil
}
