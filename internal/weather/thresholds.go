package weather

import (
	"fmt"
	"sync"
)

// Metric names one of the six monitored reading fields.
type Metric string

const (
	MetricTemp      Metric = "temp"
	MetricFeelsLike Metric = "feels_like"
	MetricPressure  Metric = "pressure"
	MetricHumidity  Metric = "humidity"
	MetricRain      Metric = "rain"
	MetricClouds    Metric = "clouds"
)

// Metrics lists every monitored metric in evaluation order.
var Metrics = []Metric{
	MetricTemp,
	MetricFeelsLike,
	MetricPressure,
	MetricHumidity,
	MetricRain,
	MetricClouds,
}

func (m Metric) valid() bool {
	for _, known := range Metrics {
		if m == known {
			return true
		}
	}
	return false
}

// Range is an inclusive [Low, High] interval.
type Range struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Contains reports whether v lies inside the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Low && v <= r.High
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Low, r.High)
}

// ThresholdSet maps every metric to its acceptable range.
type ThresholdSet map[Metric]Range

// DefaultThresholds returns the ranges used until an administrator replaces them.
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		MetricTemp:      {Low: 0, High: 100},
		MetricFeelsLike: {Low: 0, High: 100},
		MetricPressure:  {Low: 0, High: 1100},
		MetricHumidity:  {Low: 0, High: 100},
		MetricRain:      {Low: 0, High: 100},
		MetricClouds:    {Low: 0, High: 100},
	}
}

// Validate checks that all six metrics are present, nothing else is, and every
// range is well ordered.
func (t ThresholdSet) Validate() error {
	if len(t) != len(Metrics) {
		return fmt.Errorf("%w: expected %d metrics, got %d", ErrInvalidThresholds, len(Metrics), len(t))
	}
	for m, r := range t {
		if !m.valid() {
			return fmt.Errorf("%w: unknown metric %q", ErrInvalidThresholds, m)
		}
		if r.Low > r.High {
			return fmt.Errorf("%w: %s low %g is above high %g", ErrInvalidThresholds, m, r.Low, r.High)
		}
	}
	return nil
}

func (t ThresholdSet) clone() ThresholdSet {
	out := make(ThresholdSet, len(t))
	for m, r := range t {
		out[m] = r
	}
	return out
}

// ThresholdRow is the tabular form of one metric's range.
type ThresholdRow struct {
	Metric Metric  `json:"metric" db:"metric" validate:"required"`
	Low    float64 `json:"low" db:"low"`
	High   float64 `json:"high" db:"high" validate:"gtefield=Low"`
}

// Rows returns the set as six rows in evaluation order.
func (t ThresholdSet) Rows() []ThresholdRow {
	rows := make([]ThresholdRow, 0, len(Metrics))
	for _, m := range Metrics {
		r, ok := t[m]
		if !ok {
			continue
		}
		rows = append(rows, ThresholdRow{Metric: m, Low: r.Low, High: r.High})
	}
	return rows
}

// ThresholdSetFromRows builds a validated set. Duplicate or missing metrics are rejected.
func ThresholdSetFromRows(rows []ThresholdRow) (ThresholdSet, error) {
	set := make(ThresholdSet, len(rows))
	for _, row := range rows {
		if _, dup := set[row.Metric]; dup {
			return nil, fmt.Errorf("%w: duplicate metric %q", ErrInvalidThresholds, row.Metric)
		}
		set[row.Metric] = Range{Low: row.Low, High: row.High}
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// ThresholdStore holds the process-wide threshold set.
// Readers get a copy; writers replace the whole set.
type ThresholdStore struct {
	mu  sync.RWMutex
	set ThresholdSet
}

// NewThresholdStore creates a store seeded with initial, which must be valid.
func NewThresholdStore(initial ThresholdSet) (*ThresholdStore, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &ThresholdStore{set: initial.clone()}, nil
}

// Get returns a snapshot of the current thresholds.
func (s *ThresholdStore) Get() ThresholdSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.clone()
}

// Replace swaps in a new set after validating it. Partial sets are rejected.
func (s *ThresholdStore) Replace(set ThresholdSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	next := set.clone()

	s.mu.Lock()
	s.set = next
	s.mu.Unlock()
	return nil
}
