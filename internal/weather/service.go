package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/i474232898/weather-monitor/internal/cache"
)

const (
	realtimeCacheKey   = "realtime"
	historicalCacheKey = "historical"
)

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	Retention     time.Duration
	RealtimeTTL   time.Duration
	HistoricalTTL time.Duration
	Location      *time.Location
	Notifier      AlertNotifier
	Archiver      SummaryArchiver
	Clock         func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Retention <= 0 {
		o.Retention = DefaultRetention
	}
	if o.RealtimeTTL <= 0 {
		o.RealtimeTTL = 5 * time.Minute
	}
	if o.HistoricalTTL <= 0 {
		o.HistoricalTTL = 24 * time.Hour
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Service wires the fetch, ingest, alert and aggregation pipeline to a store.
type Service struct {
	store      Store
	fetcher    Fetcher
	thresholds *ThresholdStore

	ingestor   *Ingestor
	evaluator  *AlertEvaluator
	aggregator *Aggregator

	realtime   func(ctx context.Context) ([]Reading, error)
	historical func(ctx context.Context) ([]DailySummary, error)

	// thresholdMu keeps the saved and the live threshold sets in step.
	thresholdMu sync.Mutex

	retention time.Duration
	now       func() time.Time
}

// NewService creates a new Service. fetcher may be nil for read-only use.
func NewService(store Store, fetcher Fetcher, thresholds *ThresholdStore, opts Options) *Service {
	opts = opts.withDefaults()

	aggregator := NewAggregator(store, opts.Location)
	if opts.Archiver != nil {
		aggregator.WithArchiver(opts.Archiver)
	}

	s := &Service{
		store:      store,
		fetcher:    fetcher,
		thresholds: thresholds,
		ingestor:   NewIngestor(store, opts.Retention).WithClock(opts.Clock),
		evaluator:  NewAlertEvaluator(store, opts.Notifier),
		aggregator: aggregator,
		retention:  opts.Retention,
		now:        opts.Clock,
	}
	s.realtime = cache.Wrap(
		cache.New[[]Reading](opts.RealtimeTTL).WithClock(opts.Clock),
		realtimeCacheKey,
		s.loadRealtime,
	)
	s.historical = cache.Wrap(
		cache.New[[]DailySummary](opts.HistoricalTTL).WithClock(opts.Clock),
		historicalCacheKey,
		s.loadHistorical,
	)
	return s
}

// Location is the time zone days are bucketed in.
func (s *Service) Location() *time.Location {
	return s.aggregator.loc
}

// Source names the configured weather fetcher, or "none".
func (s *Service) Source() string {
	if s.fetcher == nil {
		return "none"
	}
	return s.fetcher.Name()
}

// Thresholds exposes the shared threshold store.
func (s *Service) Thresholds() *ThresholdStore {
	return s.thresholds
}

// ProcessCity fetches the current reading for city, stores it and evaluates it
// against the thresholds. A fetch failure aborts both steps. An ingest failure
// does not prevent evaluation; both errors are returned joined.
func (s *Service) ProcessCity(ctx context.Context, city string) error {
	if s.fetcher == nil {
		return fmt.Errorf("no weather fetcher configured")
	}

	r, err := s.fetcher.Fetch(ctx, city)
	if err != nil {
		return err
	}

	ingestErr := s.ingestor.Ingest(ctx, r)
	_, evalErr := s.evaluator.Evaluate(ctx, r, s.thresholds.Get())

	return errors.Join(ingestErr, evalErr)
}

// Aggregate rolls up the day containing day.
func (s *Service) Aggregate(ctx context.Context, day time.Time) ([]DailySummary, error) {
	return s.aggregator.Aggregate(ctx, day)
}

// RealtimeReadings returns readings still inside the retention window, cached
// for the realtime TTL.
func (s *Service) RealtimeReadings(ctx context.Context) ([]Reading, error) {
	return s.realtime(ctx)
}

func (s *Service) loadRealtime(ctx context.Context) ([]Reading, error) {
	all, err := s.store.ListReadings(ctx)
	if err != nil {
		return nil, storageErr("list readings", err)
	}
	cutoff := s.now().Add(-s.retention)
	current := make([]Reading, 0, len(all))
	for _, r := range all {
		if !r.Timestamp.Before(cutoff) {
			current = append(current, r)
		}
	}
	return current, nil
}

// HistoricalSummaries returns every daily summary, cached for the historical TTL.
func (s *Service) HistoricalSummaries(ctx context.Context) ([]DailySummary, error) {
	return s.historical(ctx)
}

func (s *Service) loadHistorical(ctx context.Context) ([]DailySummary, error) {
	out, err := s.store.ListDailySummaries(ctx)
	if err != nil {
		return nil, storageErr("list summaries", err)
	}
	return out, nil
}

// Alerts returns every recorded alert event.
func (s *Service) Alerts(ctx context.Context) ([]AlertEvent, error) {
	out, err := s.store.ListAlerts(ctx)
	if err != nil {
		return nil, storageErr("list alerts", err)
	}
	return out, nil
}

// LatestReading returns the newest stored reading for city.
func (s *Service) LatestReading(ctx context.Context, city string) (Reading, error) {
	return s.store.LatestReading(ctx, city)
}

// UpdateThresholds persists and then swaps in a complete threshold set.
// Concurrent updates are applied one at a time, so the last save is also the
// live set.
func (s *Service) UpdateThresholds(ctx context.Context, set ThresholdSet) error {
	if err := set.Validate(); err != nil {
		return err
	}

	s.thresholdMu.Lock()
	defer s.thresholdMu.Unlock()

	if err := s.store.SaveThresholds(ctx, set); err != nil {
		return storageErr("save thresholds", err)
	}
	if err := s.thresholds.Replace(set); err != nil {
		return err
	}
	log.Info().Interface("thresholds", set.Rows()).Msg("thresholds updated")
	return nil
}

// RestoreThresholds loads a previously saved set into the threshold store.
// When nothing was saved the current thresholds are kept.
func (s *Service) RestoreThresholds(ctx context.Context) error {
	s.thresholdMu.Lock()
	defer s.thresholdMu.Unlock()

	set, err := s.store.LoadThresholds(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return storageErr("load thresholds", err)
	}
	return s.thresholds.Replace(set)
}
