package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/weather-monitor/internal/weather"
)

// Config controls which cities are fetched and when.
type Config struct {
	Cities        []string
	Interval      time.Duration
	FetchTimeout  time.Duration
	AggregationAt string // HH:MM in Location
	Location      *time.Location
}

// Scheduler periodically fetches weather for the configured cities and rolls
// each day up into summaries.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *weather.Service
	cfg       Config
	now       func() time.Time
}

// New creates a new Scheduler.
func New(cfg Config, service *weather.Service) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.AggregationAt == "" {
		cfg.AggregationAt = "23:55"
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(cfg.Location),
		service:   service,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock replaces the clock used to pick the day to aggregate.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Start schedules the fetch and aggregation jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.cfg.Cities) == 0 {
		log.Warn().Msg("scheduler: no cities configured; nothing to fetch")
	} else {
		interval := s.cfg.Interval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		_, err := s.scheduler.Every(interval).SingletonMode().Do(func() {
			s.RunFetch(context.Background())
		})
		if err != nil {
			return err
		}
	}

	// Backstop for days with no successful fetch tick. Runs before midnight so
	// the day's oldest readings are still inside the retention window.
	_, err := s.scheduler.Every(1).Day().At(s.cfg.AggregationAt).SingletonMode().Do(func() {
		if _, err := s.service.Aggregate(context.Background(), s.now()); err != nil {
			log.Error().Err(err).Msg("scheduler: daily aggregation failed")
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Info().
		Str("source", s.service.Source()).
		Strs("cities", s.cfg.Cities).
		Dur("interval", s.cfg.Interval).
		Str("aggregation_at", s.cfg.AggregationAt).
		Msg("scheduler started")
	return nil
}

// RunFetch processes every city concurrently, one goroutine per city, each
// bounded by the fetch timeout. Failures are logged and only skip that city.
func (s *Scheduler) RunFetch(ctx context.Context) {
	log.Debug().Int("cities", len(s.cfg.Cities)).Msg("scheduler: running weather fetch job")

	var wg sync.WaitGroup
	for _, city := range s.cfg.Cities {
		wg.Add(1)
		go func(city string) {
			defer wg.Done()

			cityCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()

			err := s.service.ProcessCity(cityCtx, city)
			if err == nil {
				return
			}

			var providerErr *weather.ProviderError
			var storageErr *weather.StorageError
			switch {
			case errors.As(err, &providerErr):
				log.Error().Err(err).Str("city", city).Int("status", providerErr.StatusCode).Msg("scheduler: fetch failed; skipping city this tick")
			case errors.As(err, &storageErr):
				log.Error().Err(err).Str("city", city).Msg("scheduler: storage failed for city")
			default:
				log.Error().Err(err).Str("city", city).Msg("scheduler: city processing failed")
			}
		}(city)
	}
	wg.Wait()

	s.rollUp(ctx)

	log.Debug().Msg("scheduler: completed weather fetch job")
}

// rollUp re-aggregates the current day after a fetch tick so the day's last
// readings reach its summary. The first tick after midnight also covers the
// previous day. Upserts make the repeated runs safe.
func (s *Scheduler) rollUp(ctx context.Context) {
	now := s.now()
	days := []time.Time{now}

	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	prev := now.Add(-interval)
	today, _ := weather.DayBounds(now, s.cfg.Location)
	if prevDay, _ := weather.DayBounds(prev, s.cfg.Location); !prevDay.Equal(today) {
		days = append(days, prev)
	}

	for _, day := range days {
		if _, err := s.service.Aggregate(ctx, day); err != nil {
			log.Error().Err(err).Time("day", day).Msg("scheduler: rolling aggregation failed")
		}
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
