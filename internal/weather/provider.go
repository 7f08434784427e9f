package weather

import (
	"context"
	"time"
)

// Fetcher abstracts a weather data source that resolves a city and returns its
// current reading.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, city string) (Reading, error)
}

// Store is the persistence contract shared by the in-memory and Postgres stores.
type Store interface {
	// PurgeAndInsertReading deletes readings older than cutoff and then inserts r,
	// as one unit. When the purge fails nothing is inserted.
	PurgeAndInsertReading(ctx context.Context, cutoff time.Time, r Reading) (purged int64, err error)
	// ReadingsBetween returns readings with from <= dt <= to.
	ReadingsBetween(ctx context.Context, from, to time.Time) ([]Reading, error)
	ListReadings(ctx context.Context) ([]Reading, error)
	LatestReading(ctx context.Context, city string) (Reading, error)

	// UpsertDailySummaries replaces any existing (city, date) rows.
	UpsertDailySummaries(ctx context.Context, summaries []DailySummary) error
	ListDailySummaries(ctx context.Context) ([]DailySummary, error)

	InsertAlert(ctx context.Context, a AlertEvent) error
	ListAlerts(ctx context.Context) ([]AlertEvent, error)

	// LoadThresholds returns ErrNotFound when nothing has been saved yet.
	LoadThresholds(ctx context.Context) (ThresholdSet, error)
	SaveThresholds(ctx context.Context, t ThresholdSet) error
}

// AlertNotifier reports alert events on a side channel.
type AlertNotifier interface {
	Notify(ctx context.Context, a AlertEvent) error
}

// SummaryArchiver copies a day's summaries to long-term storage.
type SummaryArchiver interface {
	Archive(ctx context.Context, day time.Time, summaries []DailySummary) error
}
