package weather

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRetention is how long raw readings are kept.
const DefaultRetention = 24 * time.Hour

// Ingestor persists readings and enforces the retention window on every insert.
type Ingestor struct {
	store     Store
	retention time.Duration
	now       func() time.Time
}

// NewIngestor creates an Ingestor. A non-positive retention falls back to DefaultRetention.
func NewIngestor(store Store, retention time.Duration) *Ingestor {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Ingestor{
		store:     store,
		retention: retention,
		now:       time.Now,
	}
}

// WithClock replaces the wall clock used to compute the retention cutoff.
func (i *Ingestor) WithClock(now func() time.Time) *Ingestor {
	i.now = now
	return i
}

// Ingest purges readings older than now minus the retention window and then
// stores r. A reading exactly at the cutoff is kept.
func (i *Ingestor) Ingest(ctx context.Context, r Reading) error {
	cutoff := i.now().Add(-i.retention)

	purged, err := i.store.PurgeAndInsertReading(ctx, cutoff, r)
	if err != nil {
		return storageErr("ingest reading", err)
	}

	if purged > 0 {
		log.Debug().
			Int64("purged", purged).
			Time("cutoff", cutoff).
			Msg("retention purged old readings")
	}
	return nil
}
