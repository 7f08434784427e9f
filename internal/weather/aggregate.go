package weather

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// DayBounds returns the first and last instant of the calendar day containing
// t in loc. Both bounds are inclusive.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

// SummarizeDay groups readings by city and computes one summary per city.
// Temperatures are averaged, maxed and mined; the dominant condition is the
// greatest condition string among the city's readings.
func SummarizeDay(day time.Time, readings []Reading) []DailySummary {
	type acc struct {
		sum, max, min float64
		n             int
		cond          string
	}

	byCity := make(map[string]*acc)
	for _, r := range readings {
		a, ok := byCity[r.City]
		if !ok {
			byCity[r.City] = &acc{sum: r.Temp, max: r.Temp, min: r.Temp, n: 1, cond: r.Condition}
			continue
		}
		a.sum += r.Temp
		a.n++
		if r.Temp > a.max {
			a.max = r.Temp
		}
		if r.Temp < a.min {
			a.min = r.Temp
		}
		// Known simplification: max by string ordering, not the modal condition.
		if r.Condition > a.cond {
			a.cond = r.Condition
		}
	}

	summaries := make([]DailySummary, 0, len(byCity))
	for city, a := range byCity {
		summaries = append(summaries, DailySummary{
			Date:         day,
			City:         city,
			AvgTemp:      a.sum / float64(a.n),
			MaxTemp:      a.max,
			MinTemp:      a.min,
			DomCondition: a.cond,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].City < summaries[j].City })
	return summaries
}

// Aggregator rolls a day of raw readings into daily summaries.
type Aggregator struct {
	store    Store
	loc      *time.Location
	archiver SummaryArchiver
}

// NewAggregator creates an Aggregator that buckets days in loc (UTC when nil).
func NewAggregator(store Store, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{store: store, loc: loc}
}

// WithArchiver copies every aggregation result to a.
func (g *Aggregator) WithArchiver(a SummaryArchiver) *Aggregator {
	g.archiver = a
	return g
}

// Aggregate upserts one summary per city observed on the day containing day.
// Re-running it for the same day replaces the earlier rows.
func (g *Aggregator) Aggregate(ctx context.Context, day time.Time) ([]DailySummary, error) {
	start, end := DayBounds(day, g.loc)

	readings, err := g.store.ReadingsBetween(ctx, start, end)
	if err != nil {
		return nil, storageErr("read day", err)
	}

	summaries := SummarizeDay(start, readings)
	if len(summaries) == 0 {
		log.Info().Str("date", start.Format(DateLayout)).Msg("aggregation: no readings for day")
		return summaries, nil
	}

	if err := g.store.UpsertDailySummaries(ctx, summaries); err != nil {
		return nil, storageErr("upsert summaries", err)
	}

	log.Info().
		Str("date", start.Format(DateLayout)).
		Int("cities", len(summaries)).
		Int("readings", len(readings)).
		Msg("aggregation: daily summaries stored")

	if g.archiver != nil {
		if err := g.archiver.Archive(ctx, start, summaries); err != nil {
			log.Error().Err(err).Str("date", start.Format(DateLayout)).Msg("aggregation: archive failed")
		}
	}

	return summaries, nil
}
