package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/i474232898/weather-monitor/internal/weather"
)

const schema = `
CREATE TABLE IF NOT EXISTS realtime_weather (
    id             BIGSERIAL PRIMARY KEY,
    dt             TIMESTAMPTZ NOT NULL,
    city           TEXT NOT NULL,
    main_condition TEXT NOT NULL,
    temp           DOUBLE PRECISION NOT NULL,
    feels_like     DOUBLE PRECISION NOT NULL,
    pressure       DOUBLE PRECISION NOT NULL,
    humidity       DOUBLE PRECISION NOT NULL,
    rain           DOUBLE PRECISION NOT NULL DEFAULT 0,
    clouds         DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS realtime_weather_dt_idx ON realtime_weather (dt);

CREATE TABLE IF NOT EXISTS daily_weather (
    date          DATE NOT NULL,
    city          TEXT NOT NULL,
    avg_temp      DOUBLE PRECISION NOT NULL,
    max_temp      DOUBLE PRECISION NOT NULL,
    min_temp      DOUBLE PRECISION NOT NULL,
    dom_condition TEXT NOT NULL,
    PRIMARY KEY (city, date)
);

CREATE TABLE IF NOT EXISTS alert_events (
    id        UUID PRIMARY KEY,
    dt        TIMESTAMPTZ NOT NULL,
    city      TEXT NOT NULL,
    "trigger" TEXT NOT NULL,
    reason    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS thresholds (
    metric TEXT PRIMARY KEY,
    low    DOUBLE PRECISION NOT NULL,
    high   DOUBLE PRECISION NOT NULL
);
`

// PostgresStore implements weather.Store on PostgreSQL through sqlx and pgx.
// Every write that touches more than one row runs in its own transaction.
type PostgresStore struct {
	db *sqlx.DB
}

// Connect opens a connection pool for dsn and verifies it.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables the store needs when they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, rolling back on error.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// PurgeAndInsertReading deletes readings older than cutoff and inserts r in a
// single transaction.
func (s *PostgresStore) PurgeAndInsertReading(ctx context.Context, cutoff time.Time, r weather.Reading) (int64, error) {
	var purged int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM realtime_weather WHERE dt < $1`, cutoff)
		if err != nil {
			return fmt.Errorf("purge readings: %w", err)
		}
		purged, _ = res.RowsAffected()

		_, err = tx.NamedExecContext(ctx, `
            INSERT INTO realtime_weather (dt, city, main_condition, temp, feels_like, pressure, humidity, rain, clouds)
            VALUES (:dt, :city, :main_condition, :temp, :feels_like, :pressure, :humidity, :rain, :clouds)
        `, r)
		if err != nil {
			return fmt.Errorf("insert reading: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

const readingColumns = `id, dt, city, main_condition, temp, feels_like, pressure, humidity, rain, clouds`

// ReadingsBetween returns readings with from <= dt <= to.
func (s *PostgresStore) ReadingsBetween(ctx context.Context, from, to time.Time) ([]weather.Reading, error) {
	var out []weather.Reading
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+readingColumns+` FROM realtime_weather WHERE dt >= $1 AND dt <= $2 ORDER BY dt`, from, to)
	return out, err
}

// ListReadings returns every stored reading ordered by time.
func (s *PostgresStore) ListReadings(ctx context.Context) ([]weather.Reading, error) {
	var out []weather.Reading
	err := s.db.SelectContext(ctx, &out, `SELECT `+readingColumns+` FROM realtime_weather ORDER BY dt`)
	return out, err
}

// LatestReading returns the newest reading for city.
func (s *PostgresStore) LatestReading(ctx context.Context, city string) (weather.Reading, error) {
	var r weather.Reading
	err := s.db.GetContext(ctx, &r,
		`SELECT `+readingColumns+` FROM realtime_weather WHERE city = $1 ORDER BY dt DESC LIMIT 1`, city)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.Reading{}, ErrNotFound
	}
	return r, err
}

// UpsertDailySummaries inserts or replaces (city, date) rows in one transaction.
func (s *PostgresStore) UpsertDailySummaries(ctx context.Context, summaries []weather.DailySummary) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, sum := range summaries {
			_, err := tx.NamedExecContext(ctx, `
                INSERT INTO daily_weather (date, city, avg_temp, max_temp, min_temp, dom_condition)
                VALUES (:date, :city, :avg_temp, :max_temp, :min_temp, :dom_condition)
                ON CONFLICT (city, date) DO UPDATE
                SET avg_temp = EXCLUDED.avg_temp,
                    max_temp = EXCLUDED.max_temp,
                    min_temp = EXCLUDED.min_temp,
                    dom_condition = EXCLUDED.dom_condition
            `, sum)
			if err != nil {
				return fmt.Errorf("upsert summary %s: %w", sum.Key(), err)
			}
		}
		return nil
	})
}

// ListDailySummaries returns every summary ordered by date, then city.
func (s *PostgresStore) ListDailySummaries(ctx context.Context) ([]weather.DailySummary, error) {
	var out []weather.DailySummary
	err := s.db.SelectContext(ctx, &out, `
        SELECT date, city, avg_temp, max_temp, min_temp, dom_condition
        FROM daily_weather
        ORDER BY date, city
    `)
	return out, err
}

// InsertAlert appends an alert event.
func (s *PostgresStore) InsertAlert(ctx context.Context, a weather.AlertEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_events (id, dt, city, "trigger", reason) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Timestamp, a.City, a.Metric, a.Reason)
	return err
}

// ListAlerts returns every alert event ordered by time.
func (s *PostgresStore) ListAlerts(ctx context.Context) ([]weather.AlertEvent, error) {
	var out []weather.AlertEvent
	err := s.db.SelectContext(ctx, &out, `SELECT id, dt, city, "trigger", reason FROM alert_events ORDER BY dt`)
	return out, err
}

// LoadThresholds returns the saved set, or ErrNotFound when the table is empty.
func (s *PostgresStore) LoadThresholds(ctx context.Context) (weather.ThresholdSet, error) {
	var rows []weather.ThresholdRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT metric, low, high FROM thresholds`); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return weather.ThresholdSetFromRows(rows)
}

// SaveThresholds replaces the saved set in one transaction.
func (s *PostgresStore) SaveThresholds(ctx context.Context, t weather.ThresholdSet) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM thresholds`); err != nil {
			return fmt.Errorf("clear thresholds: %w", err)
		}
		for _, row := range t.Rows() {
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO thresholds (metric, low, high) VALUES (:metric, :low, :high)`, row); err != nil {
				return fmt.Errorf("save threshold %s: %w", row.Metric, err)
			}
		}
		return nil
	})
}
