package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/weather-monitor/internal/ratelimit"
	"github.com/i474232898/weather-monitor/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app. Every /api/v1
// route sits behind the rate limiter.
func RegisterRoutes(app *fiber.App, service *weather.Service, limiter *ratelimit.Limiter) {
	v1 := app.Group("/api/v1", RateLimit(limiter))

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reading, err := service.LatestReading(c.UserContext(), q.City)
		if err != nil {
			if errors.Is(err, weather.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for requested city")
			}
			log.Error().Err(err).Str("city", q.City).Msg("latest reading lookup failed")
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		return c.JSON(reading)
	})

	v1.Get("/weather/realtime", func(c *fiber.Ctx) error {
		readings, err := service.RealtimeReadings(c.UserContext())
		if err != nil {
			log.Error().Err(err).Msg("realtime export failed")
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch realtime data")
		}
		if readings == nil {
			readings = []weather.Reading{}
		}
		return c.JSON(readings)
	})

	v1.Get("/weather/historical", func(c *fiber.Ctx) error {
		summaries, err := service.HistoricalSummaries(c.UserContext())
		if err != nil {
			log.Error().Err(err).Msg("historical export failed")
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch historical data")
		}
		if summaries == nil {
			summaries = []weather.DailySummary{}
		}
		return c.JSON(summaries)
	})

	v1.Get("/alerts", func(c *fiber.Ctx) error {
		alerts, err := service.Alerts(c.UserContext())
		if err != nil {
			log.Error().Err(err).Msg("alerts listing failed")
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch alerts")
		}
		if alerts == nil {
			alerts = []weather.AlertEvent{}
		}
		return c.JSON(alerts)
	})

	v1.Get("/thresholds", func(c *fiber.Ctx) error {
		return c.JSON(service.Thresholds().Get().Rows())
	})

	v1.Put("/thresholds", func(c *fiber.Ctx) error {
		var rows []weather.ThresholdRow
		if err := c.BodyParser(&rows); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "body must be a JSON array of {metric, low, high}")
		}
		if len(rows) != len(weather.Metrics) {
			return fiber.NewError(fiber.StatusBadRequest, "all six metrics are required; partial updates are not supported")
		}
		for _, row := range rows {
			if err := validate.Struct(row); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid threshold row: "+err.Error())
			}
		}

		set, err := weather.ThresholdSetFromRows(rows)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := service.UpdateThresholds(c.UserContext(), set); err != nil {
			if errors.Is(err, weather.ErrInvalidThresholds) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			log.Error().Err(err).Msg("threshold update failed")
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save thresholds")
		}

		return c.JSON(service.Thresholds().Get().Rows())
	})

	v1.Post("/aggregate", func(c *fiber.Ctx) error {
		day := time.Now()
		if s := c.Query("date"); s != "" {
			parsed, err := time.ParseInLocation(weather.DateLayout, s, service.Location())
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid date; use YYYY-MM-DD")
			}
			day = parsed
		}

		summaries, err := service.Aggregate(c.UserContext(), day)
		if err != nil {
			log.Error().Err(err).Msg("manual aggregation failed")
			return fiber.NewError(fiber.StatusInternalServerError, "failed to aggregate readings")
		}
		return c.JSON(fiber.Map{
			"date":      day.In(service.Location()).Format(weather.DateLayout),
			"summaries": summaries,
		})
	})
}

// cityQuery holds query parameters for identifying a city.
type cityQuery struct {
	City string `validate:"required"`
}

func parseCityQuery(c *fiber.Ctx) (cityQuery, error) {
	q := cityQuery{City: c.Query("city")}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}
