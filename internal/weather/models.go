package weather

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire and storage format of a DailySummary date.
const DateLayout = "2006-01-02"

// KelvinOffset converts provider temperatures (Kelvin) to Celsius.
const KelvinOffset = 273.15

// Reading is a single weather observation for one city.
// Temperatures are in Celsius. Rain is mm over the last hour.
type Reading struct {
	ID        int64     `json:"-" db:"id"`
	Timestamp time.Time `json:"dt" db:"dt"`
	City      string    `json:"city" db:"city"`
	Condition string    `json:"main_condition" db:"main_condition"`
	Temp      float64   `json:"temp" db:"temp"`
	FeelsLike float64   `json:"feels_like" db:"feels_like"`
	Pressure  float64   `json:"pressure" db:"pressure"`
	Humidity  float64   `json:"humidity" db:"humidity"`
	Rain      float64   `json:"rain" db:"rain"`
	Clouds    float64   `json:"clouds" db:"clouds"`
}

// DailySummary is the per-city rollup of one day of readings.
type DailySummary struct {
	Date         time.Time `json:"date" db:"date"`
	City         string    `json:"city" db:"city"`
	AvgTemp      float64   `json:"avg_temp" db:"avg_temp"`
	MaxTemp      float64   `json:"max_temp" db:"max_temp"`
	MinTemp      float64   `json:"min_temp" db:"min_temp"`
	DomCondition string    `json:"dom_condition" db:"dom_condition"`
}

// Key identifies the (city, date) row a summary upserts into.
func (s DailySummary) Key() string {
	return s.City + ":" + s.Date.Format(DateLayout)
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (s DailySummary) MarshalJSON() ([]byte, error) {
	type alias DailySummary
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{
		alias: alias(s),
		Date:  s.Date.Format(DateLayout),
	})
}

// AlertEvent records that a reading breached the range of one metric.
type AlertEvent struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Timestamp time.Time `json:"dt" db:"dt"`
	City      string    `json:"city" db:"city"`
	Metric    string    `json:"trigger" db:"trigger"`
	Reason    string    `json:"reason" db:"reason"`
}
