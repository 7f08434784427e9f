package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-monitor/internal/weather"
)

const (
	DefaultGeoURL     = "http://api.openweathermap.org/geo/1.0/direct"
	DefaultWeatherURL = "https://api.openweathermap.org/data/2.5/weather"
)

// OpenWeatherConfig holds the credentials and endpoints for OpenWeatherMap.
type OpenWeatherConfig struct {
	APIKey     string
	GeoURL     string
	WeatherURL string
}

// OpenWeatherFetcher implements weather.Fetcher for OpenWeatherMap: it
// geocodes the city and then requests current conditions at its coordinates.
type OpenWeatherFetcher struct {
	name       string
	apiKey     string
	geoURL     string
	weatherURL string
	client     *http.Client
	circuit    *gobreaker.CircuitBreaker
}

func NewOpenWeatherFetcher(client *http.Client, cfg OpenWeatherConfig) *OpenWeatherFetcher {
	if cfg.GeoURL == "" {
		cfg.GeoURL = DefaultGeoURL
	}
	if cfg.WeatherURL == "" {
		cfg.WeatherURL = DefaultWeatherURL
	}

	return &OpenWeatherFetcher{
		name:       "openweathermap",
		apiKey:     cfg.APIKey,
		geoURL:     cfg.GeoURL,
		weatherURL: cfg.WeatherURL,
		client:     client,
		circuit:    newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherFetcher) Name() string {
	return p.name
}

type geocodeResult struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type currentWeatherPayload struct {
	Dt      int64 `json:"dt"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
	Main *struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  float64 `json:"pressure"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Rain struct {
		OneH float64 `json:"1h"`
	} `json:"rain"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
}

// Geocode resolves a city name to coordinates using the first match.
func (p *OpenWeatherFetcher) Geocode(ctx context.Context, city string) (lat, lon float64, err error) {
	values := url.Values{}
	values.Set("q", city)
	values.Set("limit", "1")
	values.Set("appid", p.apiKey)

	var results []geocodeResult
	if err := getJSON(ctx, p.client, p.circuit, "geocode", city, p.geoURL+"?"+values.Encode(), &results); err != nil {
		return 0, 0, err
	}
	if len(results) == 0 {
		return 0, 0, &weather.ProviderError{
			Op:         "geocode",
			City:       city,
			StatusCode: http.StatusOK,
			Err:        fmt.Errorf("%w: no match for city", weather.ErrMalformedPayload),
		}
	}
	return results[0].Lat, results[0].Lon, nil
}

// Fetch returns the current reading for city with temperatures in Celsius and
// the timestamp taken from the provider's observation time.
func (p *OpenWeatherFetcher) Fetch(ctx context.Context, city string) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, &weather.ProviderError{Op: "fetch", City: city, Err: fmt.Errorf("openweather api key is not configured")}
	}

	lat, lon, err := p.Geocode(ctx, city)
	if err != nil {
		return weather.Reading{}, err
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("appid", p.apiKey)

	var payload currentWeatherPayload
	if err := getJSON(ctx, p.client, p.circuit, "weather", city, p.weatherURL+"?"+values.Encode(), &payload); err != nil {
		return weather.Reading{}, err
	}

	if payload.Main == nil || len(payload.Weather) == 0 {
		return weather.Reading{}, &weather.ProviderError{
			Op:         "weather",
			City:       city,
			StatusCode: http.StatusOK,
			Err:        fmt.Errorf("%w: missing main or weather section", weather.ErrMalformedPayload),
		}
	}

	return weather.Reading{
		Timestamp: time.Unix(payload.Dt, 0).UTC(),
		City:      city,
		Condition: payload.Weather[0].Main,
		Temp:      KelvinToCelsius(payload.Main.Temp),
		FeelsLike: KelvinToCelsius(payload.Main.FeelsLike),
		Pressure:  payload.Main.Pressure,
		Humidity:  payload.Main.Humidity,
		Rain:      payload.Rain.OneH,
		Clouds:    payload.Clouds.All,
	}, nil
}

// KelvinToCelsius converts a provider temperature.
func KelvinToCelsius(k float64) float64 {
	return k - weather.KelvinOffset
}
