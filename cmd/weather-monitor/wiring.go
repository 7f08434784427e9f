package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/i474232898/weather-monitor/internal/cloud"
	"github.com/i474232898/weather-monitor/internal/config"
	"github.com/i474232898/weather-monitor/internal/notify"
	"github.com/i474232898/weather-monitor/internal/store"
	"github.com/i474232898/weather-monitor/internal/weather"
	"github.com/i474232898/weather-monitor/internal/weather/providers"
)

// components bundles everything a command needs plus its teardown.
type components struct {
	service *weather.Service
	closers []func()
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func openStore(ctx context.Context, cfg *config.AppConfig) (weather.Store, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		db, err := store.Connect(ctx, cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
		log.Info().Msg("using postgres store")
		return pg, func() { _ = pg.Close() }, nil
	default:
		log.Info().Msg("using in-memory store")
		return store.NewMemoryStore(), func() {}, nil
	}
}

func buildNotifier(ctx context.Context, cfg *config.AppConfig) (weather.AlertNotifier, []func()) {
	var (
		notifiers notify.Multi
		closers   []func()
	)

	if cfg.SNSTopicArn != "" {
		sns, err := cloud.NewSNSNotifier(ctx, cfg.AWSRegion, cfg.SNSTopicArn)
		if err != nil {
			log.Error().Err(err).Msg("sns notifier disabled")
		} else {
			notifiers = append(notifiers, sns)
		}
	}

	if cfg.MQTTBroker != "" {
		n, client, err := notify.DialMQTT(cfg.MQTTBroker, notify.ClientID("weather-monitor"), cfg.MQTTTopic)
		if err != nil {
			log.Error().Err(err).Msg("mqtt notifier disabled")
		} else {
			notifiers = append(notifiers, n)
			closers = append(closers, func() { client.Disconnect(250) })
		}
	}

	if len(notifiers) == 0 {
		return nil, closers
	}
	return notifiers, closers
}

func buildComponents(ctx context.Context, cfg *config.AppConfig) (*components, error) {
	c := &components{}

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closeStore)

	thresholds, err := weather.NewThresholdStore(weather.DefaultThresholds())
	if err != nil {
		c.Close()
		return nil, err
	}

	notifier, notifierClosers := buildNotifier(ctx, cfg)
	c.closers = append(c.closers, notifierClosers...)

	var archiver weather.SummaryArchiver
	if cfg.S3Bucket != "" {
		a, err := cloud.NewS3Archiver(ctx, cfg.AWSRegion, cfg.S3Bucket)
		if err != nil {
			log.Error().Err(err).Msg("s3 archiver disabled")
		} else {
			archiver = a
		}
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	fetcher := providers.NewOpenWeatherFetcher(httpClient, providers.OpenWeatherConfig{
		APIKey:     cfg.OpenWeatherAPIKey,
		GeoURL:     cfg.GeoURL,
		WeatherURL: cfg.WeatherURL,
	})

	c.service = weather.NewService(st, fetcher, thresholds, weather.Options{
		Retention:     cfg.Retention,
		RealtimeTTL:   cfg.RealtimeCacheTTL,
		HistoricalTTL: cfg.HistoricalCacheTTL,
		Location:      cfg.Location,
		Notifier:      notifier,
		Archiver:      archiver,
	})

	if err := c.service.RestoreThresholds(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("restore thresholds: %w", err)
	}
	return c, nil
}
