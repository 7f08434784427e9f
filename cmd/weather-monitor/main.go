package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/i474232898/weather-monitor/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "weather-monitor",
	Short: "Weather monitoring, aggregation and alerting service",
	Long: `weather-monitor periodically fetches current weather for a set of cities,
keeps the last 24 hours of readings, rolls them into daily summaries and raises
alerts when a reading leaves its configured threshold range.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg)
		appConfig = cfg
		return nil
	},
}

var appConfig *config.AppConfig

func setupLogging(cfg *config.AppConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
