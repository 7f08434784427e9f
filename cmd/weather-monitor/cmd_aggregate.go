package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-monitor/internal/config"
	"github.com/i474232898/weather-monitor/internal/weather"
)

var aggregateDate string

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Roll one day of readings into daily summaries",
	Long: `Aggregate groups the stored readings of one day by city and upserts a
daily summary per city. Running it again for the same day replaces the rows.`,
	RunE: runAggregate,
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateDate, "date", "", "day to aggregate (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(aggregateCmd)
}

// checkAggregateStore rejects the in-memory store: a fresh process has no
// readings, so the rollup would always be empty.
func checkAggregateStore(cfg *config.AppConfig) error {
	if cfg.StoreDriver != "postgres" {
		return fmt.Errorf("aggregate needs a persistent store; set STORE_DRIVER=postgres (current: %q)", cfg.StoreDriver)
	}
	return nil
}

func runAggregate(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if err := checkAggregateStore(cfg); err != nil {
		return err
	}

	day := time.Now().In(cfg.Location)
	if aggregateDate != "" {
		parsed, err := time.ParseInLocation(weather.DateLayout, aggregateDate, cfg.Location)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", aggregateDate, err)
		}
		day = parsed
	}

	comps, err := buildComponents(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	summaries, err := comps.service.Aggregate(cmd.Context(), day)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}
