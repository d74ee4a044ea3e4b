package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/khryptorgraphics/burnwise/pkg/pipeline"
)

func runCmd() *cobra.Command {
	var (
		date          string
		requestsPath  string
		seed          int64
		maxIter       int
		alertsEnabled bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full coordinateBatch pipeline over a requests file",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedDate, err := parseDate(date)
			if err != nil {
				return err
			}
			requests, err := loadRequests(requestsPath, parsedDate)
			if err != nil {
				return err
			}

			logger := newLogger()
			p := buildPipeline(logger)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			result, err := p.CoordinateBatch(ctx, date, requests, pipeline.Options{
				Seed:             seed,
				MaxOptimizerIter: maxIter,
				AlertsEnabled:    alertsEnabled,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "scheduling date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&requestsPath, "requests", "", "path to a JSON array of burn requests (required)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "deterministic RNG seed for the optimizer")
	cmd.Flags().IntVar(&maxIter, "max-iter", 0, "override the annealing iteration cap (0 = spec default)")
	cmd.Flags().BoolVar(&alertsEnabled, "alerts", true, "dispatch scheduled-burn alerts after optimizing")
	cmd.MarkFlagRequired("date")
	cmd.MarkFlagRequired("requests")

	return cmd
}
