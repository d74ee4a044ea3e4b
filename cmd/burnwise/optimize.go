package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/khryptorgraphics/burnwise/pkg/pipeline"
)

func optimizeCmd() *cobra.Command {
	var (
		date         string
		requestsPath string
		seed         int64
		maxIter      int
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run weather, smoke prediction, and scheduling without dispatching alerts",
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

			result, err := p.CoordinateBatch(context.Background(), date, requests, pipeline.Options{
				Seed:             seed,
				MaxOptimizerIter: maxIter,
				AlertsEnabled:    false,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result.Schedule)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "scheduling date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&requestsPath, "requests", "", "path to a JSON array of burn requests (required)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "deterministic RNG seed for the optimizer")
	cmd.Flags().IntVar(&maxIter, "max-iter", 0, "override the annealing iteration cap (0 = spec default)")
	cmd.MarkFlagRequired("date")
	cmd.MarkFlagRequired("requests")

	return cmd
}
