package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/khryptorgraphics/burnwise/pkg/coordinator"
	"github.com/khryptorgraphics/burnwise/pkg/smoke"
	"github.com/khryptorgraphics/burnwise/pkg/types"
	"github.com/khryptorgraphics/burnwise/pkg/weather"
)

func predictCmd() *cobra.Command {
	var (
		requestID    int64
		requestsPath string
		date         string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run the Smoke Predictor for a single request in a requests file",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedDate, err := parseDate(date)
			if err != nil {
				return err
			}
			requests, err := loadRequests(requestsPath, parsedDate)
			if err != nil {
				return err
			}

			rawTarget, ok := findRequest(requests, requestID)
			if !ok {
				return fmt.Errorf("request id %d not found in %s", requestID, requestsPath)
			}

			logger := newLogger()
			coord := coordinator.New(logger, nil)
			validated, err := coord.Validate(context.Background(), rawTarget, parsedDate.Unix())
			if err != nil {
				return err
			}
			target := validated.Request

			provider := weather.NewOpenMeteoProvider(10 * time.Second)
			analyzer := weather.New(provider, 10*time.Minute, 5, 60*time.Second, logger)

			analysis, err := analyzer.Analyze(context.Background(), target.Location, target.BurnDate, target.TimeWindow, target.ID)
			if err != nil {
				return err
			}

			predictor := smoke.New(logger)
			prediction, err := predictor.Predict(target, analysis.Current)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(prediction)
		},
	}

	cmd.Flags().Int64Var(&requestID, "request-id", 0, "burn request ID to predict (required)")
	cmd.Flags().StringVar(&requestsPath, "requests", "", "path to a JSON array of burn requests (required)")
	cmd.Flags().StringVar(&date, "date", "", "scheduling date, YYYY-MM-DD (required)")
	cmd.MarkFlagRequired("request-id")
	cmd.MarkFlagRequired("requests")
	cmd.MarkFlagRequired("date")

	return cmd
}

func findRequest(requests []types.BurnRequest, id int64) (types.BurnRequest, bool) {
	for _, req := range requests {
		if req.ID == id {
			return req, true
		}
	}
	return types.BurnRequest{}, false
}
