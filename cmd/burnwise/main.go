// Command burnwise is the operator CLI for the agricultural burn
// coordination pipeline (spec.md §6): it runs the full
// coordinateBatch pipeline, or exercises the smoke-prediction and
// schedule-optimization stages in isolation, against a JSON file of
// burn requests.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "burnwise",
		Short:   "Agricultural burn coordination pipeline",
		Version: version,
		Long: `burnwise schedules agricultural burn requests around weather,
smoke dispersion, and spatial/temporal conflicts, then dispatches
operator alerts for the resulting schedule.`,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(predictCmd())
	rootCmd.AddCommand(optimizeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}
