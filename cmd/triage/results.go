package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/triage/pkg/triage"
)

var resultsUnmatched bool

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List stored results",
	Long: `List stored results ordered by issue id. With --unmatched only issues that
had no text to classify are listed; assign them by hand with "triage assign".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTriage()
		if err != nil {
			return err
		}
		defer t.Close()

		var results []triage.Result
		if resultsUnmatched {
			results, err = t.Unmatched(cmd.Context())
		} else {
			results, err = t.Results(cmd.Context())
		}
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(os.Stdout, results)
		}
		printResults(os.Stdout, results)
		return nil
	},
}

func init() {
	resultsCmd.Flags().BoolVar(&resultsUnmatched, "unmatched", false, "only issues without text to classify")
	resultsCmd.Flags().BoolVar(&jsonOut, "json", false, "print results as JSON")
	rootCmd.AddCommand(resultsCmd)
}
