package main

import (
	"os"

	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <issue-id>",
	Short: "Classify one issue without storing the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTriage()
		if err != nil {
			return err
		}
		defer t.Close()

		ctx, cancel := signalContext()
		defer cancel()

		res, err := t.MatchSingle(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(os.Stdout, res)
		}
		printResult(os.Stdout, res, true)
		return nil
	},
}

func init() {
	matchCmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")
	rootCmd.AddCommand(matchCmd)
}
