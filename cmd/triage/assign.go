package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var assignCmd = &cobra.Command{
	Use:   "assign <issue-id> <path> <score>",
	Short: "Record a reviewer-chosen leaf for an issue",
	Long: `Replace an issue's stored matches with a single leaf path chosen by a
reviewer. The path must be a leaf of the current taxonomy, e.g.
"Support -> Billing -> Refund request".`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid score %q: %w", args[2], err)
		}

		t, err := openTriage()
		if err != nil {
			return err
		}
		defer t.Close()

		if err := t.Assign(cmd.Context(), args[0], args[1], score); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s %s → %s\n", green("✓"), args[0], args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assignCmd)
}
