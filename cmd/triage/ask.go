package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <issue-id> <question>",
	Short: "Answer a question about an issue from its comments",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTriage()
		if err != nil {
			return err
		}
		defer t.Close()

		answer, err := t.Ask(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
