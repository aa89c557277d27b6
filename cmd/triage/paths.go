package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List the leaf paths of the current taxonomy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTriage()
		if err != nil {
			return err
		}
		defer t.Close()

		paths, err := t.LeafPaths(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(os.Stdout, p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}
