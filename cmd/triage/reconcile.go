package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/triage/pkg/triage"
)

var (
	reconcileWorkers  int
	reconcileResume   bool
	reconcileFailFast bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Classify every issue and update the result store",
	Long: `Run one reconciliation pass: fetch the taxonomy and all issues, classify
each issue and upsert its result. Issues that fail are reported and the pass
continues unless --fail-fast is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("workers") {
			cfg.Reconcile.Workers = reconcileWorkers
		}
		if cmd.Flags().Changed("resume") {
			cfg.Reconcile.Resume = reconcileResume
		}
		if cmd.Flags().Changed("fail-fast") {
			cfg.Reconcile.FailFast = reconcileFailFast
		}

		var opts []triage.Option
		if !jsonOut {
			opts = append(opts, triage.WithProgress(func(p triage.Progress) {
				printProgress(os.Stderr, p)
			}))
		}
		t, err := openTriage(opts...)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		report, runErr := t.Reconcile(ctx)
		closeErr := t.Close()
		if report != nil {
			if jsonOut {
				if err := writeJSON(os.Stdout, report); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(os.Stderr)
				printReport(os.Stdout, report)
			}
		}
		if runErr != nil {
			return runErr
		}
		if closeErr != nil {
			return fmt.Errorf("flush outputs: %w", closeErr)
		}
		if len(report.Failed) > 0 {
			return errors.New("some issues could not be reconciled")
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().IntVar(&reconcileWorkers, "workers", 1, "issues classified concurrently (overrides TRIAGE_WORKERS)")
	reconcileCmd.Flags().BoolVar(&reconcileResume, "resume", false, "skip issues whose stored result is up to date")
	reconcileCmd.Flags().BoolVar(&reconcileFailFast, "fail-fast", false, "abort the pass on the first failed issue")
	reconcileCmd.Flags().BoolVar(&jsonOut, "json", false, "print the report as JSON")
	rootCmd.AddCommand(reconcileCmd)
}
