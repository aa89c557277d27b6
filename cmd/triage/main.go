package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/triage/internal/config"
	"github.com/crimson-sun/triage/internal/logging"
	"github.com/crimson-sun/triage/pkg/triage"
)

var (
	cfg      config.Config
	logLevel string
	storeBe  string
	storeDSN string
	jsonOut  bool
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Match issues against a taxonomy and keep the results up to date",
	Long: `triage classifies free-text issues against a hierarchical taxonomy by
embedding similarity and stores the best-matching leaf paths per issue.

Configuration comes from TRIAGE_* environment variables; the global flags
below override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if cmd.Flags().Changed("store") {
			cfg.Store.Backend = storeBe
		}
		if cmd.Flags().Changed("store-dsn") {
			cfg.Store.DSN = storeDSN
		}

		// Keep stdout machine-readable when it carries results.
		format := cfg.Log.Format
		if jsonOut || cfg.Output.HasSink("stdout") {
			format = "json"
		}
		logging.Init(format, logging.ParseLevel(cfg.Log.Level))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides TRIAGE_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&storeBe, "store", "", "result store: sqlite, postgres, redis, memory (overrides TRIAGE_STORE)")
	rootCmd.PersistentFlags().StringVar(&storeDSN, "store-dsn", "", "result store DSN (overrides TRIAGE_STORE_DSN)")
}

// openTriage builds a Triage instance from the loaded configuration.
func openTriage(opts ...triage.Option) (*triage.Triage, error) {
	return triage.New(append([]triage.Option{triage.WithConfig(cfg)}, opts...)...)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(os.Stderr, "\nreceived %v, stopping after in-flight issues...\n", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
