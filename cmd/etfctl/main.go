// Package main is etfctl, a command line client for the etfmonitor API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/etfmonitor/internal/client"
	"github.com/aristath/etfmonitor/internal/config"
	"github.com/aristath/etfmonitor/pkg/logger"
)

// app carries what every subcommand needs once flags are parsed
type app struct {
	configPath string
	apiURL     string
	timeout    time.Duration
	logLevel   string
	jsonOutput bool

	cfg    *config.Config
	log    zerolog.Logger
	client *client.Client
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "etfctl",
		Short: "Command line client for the etfmonitor API",
		Long: `etfctl uploads holdings files to an etfmonitor backend and prints the
derived views: composition, performance, top holdings and price changes.

Examples:
  etfctl upload weights.csv prices.csv
  etfctl composition --sort name --direction asc
  etfctl top --n 10 --date 2026-01-02
  etfctl inspect --date 2026-01-02`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, stderr)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", os.Getenv("ETFMONITOR_CONFIG"), "Path to a TOML config file")
	flags.StringVar(&a.apiURL, "api-url", "", "Backend base URL (overrides config)")
	flags.DurationVar(&a.timeout, "timeout", 0, "Per-request timeout (overrides config)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	flags.BoolVar(&a.jsonOutput, "json", false, "Print JSON instead of tables")

	root.AddCommand(
		uploadCmd(a),
		compositionCmd(a),
		performanceCmd(a),
		topCmd(a),
		changesCmd(a),
		snapshotCmd(a),
		inspectCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIURL = a.apiURL
	}
	if a.timeout > 0 {
		cfg.ClientTimeout = a.timeout
	}

	a.cfg = cfg
	a.log = logger.New(logger.Config{
		Level:  a.logLevel,
		Pretty: true,
		Output: stderr,
	})
	a.client = client.New(cfg.APIURL, cfg.ClientTimeout, a.log)

	a.log.Debug().
		Str("command", cmd.Name()).
		Str("api_url", cfg.APIURL).
		Dur("timeout", cfg.ClientTimeout).
		Msg("etfctl configured")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
