package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/etfmonitor/internal/config"
	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/aristath/etfmonitor/internal/modules/composition"
	"github.com/aristath/etfmonitor/internal/modules/ingest"
	"github.com/aristath/etfmonitor/internal/modules/performance"
)

func uploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload WEIGHTS_CSV PRICES_CSV",
		Short: "Upload a weights file and a prices file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			weights, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open weights file: %w", err)
			}
			defer weights.Close()

			prices, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("failed to open prices file: %w", err)
			}
			defer prices.Close()

			res, err := a.client.UploadFiles(cmd.Context(),
				&ingest.Upload{Filename: filepath.Base(args[0]), Body: weights},
				&ingest.Upload{Filename: filepath.Base(args[1]), Body: prices},
			)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (upload %s, %d holdings)\n", res.Message, res.UploadID, res.Holdings)
			return nil
		},
	}
}

func compositionCmd(a *app) *cobra.Command {
	var sortKey, direction string

	cmd := &cobra.Command{
		Use:   "composition",
		Short: "Print the fund's holdings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := domain.DefaultSortConfig()
			if sortKey != "" {
				key, err := domain.ParseSortKey(sortKey)
				if err != nil {
					return err
				}
				cfg.Key = key
			}
			if direction != "" {
				dir, err := domain.ParseDirection(direction)
				if err != nil {
					return err
				}
				cfg.Direction = dir
			}

			rows, err := a.client.Composition(cmd.Context())
			if err != nil {
				return err
			}
			rows = composition.Sort(rows, cfg)
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			return printComposition(cmd.OutOrStdout(), rows)
		},
	}

	cmd.Flags().StringVar(&sortKey, "sort", "", "Sort column (name|weight|latest_price)")
	cmd.Flags().StringVar(&direction, "direction", "", "Sort direction (asc|desc)")
	return cmd
}

func performanceCmd(a *app) *cobra.Command {
	var window string

	cmd := &cobra.Command{
		Use:   "performance",
		Short: "Print the fund value over time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := domain.ParseTimeRange(window)
			if err != nil {
				return err
			}
			series, err := a.client.Performance(cmd.Context())
			if err != nil {
				return err
			}
			series = performance.Filter(series, r)
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), series)
			}
			return printPerformance(cmd.OutOrStdout(), series)
		},
	}

	cmd.Flags().StringVar(&window, "range", string(domain.RangeMAX), "Time range (1D|1W|1M|3M|6M|YTD|1Y|MAX)")
	return cmd
}

func topCmd(a *app) *cobra.Command {
	var (
		n    int
		date string
	)

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the largest holdings by value on a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseOptionalDate(date)
			if err != nil {
				return err
			}
			top, err := a.client.TopHoldings(cmd.Context(), n, at)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), top)
			}
			return printTopHoldings(cmd.OutOrStdout(), top)
		},
	}

	cmd.Flags().IntVar(&n, "n", config.DefaultTopN, fmt.Sprintf("Number of holdings (1-%d)", config.MaxTopN))
	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD), latest when empty")
	return cmd
}

func changesCmd(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Print each holding's price direction on a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseOptionalDate(date)
			if err != nil {
				return err
			}
			changes, err := a.client.PriceChanges(cmd.Context(), at)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), changes)
			}
			return printPriceChanges(cmd.OutOrStdout(), changes)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD), latest when empty")
	return cmd
}

func snapshotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print metadata about the snapshot being served",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.client.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), status)
			}
			return printSnapshot(cmd.OutOrStdout(), status)
		},
	}
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
