package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/etfmonitor/internal/client"
	"github.com/aristath/etfmonitor/internal/dashboard"
	"github.com/aristath/etfmonitor/internal/domain"
)

var _ dashboard.Backend = (*client.Client)(nil)

// inspectCmd drives a dashboard session against the API, so the views match
// what the browser dashboard shows for the same controls.
func inspectCmd(a *app) *cobra.Command {
	var (
		date    string
		sortKey string
		window  string
		n       int
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print every dashboard view for a selected date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := domain.ParseTimeRange(window)
			if err != nil {
				return err
			}

			topN := a.cfg.DefaultTopN
			if cmd.Flags().Changed("n") {
				topN = n
			}

			session := dashboard.NewSession(cmd.Context(), a.client, dashboard.Options{
				TopN:   topN,
				Logger: a.log,
			})
			defer session.Close()

			session.Refresh()
			session.Wait()
			if st := session.State(); st.Error != "" {
				return fmt.Errorf("failed to load dashboard: %s", st.Error)
			}

			if sortKey != "" {
				key, err := domain.ParseSortKey(sortKey)
				if err != nil {
					return err
				}
				session.Sort(key)
			}
			session.SetRange(r)
			if cmd.Flags().Changed("n") {
				if err := session.SetTopN(n); err != nil {
					return err
				}
			}
			if date != "" {
				if err := session.Select(date); err != nil {
					return err
				}
			}
			session.Wait()

			st := session.State()
			if st.Error != "" {
				return fmt.Errorf("failed to load dashboard: %s", st.Error)
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), st)
			}
			return printDashboard(cmd.OutOrStdout(), st)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Selected date (YYYY-MM-DD), latest when empty")
	cmd.Flags().StringVar(&sortKey, "sort", "", "Toggle the composition sort on this column")
	cmd.Flags().StringVar(&window, "range", string(domain.RangeMAX), "Performance time range")
	cmd.Flags().IntVar(&n, "n", 0, "Number of top holdings")
	return cmd
}
