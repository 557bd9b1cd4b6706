package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aristath/etfmonitor/internal/client"
	"github.com/aristath/etfmonitor/internal/dashboard"
	"github.com/aristath/etfmonitor/internal/domain"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printComposition(w io.Writer, rows []domain.HoldingRow) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tWEIGHT\tLATEST PRICE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%.2f%%\t%.2f\n", r.Name, r.Weight*100, r.LatestPrice)
	}
	return tw.Flush()
}

func printPerformance(w io.Writer, series domain.PerformanceSeries) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tVALUE")
	for _, p := range series {
		fmt.Fprintf(tw, "%s\t%.3f\n", domain.FormatDate(p.Date), p.Value)
	}
	return tw.Flush()
}

func printTopHoldings(w io.Writer, top []domain.RankedHolding) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "RANK\tNAME\tVALUE")
	for i, h := range top {
		fmt.Fprintf(tw, "%d\t%s\t%.3f\n", i+1, h.Name, h.HoldingValue)
	}
	return tw.Flush()
}

func printPriceChanges(w io.Writer, changes []domain.PriceChange) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tDIRECTION\tCHANGE")
	for _, c := range changes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, direction(c), changeAmount(c))
	}
	return tw.Flush()
}

func direction(c domain.PriceChange) string {
	switch {
	case c.Neutral():
		return "-"
	case *c.Increased:
		return "up"
	default:
		return "down"
	}
}

func changeAmount(c domain.PriceChange) string {
	if c.ChangeAmount == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f", *c.ChangeAmount)
}

func printSnapshot(w io.Writer, status *client.SnapshotStatus) error {
	if !status.Loaded {
		_, err := fmt.Fprintln(w, "No snapshot loaded")
		return err
	}
	info := status.Snapshot
	tw := newTable(w)
	fmt.Fprintf(tw, "Upload\t%s\n", info.UploadID)
	fmt.Fprintf(tw, "Uploaded at\t%s\n", info.UploadedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "Holdings\t%d\n", info.Holdings)
	fmt.Fprintf(tw, "Tickers\t%d\n", info.Tickers)
	fmt.Fprintf(tw, "Dates\t%d (%s to %s)\n", info.Dates, info.FirstDate, info.LastDate)
	return tw.Flush()
}

func printDashboard(w io.Writer, st dashboard.State) error {
	date := st.ResolvedDate
	if date == "" {
		date = "none"
	}
	if st.SelectedDate != "" && st.SelectedDate != st.ResolvedDate {
		date = fmt.Sprintf("%s (selected %s)", date, st.SelectedDate)
	}
	fmt.Fprintf(w, "Date: %s\n", date)
	fmt.Fprintf(w, "Sort: %s %s\n\n", st.Sort.Key, st.Sort.Direction)

	if err := printComposition(w, st.Rows); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTop %d holdings\n", st.TopN)
	if err := printTopHoldings(w, st.TopHoldings); err != nil {
		return err
	}
	fmt.Fprintln(w, "\nPrice changes")
	if err := printPriceChanges(w, st.PriceChanges); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nPerformance (%s)\n", st.Range)
	return printPerformance(w, st.Performance)
}
