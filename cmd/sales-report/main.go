// Command sales-report prints the dashboard panels for a sales CSV to the
// terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"pharma-dashboard/internal/analytics"
	"pharma-dashboard/internal/dataset"
	"pharma-dashboard/internal/models"
	"pharma-dashboard/internal/services"
)

const parseTimeout = time.Minute

type options struct {
	file    string
	promo   string
	unit    string
	period  string
	filters []string
	limit   int
	format  string
	output  string
}

func main() {
	if err := newRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "sales-report",
		Short:        "Summarise a pharmaceutical sales CSV",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "", "sales CSV to read (required)")
	root.PersistentFlags().StringVar(&opts.promo, "promo", "한미플루", "product name fragment reported separately")
	root.PersistentFlags().StringArrayVar(&opts.filters, "filter", nil, "column=value restriction, repeatable (e.g. rep=김철수)")
	_ = root.MarkPersistentFlagRequired("file")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Totals, monthly revenue and client ranking",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, f, err := load(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), d, f)
			return nil
		},
	}

	bands := &cobra.Command{
		Use:   "bands",
		Short: "Client and representative revenue bands",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, _, err := load(cmd.Context(), opts)
			if err != nil {
				return err
			}
			ba, err := d.BandAnalysis(opts.unit, opts.period)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "거래처 매출 구간 (%s)\n", ba.Title)
			printBands(w, ba.Clients)
			fmt.Fprintf(w, "\n담당자 매출 구간 (%s)\n", ba.Title)
			printBands(w, ba.Representatives)
			return nil
		},
	}
	bands.Flags().StringVar(&opts.unit, "unit", services.UnitMonth, "month or quarter")
	bands.Flags().StringVar(&opts.period, "period", "", "month (2024-03) or quarter (2024Q1); latest when empty")

	details := &cobra.Command{
		Use:   "details",
		Short: "Filtered detail rows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, f, err := load(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printDetails(cmd.OutOrStdout(), d.DetailTable(f, opts.limit))
			return nil
		},
	}
	details.Flags().IntVar(&opts.limit, "limit", 50, "maximum rows to print, 0 for all")

	ask := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Answer a keyword question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := load(cmd.Context(), opts)
			if err != nil {
				return err
			}
			question := args[0]
			for _, a := range args[1:] {
				question += " " + a
			}
			fmt.Fprintln(cmd.OutOrStdout(), d.Ask(question).Text)
			return nil
		},
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered rows as CSV or XLSX",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, f, err := load(cmd.Context(), opts)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if opts.output != "" && opts.output != "-" {
				file, err := os.Create(opts.output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			return d.Export(w, f, opts.format)
		},
	}
	export.Flags().StringVar(&opts.format, "format", services.FormatCSV, "csv or xlsx")
	export.Flags().StringVarP(&opts.output, "output", "o", "-", "output file, - for stdout")

	root.AddCommand(summary, bands, details, ask, export)
	return root
}

func load(ctx context.Context, opts *options) (*services.Dashboard, analytics.FilterSet, error) {
	f, err := parseFilters(opts.filters)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(opts.file)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(ctx, parseTimeout)
	defer cancel()

	ds, err := dataset.Parse(ctx, file, opts.file, dataset.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", opts.file, err)
	}
	return services.NewDashboard(ds, opts.promo), f, nil
}

// parseFilters turns "rep=김철수" style flags into a filter set. Repeating a
// column ORs its values.
func parseFilters(raw []string) (analytics.FilterSet, error) {
	f := analytics.FilterSet{}
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("filter %q must look like column=value", kv)
		}
		col, err := analytics.ParseColumn(name)
		if err != nil {
			return nil, err
		}
		f[col] = append(f[col], value)
	}
	return f, nil
}

func won(v float64) string {
	return analytics.FormatWon(decimal.NewFromFloat(v))
}

func printSummary(w io.Writer, d *services.Dashboard, f analytics.FilterSet) {
	ov := d.Overview()
	fmt.Fprintf(w, "총매출 %s원 · 거래처 %d곳 · 품목 %d개 · %d행\n\n", won(ov.TotalRevenue), ov.Clients, ov.Products, ov.Rows)

	monthly := tablewriter.NewWriter(w)
	monthly.SetHeader([]string{"월", "총매출"})
	for _, m := range d.MonthlyTotals() {
		monthly.Append([]string{m.Month, won(m.Revenue)})
	}
	monthly.Render()
	fmt.Fprintln(w)

	clients := tablewriter.NewWriter(w)
	clients.SetHeader([]string{"순위", "거래처", "총매출"})
	for i, c := range d.ClientTotals(f) {
		clients.Append([]string{strconv.Itoa(i + 1), c.Name, won(c.Revenue)})
	}
	clients.Render()

	promo := d.PromoSummary(f)
	fmt.Fprintf(w, "\n%s\n", promo.Product)
	if promo.Message != "" {
		fmt.Fprintln(w, promo.Message)
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"월", "담당자", "총매출"})
	for _, r := range promo.Rows {
		table.Append([]string{r.Month, r.Representative, won(r.Revenue)})
	}
	table.Render()
}

func printBands(w io.Writer, counts []models.BandCount) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"구간", "수"})
	for _, c := range counts {
		table.Append([]string{c.Label, strconv.Itoa(c.Count)})
	}
	table.Render()
}

func printDetails(w io.Writer, t models.DetailTable) {
	if t.Message != "" {
		fmt.Fprintln(w, t.Message)
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(t.Columns)
	for _, r := range t.Rows {
		table.Append(detailCells(t.Columns, r))
	}
	table.Render()
	if len(t.Rows) < t.Total {
		fmt.Fprintf(w, "%d / %d행 표시\n", len(t.Rows), t.Total)
	}
}

func detailCells(columns []string, r models.DetailRow) []string {
	cells := make([]string, 0, len(columns))
	for _, c := range columns {
		switch c {
		case dataset.HeaderPeriod:
			cells = append(cells, r.Month)
		case dataset.HeaderRepresentative:
			cells = append(cells, r.Representative)
		case dataset.HeaderClient:
			cells = append(cells, r.Client)
		case dataset.HeaderProductGroup:
			cells = append(cells, r.ProductGroup)
		case dataset.HeaderProduct:
			cells = append(cells, r.Product)
		case dataset.HeaderQuantity:
			cells = append(cells, humanize.Comma(r.Quantity))
		case dataset.HeaderRevenue:
			cells = append(cells, won(r.Revenue))
		}
	}
	return cells
}
