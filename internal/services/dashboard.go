package services

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"pharma-dashboard/internal/analytics"
	"pharma-dashboard/internal/dataset"
	"pharma-dashboard/internal/models"
)

const (
	UnitMonth   = "month"
	UnitQuarter = "quarter"

	TotalSeriesName = "총합"

	noRowsMessage = "선택한 조건에 해당하는 데이터가 없습니다."
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Dashboard computes every panel from one uploaded dataset. It never mutates
// the dataset, so panels may be computed concurrently.
type Dashboard struct {
	ds    *dataset.Dataset
	promo string
}

func NewDashboard(ds *dataset.Dataset, promoProduct string) *Dashboard {
	return &Dashboard{ds: ds, promo: promoProduct}
}

func (d *Dashboard) Dataset() *dataset.Dataset {
	return d.ds
}

func (d *Dashboard) segments() (main, promo []models.Transaction) {
	return analytics.Segment(d.ds.Rows, d.promo)
}

func toFloat(v decimal.Decimal) float64 {
	return v.InexactFloat64()
}

func named(groups []analytics.Group) []models.NamedRevenue {
	out := make([]models.NamedRevenue, len(groups))
	for i, g := range groups {
		out[i] = models.NamedRevenue{Name: g.Key(0), Revenue: toFloat(g.Value)}
	}
	return out
}

// Overview covers everything except the promotional product line.
func (d *Dashboard) Overview() models.Overview {
	main, _ := d.segments()
	return models.Overview{
		TotalRevenue: toFloat(analytics.Total(main, analytics.MeasureRevenue)),
		Clients:      analytics.DistinctCount(main, analytics.ColumnClient),
		Products:     analytics.DistinctCount(main, analytics.ColumnProduct),
		Rows:         len(main),
	}
}

// MonthlyTotals is revenue per month outside the promotional line, oldest first.
func (d *Dashboard) MonthlyTotals() []models.MonthlyData {
	main, _ := d.segments()
	groups := analytics.Aggregate(main, []analytics.Column{analytics.ColumnMonth}, analytics.AggregateOptions{})
	analytics.SortGroupsByKey(groups)

	out := make([]models.MonthlyData, len(groups))
	for i, g := range groups {
		out[i] = models.MonthlyData{Month: g.Key(0), Revenue: toFloat(g.Value)}
	}
	return out
}

// ClientTotals ranks clients by revenue. Only representative and month
// restrictions apply.
func (d *Dashboard) ClientTotals(f analytics.FilterSet) []models.NamedRevenue {
	main, _ := d.segments()
	rows := analytics.Apply(main, f.Only(analytics.ColumnRepresentative, analytics.ColumnMonth))

	groups := analytics.Aggregate(rows, []analytics.Column{analytics.ColumnClient}, analytics.AggregateOptions{})
	analytics.SortGroups(groups)
	return named(groups)
}

// Periods lists the months and quarters present in the upload, oldest first.
func (d *Dashboard) Periods() (months, quarters []string) {
	months = analytics.DistinctValues(d.ds.Rows, analytics.ColumnMonth)
	quarters = analytics.DistinctValues(d.ds.Rows, analytics.ColumnQuarter)
	slices.Sort(months)
	slices.Sort(quarters)
	return months, quarters
}

// BandAnalysis buckets clients and representatives by revenue for one month,
// or by average monthly revenue over one quarter. An empty period picks the
// latest one. Non-positive totals are left out.
func (d *Dashboard) BandAnalysis(unit, period string) (models.BandAnalysis, error) {
	months, quarters := d.Periods()

	var (
		col   analytics.Column
		avail []string
		avg   analytics.AverageMode
	)
	switch unit {
	case UnitMonth, "":
		unit, col, avail, avg = UnitMonth, analytics.ColumnMonth, months, analytics.AverageNone
	case UnitQuarter:
		col, avail, avg = analytics.ColumnQuarter, quarters, analytics.AverageSpanPeriods
	default:
		return models.BandAnalysis{}, fmt.Errorf("%w: unit %q", ErrInvalidArgument, unit)
	}

	if period == "" && len(avail) > 0 {
		period = avail[len(avail)-1]
	}
	if period != "" && !slices.Contains(avail, period) {
		return models.BandAnalysis{}, fmt.Errorf("%w: %s %q not in upload", ErrInvalidArgument, unit, period)
	}

	main, _ := d.segments()
	subset := analytics.Apply(main, analytics.FilterSet{col: {period}})
	opts := analytics.AggregateOptions{Average: avg}

	title := period
	if unit == UnitQuarter {
		title = period + " 평균"
	}

	return models.BandAnalysis{
		Unit:            unit,
		Period:          period,
		Title:           title,
		Clients:         bands(analytics.ClientBands, subset, analytics.ColumnClient, opts),
		Representatives: bands(analytics.RepresentativeBands, subset, analytics.ColumnRepresentative, opts),
		AvailableMonths: months,
		AvailableQtrs:   quarters,
	}, nil
}

func bands(table analytics.BucketTable, rows []models.Transaction, col analytics.Column, opts analytics.AggregateOptions) []models.BandCount {
	groups := analytics.Aggregate(rows, []analytics.Column{col}, opts)
	groups = lo.Filter(groups, func(g analytics.Group, _ int) bool {
		return g.Value.IsPositive()
	})
	analytics.SortGroups(groups)

	counts := table.Assign(groups)
	out := make([]models.BandCount, len(counts))
	for i, c := range counts {
		out[i] = models.BandCount{Label: c.Label, Count: c.Count, Members: named(c.Members)}
	}
	return out
}

// PromoSummary is the promotional line's revenue by month and representative.
func (d *Dashboard) PromoSummary(f analytics.FilterSet) models.PromoSummary {
	_, promo := d.segments()
	summary := models.PromoSummary{Product: d.promo, Rows: []models.PromoRow{}}
	if len(promo) == 0 {
		summary.Message = fmt.Sprintf("%s 매출 데이터가 없습니다.", d.promo)
		return summary
	}

	rows := analytics.Apply(promo, f.Only(analytics.ColumnRepresentative, analytics.ColumnMonth))
	if len(rows) == 0 {
		summary.Message = fmt.Sprintf("선택한 조건에 해당하는 %s 매출 데이터가 없습니다.", d.promo)
		return summary
	}

	groups := analytics.Aggregate(rows, []analytics.Column{analytics.ColumnMonth, analytics.ColumnRepresentative}, analytics.AggregateOptions{})
	analytics.SortGroupsByKey(groups)
	for _, g := range groups {
		summary.Rows = append(summary.Rows, models.PromoRow{
			Month:          g.Key(0),
			Representative: g.Key(1),
			Revenue:        toFloat(g.Value),
		})
	}
	return summary
}

// DetailTable filters the whole upload. limit caps the returned rows; Total
// always counts every match.
func (d *Dashboard) DetailTable(f analytics.FilterSet, limit int) models.DetailTable {
	rows := analytics.Apply(d.ds.Rows, f)
	table := models.DetailTable{
		Columns: d.ds.Layout.Headers(),
		Rows:    []models.DetailRow{},
		Total:   len(rows),
	}
	if len(rows) == 0 {
		table.Message = noRowsMessage
		return table
	}

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	for _, tx := range rows {
		table.Rows = append(table.Rows, models.DetailRow{
			Month:          tx.Period.MonthKey(),
			Representative: tx.Representative,
			Client:         tx.Client,
			ProductGroup:   tx.ProductGroup,
			Product:        tx.Product,
			Quantity:       tx.Quantity,
			Revenue:        toFloat(tx.Revenue),
		})
	}
	return table
}

// Trend gives one monthly series per value of dimension plus a total series.
// Product group, product and month restrictions apply.
func (d *Dashboard) Trend(dimension analytics.Column, f analytics.FilterSet) (models.Trend, error) {
	switch dimension {
	case analytics.ColumnProduct, analytics.ColumnClient, analytics.ColumnRepresentative:
	default:
		return models.Trend{}, fmt.Errorf("%w: trend dimension %q", ErrInvalidArgument, dimension)
	}

	trend := models.Trend{Dimension: string(dimension), Months: []string{}, Series: []models.TrendSeries{}}
	rows := analytics.Apply(d.ds.Rows, f.Only(analytics.ColumnProductGroup, analytics.ColumnProduct, analytics.ColumnMonth))
	if len(rows) == 0 {
		trend.Message = noRowsMessage
		return trend, nil
	}

	trend.Months = analytics.DistinctValues(rows, analytics.ColumnMonth)
	slices.Sort(trend.Months)

	// Series are ordered by overall revenue so the legend reads largest first.
	totals := analytics.Aggregate(rows, []analytics.Column{dimension}, analytics.AggregateOptions{})
	analytics.SortGroups(totals)

	cells := analytics.Aggregate(rows, []analytics.Column{dimension, analytics.ColumnMonth}, analytics.AggregateOptions{})
	byName := lo.GroupBy(cells, func(g analytics.Group) string { return g.Key(0) })

	for _, t := range totals {
		name := t.Key(0)
		trend.Series = append(trend.Series, models.TrendSeries{
			Name:   name,
			Points: points(byName[name], 1),
		})
	}

	monthly := analytics.Aggregate(rows, []analytics.Column{analytics.ColumnMonth}, analytics.AggregateOptions{})
	trend.Series = append(trend.Series, models.TrendSeries{
		Name:   TotalSeriesName,
		Points: points(monthly, 0),
	})
	return trend, nil
}

func points(groups []analytics.Group, monthKey int) []models.TrendPoint {
	out := make([]models.TrendPoint, len(groups))
	for i, g := range groups {
		out[i] = models.TrendPoint{Month: g.Key(monthKey), Revenue: toFloat(g.Value)}
	}
	slices.SortFunc(out, func(a, b models.TrendPoint) int {
		if a.Month < b.Month {
			return -1
		}
		if a.Month > b.Month {
			return 1
		}
		return 0
	})
	return out
}

// Ask answers a keyword question over the whole upload.
func (d *Dashboard) Ask(question string) models.Answer {
	return analytics.Ask(d.ds.Rows, question)
}

// FilterOptions lists the selectable values per column, in upload order
// except periods, which are sorted.
func (d *Dashboard) FilterOptions() models.FilterOptions {
	months, quarters := d.Periods()
	return models.FilterOptions{
		Representatives: analytics.DistinctValues(d.ds.Rows, analytics.ColumnRepresentative),
		Clients:         analytics.DistinctValues(d.ds.Rows, analytics.ColumnClient),
		Products:        analytics.DistinctValues(d.ds.Rows, analytics.ColumnProduct),
		ProductGroups:   analytics.DistinctValues(d.ds.Rows, analytics.ColumnProductGroup),
		Months:          months,
		Quarters:        quarters,
	}
}

// Export writes the filtered detail rows in the given format.
func (d *Dashboard) Export(w io.Writer, f analytics.FilterSet, format string) error {
	rows := analytics.Apply(d.ds.Rows, f)
	switch format {
	case FormatCSV, "":
		return dataset.WriteCSV(w, rows, d.ds.Layout)
	case FormatXLSX:
		return dataset.WriteXLSX(w, rows, d.ds.Layout)
	default:
		return fmt.Errorf("%w: export format %q", ErrInvalidArgument, format)
	}
}

// SnapshotRequest carries the widget state for a full refresh.
type SnapshotRequest struct {
	// Filters applies to every panel that has no set of its own.
	Filters        analytics.FilterSet
	ClientFilters  analytics.FilterSet
	PromoFilters   analytics.FilterSet
	DetailFilters  analytics.FilterSet
	TrendFilters   analytics.FilterSet
	Unit           string
	Period         string
	TrendDimension analytics.Column
	DetailLimit    int
}

func (r SnapshotRequest) filters(own analytics.FilterSet) analytics.FilterSet {
	if own != nil {
		return own
	}
	return r.Filters
}

// Snapshot holds every panel at once.
type Snapshot struct {
	Overview      models.Overview       `json:"overview"`
	MonthlyTotals []models.MonthlyData  `json:"monthly_totals"`
	ClientTotals  []models.NamedRevenue `json:"client_totals"`
	Bands         models.BandAnalysis   `json:"bands"`
	Promo         models.PromoSummary   `json:"promo"`
	Details       models.DetailTable    `json:"details"`
	Trend         models.Trend          `json:"trend"`
	Options       models.FilterOptions  `json:"options"`
}

// Snapshot computes all panels concurrently.
func (d *Dashboard) Snapshot(ctx context.Context, req SnapshotRequest) (*Snapshot, error) {
	if req.TrendDimension == "" {
		req.TrendDimension = analytics.ColumnProduct
	}

	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		snap.Overview = d.Overview()
		snap.MonthlyTotals = d.MonthlyTotals()
		snap.Options = d.FilterOptions()
		return ctx.Err()
	})
	g.Go(func() error {
		snap.ClientTotals = d.ClientTotals(req.filters(req.ClientFilters))
		snap.Promo = d.PromoSummary(req.filters(req.PromoFilters))
		return ctx.Err()
	})
	g.Go(func() error {
		bands, err := d.BandAnalysis(req.Unit, req.Period)
		snap.Bands = bands
		return err
	})
	g.Go(func() error {
		snap.Details = d.DetailTable(req.filters(req.DetailFilters), req.DetailLimit)
		return ctx.Err()
	})
	g.Go(func() error {
		trend, err := d.Trend(req.TrendDimension, req.filters(req.TrendFilters))
		snap.Trend = trend
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}
