package analytics

import (
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"pharma-dashboard/internal/models"
)

type Measure int

const (
	MeasureRevenue Measure = iota
	MeasureQuantity
)

func (m Measure) of(tx models.Transaction) decimal.Decimal {
	if m == MeasureQuantity {
		return decimal.NewFromInt(tx.Quantity)
	}
	return tx.Revenue
}

// AverageMode selects how a group's sum is turned into a per-month figure.
type AverageMode int

const (
	// AverageNone keeps the plain sum.
	AverageNone AverageMode = iota
	// AverageGroupPeriods divides by the distinct months in the group's own rows.
	AverageGroupPeriods
	// AverageSpanPeriods divides by the distinct months in the whole input.
	AverageSpanPeriods
)

type AggregateOptions struct {
	Measure Measure
	Average AverageMode
}

// Group is one distinct combination of key values.
type Group struct {
	Keys    []string
	Value   decimal.Decimal
	Rows    int
	Periods int
}

// Key returns the i-th key value.
func (g Group) Key(i int) string {
	if i < 0 || i >= len(g.Keys) {
		return ""
	}
	return g.Keys[i]
}

// Aggregate groups rows by keys and sums the measure per group. The result is
// in no particular order. With an averaging mode, groups whose divisor is zero
// are left out.
func Aggregate(rows []models.Transaction, keys []Column, opts AggregateOptions) []Group {
	type acc struct {
		keys   []string
		sum    decimal.Decimal
		rows   int
		months map[string]struct{}
	}

	accs := make(map[string]*acc)
	span := make(map[string]struct{})

	for _, tx := range rows {
		vals := make([]string, len(keys))
		for i, k := range keys {
			vals[i] = Value(tx, k)
		}
		id := strings.Join(vals, "\x00")

		a, ok := accs[id]
		if !ok {
			a = &acc{keys: vals, months: make(map[string]struct{})}
			accs[id] = a
		}
		a.sum = a.sum.Add(opts.Measure.of(tx))
		a.rows++

		month := tx.Period.MonthKey()
		a.months[month] = struct{}{}
		span[month] = struct{}{}
	}

	groups := make([]Group, 0, len(accs))
	for _, a := range accs {
		g := Group{Keys: a.keys, Value: a.sum, Rows: a.rows, Periods: len(a.months)}

		var divisor int
		switch opts.Average {
		case AverageGroupPeriods:
			divisor = len(a.months)
		case AverageSpanPeriods:
			divisor = len(span)
		default:
			groups = append(groups, g)
			continue
		}
		if divisor == 0 {
			continue
		}
		g.Value = g.Value.Div(decimal.NewFromInt(int64(divisor)))
		groups = append(groups, g)
	}
	return groups
}

// SortGroups orders groups by value descending, then by keys ascending.
func SortGroups(groups []Group) {
	slices.SortFunc(groups, func(a, b Group) int {
		if c := b.Value.Cmp(a.Value); c != 0 {
			return c
		}
		return slices.Compare(a.Keys, b.Keys)
	})
}

// SortGroupsByKey orders groups by keys ascending.
func SortGroupsByKey(groups []Group) {
	slices.SortFunc(groups, func(a, b Group) int {
		return slices.Compare(a.Keys, b.Keys)
	})
}

// TopGroup returns the group with the largest value. Ties go to the smallest
// keys so the answer does not depend on map order.
func TopGroup(groups []Group) (Group, bool) {
	if len(groups) == 0 {
		return Group{}, false
	}
	best := groups[0]
	for _, g := range groups[1:] {
		c := g.Value.Cmp(best.Value)
		if c > 0 || (c == 0 && slices.Compare(g.Keys, best.Keys) < 0) {
			best = g
		}
	}
	return best, true
}

// Total sums the measure over all rows.
func Total(rows []models.Transaction, m Measure) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range rows {
		sum = sum.Add(m.of(tx))
	}
	return sum
}

// DistinctValues returns the column's values in first-seen order, skipping blanks.
func DistinctValues(rows []models.Transaction, c Column) []string {
	vals := lo.Map(rows, func(tx models.Transaction, _ int) string {
		return Value(tx, c)
	})
	return lo.Compact(lo.Uniq(vals))
}

// DistinctCount counts the non-blank distinct values of a column.
func DistinctCount(rows []models.Transaction, c Column) int {
	return len(DistinctValues(rows, c))
}
