package analytics

import (
	"net/url"
	"strings"

	"github.com/samber/lo"

	"pharma-dashboard/internal/models"
)

// FilterSet restricts rows by column. Values within a column are OR-combined,
// columns are AND-combined. A missing column or an empty value list means no
// restriction on that column.
type FilterSet map[Column][]string

// IsEmpty reports whether the set restricts anything.
func (f FilterSet) IsEmpty() bool {
	for _, vals := range f {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// With returns a copy of f with column c restricted to vals.
func (f FilterSet) With(c Column, vals ...string) FilterSet {
	out := make(FilterSet, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[c] = vals
	return out
}

// Only returns a copy of f keeping just the given columns.
func (f FilterSet) Only(cols ...Column) FilterSet {
	out := make(FilterSet, len(cols))
	for _, c := range cols {
		if vals, ok := f[c]; ok {
			out[c] = vals
		}
	}
	return out
}

// Apply returns the rows matching every restriction in set. When nothing is
// restricted rows is returned as is.
func Apply(rows []models.Transaction, set FilterSet) []models.Transaction {
	if set.IsEmpty() {
		return rows
	}

	allowed := make(map[Column]map[string]struct{}, len(set))
	for col, vals := range set {
		if len(vals) == 0 {
			continue
		}
		allowed[col] = lo.SliceToMap(vals, func(v string) (string, struct{}) {
			return v, struct{}{}
		})
	}

	return lo.Filter(rows, func(tx models.Transaction, _ int) bool {
		for col, set := range allowed {
			if _, ok := set[Value(tx, col)]; !ok {
				return false
			}
		}
		return true
	})
}

// ParseFilterSet reads restrictions from query parameters named after the
// columns. A list is given by repeating the parameter; values are taken
// whole, so names containing commas survive. Unknown parameters are ignored.
func ParseFilterSet(q url.Values) FilterSet {
	set := make(FilterSet)
	for _, col := range Columns {
		raw, ok := q[string(col)]
		if !ok {
			continue
		}
		var vals []string
		for _, v := range raw {
			if v = strings.TrimSpace(v); v != "" {
				vals = append(vals, v)
			}
		}
		if len(vals) > 0 {
			set[col] = lo.Uniq(vals)
		}
	}
	return set
}

// Encode writes f as query parameters, one per value. ParseFilterSet reads
// the result back to an equal set.
func (f FilterSet) Encode() url.Values {
	q := url.Values{}
	for _, col := range Columns {
		for _, v := range f[col] {
			q.Add(string(col), v)
		}
	}
	return q
}
