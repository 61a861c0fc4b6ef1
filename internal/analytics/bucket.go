package analytics

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Bucket is a right-closed band ending at Upper. The last bucket of a table
// has Open set and no upper bound.
type Bucket struct {
	Upper decimal.Decimal
	Open  bool
	Label string
}

// BucketTable partitions [0, +inf) into ordered, labeled bands.
type BucketTable struct {
	buckets []Bucket
}

var ErrInvalidBuckets = errors.New("invalid bucket table")

// NewBucketTable checks that bounds strictly increase and that only the last
// bucket is open.
func NewBucketTable(buckets ...Bucket) (BucketTable, error) {
	if len(buckets) == 0 {
		return BucketTable{}, fmt.Errorf("%w: no buckets", ErrInvalidBuckets)
	}
	for i, b := range buckets {
		last := i == len(buckets)-1
		if b.Open != last {
			return BucketTable{}, fmt.Errorf("%w: only the last bucket may be open (bucket %q)", ErrInvalidBuckets, b.Label)
		}
		if b.Open {
			continue
		}
		if b.Upper.IsNegative() {
			return BucketTable{}, fmt.Errorf("%w: negative bound for %q", ErrInvalidBuckets, b.Label)
		}
		if i > 0 && !b.Upper.GreaterThan(buckets[i-1].Upper) {
			return BucketTable{}, fmt.Errorf("%w: bound for %q does not increase", ErrInvalidBuckets, b.Label)
		}
	}
	return BucketTable{buckets: append([]Bucket(nil), buckets...)}, nil
}

// MustBucketTable is NewBucketTable for package-level tables.
func MustBucketTable(buckets ...Bucket) BucketTable {
	t, err := NewBucketTable(buckets...)
	if err != nil {
		panic(err)
	}
	return t
}

// UpTo builds a closed bucket.
func UpTo(upper int64, label string) Bucket {
	return Bucket{Upper: decimal.NewFromInt(upper), Label: label}
}

// Above builds the final open bucket.
func Above(label string) Bucket {
	return Bucket{Open: true, Label: label}
}

func (t BucketTable) Labels() []string {
	labels := make([]string, len(t.buckets))
	for i, b := range t.buckets {
		labels[i] = b.Label
	}
	return labels
}

// Bounds returns the lower (exclusive, except 0 for the first bucket) and upper
// bound of bucket i. The upper bound of the open bucket is reported as open.
func (t BucketTable) Bounds(i int) (lower decimal.Decimal, upper decimal.Decimal, open bool) {
	if i > 0 {
		lower = t.buckets[i-1].Upper
	}
	return lower, t.buckets[i].Upper, t.buckets[i].Open
}

// Index returns the position of the first bucket whose upper bound is >= v.
// Negative values belong to no bucket.
func (t BucketTable) Index(v decimal.Decimal) (int, bool) {
	if v.IsNegative() || len(t.buckets) == 0 {
		return 0, false
	}
	for i, b := range t.buckets {
		if b.Open || v.LessThanOrEqual(b.Upper) {
			return i, true
		}
	}
	return 0, false
}

// Label returns the label of the bucket holding v.
func (t BucketTable) Label(v decimal.Decimal) (string, bool) {
	i, ok := t.Index(v)
	if !ok {
		return "", false
	}
	return t.buckets[i].Label, true
}

// BucketCount is the membership of one bucket.
type BucketCount struct {
	Label   string
	Count   int
	Members []Group
}

// Count tallies values per bucket in declared order, keeping empty buckets.
// Values outside the table are ignored.
func (t BucketTable) Count(values []decimal.Decimal) []BucketCount {
	out := t.empty()
	for _, v := range values {
		if i, ok := t.Index(v); ok {
			out[i].Count++
		}
	}
	return out
}

// Assign places each group in its bucket by value. Members keep the order of
// groups.
func (t BucketTable) Assign(groups []Group) []BucketCount {
	out := t.empty()
	for _, g := range groups {
		if i, ok := t.Index(g.Value); ok {
			out[i].Count++
			out[i].Members = append(out[i].Members, g)
		}
	}
	return out
}

func (t BucketTable) empty() []BucketCount {
	out := make([]BucketCount, len(t.buckets))
	for i, b := range t.buckets {
		out[i] = BucketCount{Label: b.Label}
	}
	return out
}

// Monthly revenue bands used by the dashboard, in won.
var (
	ClientBands = MustBucketTable(
		UpTo(300_000, "0~30만원"),
		UpTo(1_000_000, "30~100만원"),
		UpTo(3_000_000, "100~300만원"),
		UpTo(5_000_000, "300~500만원"),
		UpTo(10_000_000, "500~1000만원"),
		UpTo(20_000_000, "1000~2000만원"),
		UpTo(30_000_000, "2000~3000만원"),
		Above("3000만원 이상"),
	)

	RepresentativeBands = MustBucketTable(
		UpTo(80_000_000, "~0.8억"),
		UpTo(110_000_000, "0.8~1.1억"),
		UpTo(140_000_000, "1.1~1.4억"),
		UpTo(170_000_000, "1.4~1.7억"),
		UpTo(200_000_000, "1.7~2.0억"),
		Above("2.0억 이상"),
	)
)
