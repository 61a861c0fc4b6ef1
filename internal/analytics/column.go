// Package analytics holds the pure filter, aggregate and bucket functions
// behind the dashboard. Nothing here keeps state between calls.
package analytics

import (
	"fmt"

	"pharma-dashboard/internal/models"
)

// Column names a categorical attribute of a transaction.
type Column string

const (
	ColumnRepresentative Column = "rep"
	ColumnClient         Column = "client"
	ColumnProduct        Column = "product"
	ColumnProductGroup   Column = "group"
	ColumnMonth          Column = "month"
	ColumnQuarter        Column = "quarter"
)

// Columns lists every filterable column in display order.
var Columns = []Column{
	ColumnRepresentative,
	ColumnClient,
	ColumnProductGroup,
	ColumnProduct,
	ColumnMonth,
	ColumnQuarter,
}

// ParseColumn accepts the short query-parameter names.
func ParseColumn(s string) (Column, error) {
	switch Column(s) {
	case ColumnRepresentative, ColumnClient, ColumnProduct, ColumnProductGroup, ColumnMonth, ColumnQuarter:
		return Column(s), nil
	}
	return "", fmt.Errorf("unknown column %q", s)
}

// Value returns the column's value for tx. Month and quarter come from the period.
func Value(tx models.Transaction, c Column) string {
	switch c {
	case ColumnRepresentative:
		return tx.Representative
	case ColumnClient:
		return tx.Client
	case ColumnProduct:
		return tx.Product
	case ColumnProductGroup:
		return tx.ProductGroup
	case ColumnMonth:
		return tx.Period.MonthKey()
	case ColumnQuarter:
		return tx.Period.QuarterKey()
	default:
		return ""
	}
}
