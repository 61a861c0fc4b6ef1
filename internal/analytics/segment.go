package analytics

import (
	"strings"

	"pharma-dashboard/internal/models"
)

// Segment splits rows into those whose product name does not contain marker
// and those that do. The two results are disjoint and together cover rows.
func Segment(rows []models.Transaction, marker string) (rest, matched []models.Transaction) {
	if marker == "" {
		return rows, nil
	}
	rest = make([]models.Transaction, 0, len(rows))
	for _, tx := range rows {
		if strings.Contains(tx.Product, marker) {
			matched = append(matched, tx)
			continue
		}
		rest = append(rest, tx)
	}
	return rest, matched
}

// ProductContains keeps rows whose product name contains substr.
func ProductContains(rows []models.Transaction, substr string) []models.Transaction {
	_, matched := Segment(rows, substr)
	return matched
}
