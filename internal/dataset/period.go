package dataset

import (
	"fmt"
	"strings"
	"time"

	"pharma-dashboard/internal/models"
)

var periodLayouts = []string{
	"200601",
	"2006-01",
	"2006/01",
	"2006.01",
	"2006-01-02",
	"2006/01/02",
}

// ParsePeriod reads a year-month. Spreadsheet exports sometimes write 202403
// as 202403.0, so a trailing ".0" is dropped first.
func ParsePeriod(s string) (models.Period, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	if s == "" {
		return models.Period{}, fmt.Errorf("empty period")
	}

	for _, layout := range periodLayouts {
		if len(s) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return models.Period{Year: t.Year(), Month: t.Month()}, nil
		}
	}
	return models.Period{}, fmt.Errorf("period %q is not a valid year-month", s)
}
