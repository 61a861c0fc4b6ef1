package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Period is a calendar month. Month and quarter keys are derived from it and
// never stored separately.
type Period struct {
	Year  int
	Month time.Month
}

func (p Period) MonthKey() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) QuarterKey() string {
	return fmt.Sprintf("%04dQ%d", p.Year, (int(p.Month)-1)/3+1)
}

// Compact is the YYYYMM form used by uploads and exports.
func (p Period) Compact() string {
	return fmt.Sprintf("%04d%02d", p.Year, int(p.Month))
}

type Transaction struct {
	Period         Period
	Representative string
	Client         string
	Product        string
	ProductGroup   string
	Quantity       int64
	Revenue        decimal.Decimal
}

type Overview struct {
	TotalRevenue float64 `json:"total_revenue"`
	Clients      int     `json:"clients"`
	Products     int     `json:"products"`
	Rows         int     `json:"rows"`
}

type MonthlyData struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

type NamedRevenue struct {
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
}

type BandCount struct {
	Label   string         `json:"label"`
	Count   int            `json:"count"`
	Members []NamedRevenue `json:"members"`
}

type BandAnalysis struct {
	Unit            string      `json:"unit"`
	Period          string      `json:"period"`
	Title           string      `json:"title"`
	Clients         []BandCount `json:"clients"`
	Representatives []BandCount `json:"representatives"`
	AvailableMonths []string    `json:"available_months"`
	AvailableQtrs   []string    `json:"available_quarters"`
}

type PromoRow struct {
	Month          string  `json:"month"`
	Representative string  `json:"representative"`
	Revenue        float64 `json:"revenue"`
}

type PromoSummary struct {
	Product string     `json:"product"`
	Rows    []PromoRow `json:"rows"`
	Message string     `json:"message,omitempty"`
}

type DetailRow struct {
	Month          string  `json:"month"`
	Representative string  `json:"representative"`
	Client         string  `json:"client"`
	ProductGroup   string  `json:"product_group,omitempty"`
	Product        string  `json:"product"`
	Quantity       int64   `json:"quantity"`
	Revenue        float64 `json:"revenue"`
}

type DetailTable struct {
	Columns []string    `json:"columns"`
	Rows    []DetailRow `json:"rows"`
	Total   int         `json:"total"`
	Message string      `json:"message,omitempty"`
}

type TrendPoint struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

type TrendSeries struct {
	Name   string       `json:"name"`
	Points []TrendPoint `json:"points"`
}

type Trend struct {
	Dimension string        `json:"dimension"`
	Months    []string      `json:"months"`
	Series    []TrendSeries `json:"series"`
	Message   string        `json:"message,omitempty"`
}

type FilterOptions struct {
	Representatives []string `json:"representatives"`
	Clients         []string `json:"clients"`
	Products        []string `json:"products"`
	ProductGroups   []string `json:"product_groups"`
	Months          []string `json:"months"`
	Quarters        []string `json:"quarters"`
}

type Answer struct {
	Matched bool   `json:"matched"`
	Rule    string `json:"rule,omitempty"`
	Text    string `json:"text"`
}
