package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"pharma-dashboard/internal/models"
)

const (
	UnsupportedReply = "죄송합니다. 이 질문은 아직 지원되지 않아요."
	NoDataReply      = "해당 조건에 맞는 매출 데이터가 없습니다."
)

// rule answers a question when every term appears in it.
type rule struct {
	name   string
	terms  []string
	answer func(rows []models.Transaction) (string, bool)
}

func (r rule) matches(q string) bool {
	for _, t := range r.terms {
		if !strings.Contains(q, t) {
			return false
		}
	}
	return true
}

// rules are tried in order; the first match wins.
var rules = []rule{
	{
		name:  "top_client_march",
		terms: []string{"3월", "거래처", "높"},
		answer: func(rows []models.Transaction) (string, bool) {
			march := make([]models.Transaction, 0, len(rows))
			for _, tx := range rows {
				if tx.Period.Month == time.March {
					march = append(march, tx)
				}
			}
			top, ok := TopGroup(Aggregate(march, []Column{ColumnClient}, AggregateOptions{}))
			if !ok {
				return "", false
			}
			return fmt.Sprintf("3월 매출이 가장 높은 거래처는 %s 입니다.", top.Key(0)), true
		},
	},
	{
		name:  "amosartan_revenue",
		terms: []string{"아모잘탄", "매출"},
		answer: func(rows []models.Transaction) (string, bool) {
			amount := Total(ProductContains(rows, "아모잘탄"), MeasureRevenue)
			return fmt.Sprintf("아모잘탄 매출은 총 %s원입니다.", FormatWon(amount)), true
		},
	},
	{
		name:  "top_client",
		terms: []string{"거래처", "가장많이"},
		answer: func(rows []models.Transaction) (string, bool) {
			top, ok := TopGroup(Aggregate(rows, []Column{ColumnClient}, AggregateOptions{}))
			if !ok {
				return "", false
			}
			return fmt.Sprintf("가장 많이 판매된 거래처는 %s 입니다.", top.Key(0)), true
		},
	},
	{
		name:  "top_product",
		terms: []string{"품목", "가장많이"},
		answer: func(rows []models.Transaction) (string, bool) {
			top, ok := TopGroup(Aggregate(rows, []Column{ColumnProduct}, AggregateOptions{}))
			if !ok {
				return "", false
			}
			return fmt.Sprintf("가장 많이 팔린 품목은 %s 입니다.", top.Key(0)), true
		},
	},
	{
		name:  "total_revenue",
		terms: []string{"총매출", "합계"},
		answer: func(rows []models.Transaction) (string, bool) {
			return fmt.Sprintf("전체 총매출은 %s원입니다.", FormatWon(Total(rows, MeasureRevenue))), true
		},
	},
	{
		name:  "top_representative",
		terms: []string{"담당자", "매출"},
		answer: func(rows []models.Transaction) (string, bool) {
			top, ok := TopGroup(Aggregate(rows, []Column{ColumnRepresentative}, AggregateOptions{}))
			if !ok {
				return "", false
			}
			return fmt.Sprintf("가장 높은 매출을 기록한 담당자는 %s이며, 총 %s원입니다.", top.Key(0), FormatWon(top.Value)), true
		},
	},
}

// Ask answers a free-text question over rows with the first rule whose terms
// all appear in it, ignoring whitespace. Unknown questions get UnsupportedReply.
func Ask(rows []models.Transaction, question string) models.Answer {
	q := strings.Join(strings.Fields(question), "")
	if q == "" {
		return models.Answer{Text: UnsupportedReply}
	}

	for _, r := range rules {
		if !r.matches(q) {
			continue
		}
		text, ok := r.answer(rows)
		if !ok {
			text = NoDataReply
		}
		return models.Answer{Matched: true, Rule: r.name, Text: text}
	}
	return models.Answer{Text: UnsupportedReply}
}

// FormatWon renders an amount as a whole number with thousands separators.
// Halves round to even.
func FormatWon(d decimal.Decimal) string {
	return humanize.Comma(d.RoundBank(0).IntPart())
}
