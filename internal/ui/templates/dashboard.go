// Package templates renders the dashboard shell. Panel contents are streamed
// in afterwards over Datastar SSE.
package templates

//go:generate templ generate

import "fmt"

const defaultTitle = "제약 매출 분석 대시보드"

type DashboardProps struct {
	Title        string
	PromoProduct string
	UploadError  string
}

func (p DashboardProps) title() string {
	if p.Title == "" {
		return defaultTitle
	}
	return p.Title
}

// initialSignals seeds the browser state. Every section owns a namespace for
// its filter widgets.
const initialSignals = `{"clients":{"rep":[],"month":[]},` +
	`"promo":{"rep":[],"month":[]},` +
	`"details":{"rep":[],"client":[],"group":[],"product":[],"month":[]},` +
	`"trend":{"dimension":"product","group":[],"product":[],"month":[]},` +
	`"unit":"month","period":"","question":"",` +
	`"options":{},"monthlyData":[],"bandsData":{},"trendData":{}}`

// filterField is one multiselect bound to a section signal.
type filterField struct {
	Label  string
	Signal string
	Option string
}

var filterWidgets = map[string]struct{ label, option string }{
	"rep":     {"담당자", "representatives"},
	"client":  {"거래처명", "clients"},
	"group":   {"품목군", "product_groups"},
	"product": {"품목명", "products"},
	"month":   {"기준년월", "months"},
}

func panelFields(namespace string, keys ...string) []filterField {
	out := make([]filterField, len(keys))
	for i, k := range keys {
		w := filterWidgets[k]
		out[i] = filterField{Label: w.label, Signal: namespace + "." + k, Option: w.option}
	}
	return out
}

var (
	clientFields = panelFields("clients", "rep", "month")
	promoFields  = panelFields("promo", "rep", "month")
	detailFields = panelFields("details", "rep", "group", "client", "product", "month")
	trendFields  = panelFields("trend", "group", "product", "month")
)

func sseGet(path string) string {
	return "@get('" + path + "')"
}

func fillOptions(option string) string {
	return "window.fillOptions && window.fillOptions(el, $options." + option + ")"
}

// downloadHref keeps the export links in step with the detail filters.
func downloadHref(format string) string {
	return fmt.Sprintf("'/download?format=%s&' + window.filterQuery($details.rep, $details.client, $details.group, $details.product, $details.month)", format)
}
