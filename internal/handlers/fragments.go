package handlers

import (
	"html/template"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"pharma-dashboard/internal/analytics"
)

var fragmentFuncs = template.FuncMap{
	"won": func(v float64) string {
		return analytics.FormatWon(decimal.NewFromFloat(v))
	},
	"comma": humanize.Comma,
	"count": func(n int) string {
		return humanize.Comma(int64(n))
	},
	"hasColumn": func(cols []string, name string) bool {
		return slices.Contains(cols, name)
	},
}

var fragments = template.Must(template.New("fragments").Funcs(fragmentFuncs).Parse(`
{{define "status"}}<div id="dashboard-status" class="status {{.Kind}}">{{.Text}}</div>{{end}}

{{define "overview"}}<div id="overview-content" class="metrics">
<div class="metric"><span class="metric-label">총 매출</span><strong>{{won .TotalRevenue}} 원</strong></div>
<div class="metric"><span class="metric-label">거래처 수</span><strong>{{.Clients}}</strong></div>
<div class="metric"><span class="metric-label">품목 수</span><strong>{{.Products}}</strong></div>
</div>{{end}}

{{define "clients"}}<div id="clients-content">
{{if .}}<table class="modern-table">
<thead><tr><th>거래처명</th><th>총매출</th></tr></thead>
<tbody>
{{range .}}<tr><td>{{.Name}}</td><td>{{won .Revenue}}</td></tr>
{{end}}</tbody>
</table>{{else}}<p class="warning">선택한 조건에 해당하는 데이터가 없습니다.</p>{{end}}
</div>{{end}}

{{define "bandTable"}}{{range .}}<details class="band">
<summary>{{.Label}} <span class="badge">{{.Count}}</span></summary>
{{if .Members}}<table class="modern-table"><tbody>
{{range .Members}}<tr><td>{{.Name}}</td><td>{{won .Revenue}}</td></tr>
{{end}}</tbody></table>{{end}}
</details>
{{end}}{{end}}

{{define "bands"}}<div id="bands-content">
<h3>{{.Title}} 거래처 매출 구간 분포</h3>
{{template "bandTable" .Clients}}
<h3>{{.Title}} 담당자 매출 구간 분포</h3>
{{template "bandTable" .Representatives}}
</div>{{end}}

{{define "promo"}}<div id="promo-content">
{{if .Message}}<p class="warning">{{.Message}}</p>{{else}}<table class="modern-table">
<thead><tr><th>기준년월</th><th>담당자</th><th>총매출</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Month}}</td><td>{{.Representative}}</td><td>{{won .Revenue}}</td></tr>
{{end}}</tbody>
</table>{{end}}
</div>{{end}}

{{define "details"}}<div id="details-content">
{{if .Message}}<p class="warning">{{.Message}}</p>{{else}}<p class="muted">{{count .Total}}건{{if gt .Total (len .Rows)}} 중 {{len .Rows}}건 표시{{end}}</p>
<table class="modern-table">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{$group := hasColumn .Columns "품목군"}}{{$qty := hasColumn .Columns "총수량"}}{{range .Rows}}<tr>
<td>{{.Month}}</td><td>{{.Representative}}</td><td>{{.Client}}</td>{{if $group}}<td>{{.ProductGroup}}</td>{{end}}<td>{{.Product}}</td>{{if $qty}}<td>{{comma .Quantity}}</td>{{end}}<td>{{won .Revenue}}</td>
</tr>
{{end}}</tbody>
</table>{{end}}
</div>{{end}}

{{define "trend"}}<div id="trend-content">{{if .Message}}<p class="warning">{{.Message}}</p>{{else}}<p class="muted">{{len .Series}}개 계열 · {{len .Months}}개월</p>{{end}}</div>{{end}}

{{define "answer"}}<div id="ask-content">{{if .Text}}<p class="{{if .Matched}}success{{else}}warning{{end}}">{{.Text}}</p>{{end}}</div>{{end}}
`))

type statusMessage struct {
	Kind string
	Text string
}

func render(name string, data any) (string, error) {
	var buf strings.Builder
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
