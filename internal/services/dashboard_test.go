package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pharma-dashboard/internal/analytics"
	"pharma-dashboard/internal/dataset"
	"pharma-dashboard/internal/models"
)

func sampleDashboard(t testing.TB) *Dashboard {
	t.Helper()
	a := newTestAnalytics(t)
	loadSample(t, a, "s")
	d, _ := a.Dashboard("s")
	return d
}

func TestDashboard_Overview(t *testing.T) {
	got := sampleDashboard(t).Overview()
	want := models.Overview{TotalRevenue: 93_200_000, Clients: 3, Products: 3, Rows: 5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Overview() (-want +got):\n%s", diff)
	}
}

func TestDashboard_MonthlyTotals(t *testing.T) {
	got := sampleDashboard(t).MonthlyTotals()
	want := []models.MonthlyData{
		{Month: "2024-01", Revenue: 1_500_000},
		{Month: "2024-02", Revenue: 1_500_000},
		{Month: "2024-03", Revenue: 90_200_000},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MonthlyTotals() (-want +got):\n%s", diff)
	}
}

func TestDashboard_ClientTotals(t *testing.T) {
	d := sampleDashboard(t)

	tests := []struct {
		name string
		f    analytics.FilterSet
		want []models.NamedRevenue
	}{
		{
			name: "all",
			want: []models.NamedRevenue{
				{Name: "부산병원", Revenue: 90_500_000},
				{Name: "서울약국", Revenue: 2_500_000},
				{Name: "광주약국", Revenue: 200_000},
			},
		},
		{
			name: "representative",
			f:    analytics.FilterSet{analytics.ColumnRepresentative: {"김철수"}},
			want: []models.NamedRevenue{
				{Name: "서울약국", Revenue: 2_500_000},
				{Name: "광주약국", Revenue: 200_000},
			},
		},
		{
			name: "product filter ignored",
			f:    analytics.FilterSet{analytics.ColumnProduct: {"로수젯정"}},
			want: []models.NamedRevenue{
				{Name: "부산병원", Revenue: 90_500_000},
				{Name: "서울약국", Revenue: 2_500_000},
				{Name: "광주약국", Revenue: 200_000},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, d.ClientTotals(tt.f)); diff != "" {
				t.Errorf("ClientTotals() (-want +got):\n%s", diff)
			}
		})
	}
}

func bandCounts(bands []models.BandCount) []int {
	out := make([]int, len(bands))
	for i, b := range bands {
		out[i] = b.Count
	}
	return out
}

func TestDashboard_BandAnalysis(t *testing.T) {
	d := sampleDashboard(t)

	tests := []struct {
		name       string
		unit       string
		period     string
		wantPeriod string
		wantTitle  string
		clients    []int
		reps       []int
	}{
		{
			name:       "latest month",
			wantPeriod: "2024-03",
			wantTitle:  "2024-03",
			clients:    []int{1, 0, 0, 0, 0, 0, 0, 1},
			reps:       []int{1, 1, 0, 0, 0, 0},
		},
		{
			name:       "chosen month",
			unit:       UnitMonth,
			period:     "2024-01",
			wantPeriod: "2024-01",
			wantTitle:  "2024-01",
			clients:    []int{0, 2, 0, 0, 0, 0, 0, 0},
			reps:       []int{2, 0, 0, 0, 0, 0},
		},
		{
			name:       "quarter average",
			unit:       UnitQuarter,
			wantPeriod: "2024Q1",
			wantTitle:  "2024Q1 평균",
			clients:    []int{1, 1, 0, 0, 0, 0, 0, 1},
			reps:       []int{3, 0, 0, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.BandAnalysis(tt.unit, tt.period)
			if err != nil {
				t.Fatal(err)
			}
			if got.Period != tt.wantPeriod || got.Title != tt.wantTitle {
				t.Errorf("period %q title %q", got.Period, got.Title)
			}
			if diff := cmp.Diff(tt.clients, bandCounts(got.Clients)); diff != "" {
				t.Errorf("client bands (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.reps, bandCounts(got.Representatives)); diff != "" {
				t.Errorf("representative bands (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDashboard_BandAnalysisInvalid(t *testing.T) {
	d := sampleDashboard(t)
	for _, tt := range []struct{ unit, period string }{
		{"week", ""},
		{UnitMonth, "2023-12"},
		{UnitQuarter, "2024-01"},
	} {
		if _, err := d.BandAnalysis(tt.unit, tt.period); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("BandAnalysis(%q, %q) err = %v", tt.unit, tt.period, err)
		}
	}
}

func TestDashboard_PromoSummary(t *testing.T) {
	d := sampleDashboard(t)

	got := d.PromoSummary(nil)
	want := models.PromoSummary{
		Product: "한미플루",
		Rows: []models.PromoRow{
			{Month: "2024-02", Representative: "이영희", Revenue: 300_000},
			{Month: "2024-03", Representative: "이영희", Revenue: 400_000},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PromoSummary() (-want +got):\n%s", diff)
	}

	filtered := d.PromoSummary(analytics.FilterSet{analytics.ColumnRepresentative: {"김철수"}})
	if len(filtered.Rows) != 0 || filtered.Message != "선택한 조건에 해당하는 한미플루 매출 데이터가 없습니다." {
		t.Errorf("filtered = %+v", filtered)
	}

	none := NewDashboard(&dataset.Dataset{Rows: d.Dataset().Rows[:1]}, "한미플루").PromoSummary(nil)
	if none.Message != "한미플루 매출 데이터가 없습니다." {
		t.Errorf("message = %q", none.Message)
	}
}

func TestDashboard_DetailTable(t *testing.T) {
	d := sampleDashboard(t)

	table := d.DetailTable(nil, 3)
	if table.Total != 7 || len(table.Rows) != 3 {
		t.Errorf("total %d rows %d, want 7 and 3", table.Total, len(table.Rows))
	}
	if len(table.Columns) != 7 {
		t.Errorf("columns = %v", table.Columns)
	}

	all := d.DetailTable(analytics.FilterSet{analytics.ColumnProductGroup: {"백신"}}, 0)
	if all.Total != 2 || len(all.Rows) != 2 || all.Rows[0].Product != "한미플루주" {
		t.Errorf("vaccine rows = %+v", all)
	}

	empty := d.DetailTable(analytics.FilterSet{analytics.ColumnProduct: {"없음"}}, 10)
	if empty.Total != 0 || empty.Rows == nil || empty.Message == "" {
		t.Errorf("empty = %+v", empty)
	}
}

func TestDashboard_Trend(t *testing.T) {
	d := sampleDashboard(t)

	trend, err := d.Trend(analytics.ColumnProduct, analytics.FilterSet{analytics.ColumnRepresentative: {"김철수"}})
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"2024-01", "2024-02", "2024-03"}, trend.Months); diff != "" {
		t.Errorf("months (-want +got):\n%s", diff)
	}

	var names []string
	for _, s := range trend.Series {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{"로수젯정", "아모잘탄정", "한미플루주", "아모잘탄플러스", TotalSeriesName}, names); diff != "" {
		t.Errorf("series order (-want +got):\n%s", diff)
	}

	wantFirst := []models.TrendPoint{{Month: "2024-01", Revenue: 500_000}, {Month: "2024-03", Revenue: 90_000_000}}
	if diff := cmp.Diff(wantFirst, trend.Series[0].Points); diff != "" {
		t.Errorf("first series (-want +got):\n%s", diff)
	}

	wantTotal := []models.TrendPoint{
		{Month: "2024-01", Revenue: 1_500_000},
		{Month: "2024-02", Revenue: 1_800_000},
		{Month: "2024-03", Revenue: 90_600_000},
	}
	if diff := cmp.Diff(wantTotal, trend.Series[len(trend.Series)-1].Points); diff != "" {
		t.Errorf("total series (-want +got):\n%s", diff)
	}
}

func TestDashboard_TrendFilteredAndInvalid(t *testing.T) {
	d := sampleDashboard(t)

	trend, err := d.Trend(analytics.ColumnClient, analytics.FilterSet{analytics.ColumnProductGroup: {"백신"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(trend.Series) != 2 || trend.Series[0].Name != "대구의원" {
		t.Errorf("series = %+v", trend.Series)
	}

	empty, err := d.Trend(analytics.ColumnProduct, analytics.FilterSet{analytics.ColumnMonth: {"2030-01"}})
	if err != nil || empty.Message == "" || len(empty.Series) != 0 {
		t.Errorf("empty trend = %+v, %v", empty, err)
	}

	if _, err := d.Trend(analytics.ColumnMonth, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestDashboard_FilterOptions(t *testing.T) {
	got := sampleDashboard(t).FilterOptions()
	want := models.FilterOptions{
		Representatives: []string{"김철수", "이영희", "박민수"},
		Clients:         []string{"서울약국", "부산병원", "대구의원", "광주약국"},
		Products:        []string{"아모잘탄정", "로수젯정", "한미플루주", "아모잘탄플러스"},
		ProductGroups:   []string{"순환기", "고지혈", "백신"},
		Months:          []string{"2024-01", "2024-02", "2024-03"},
		Quarters:        []string{"2024Q1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FilterOptions() (-want +got):\n%s", diff)
	}
}

func TestDashboard_Ask(t *testing.T) {
	got := sampleDashboard(t).Ask("아모잘탄 매출은 얼마야?")
	if got.Text != "아모잘탄 매출은 총 2,700,000원입니다." {
		t.Errorf("Ask() = %+v", got)
	}
}

func TestDashboard_Export(t *testing.T) {
	d := sampleDashboard(t)

	var buf bytes.Buffer
	if err := d.Export(&buf, analytics.FilterSet{analytics.ColumnRepresentative: {"박민수"}}, FormatCSV); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(buf.String(), "\ufeff")), "\n")
	want := []string{
		"기준년월,담당자,거래처명,품목군,품목명,총수량,총매출",
		"202403,박민수,부산병원,고지혈,로수젯정,20,90000000",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("export (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := d.Export(&buf, nil, FormatXLSX); err != nil || buf.Len() == 0 {
		t.Errorf("xlsx export: %v (%d bytes)", err, buf.Len())
	}

	if err := d.Export(&buf, nil, "pdf"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestDashboard_Snapshot(t *testing.T) {
	d := sampleDashboard(t)

	snap, err := d.Snapshot(context.Background(), SnapshotRequest{
		Filters:     analytics.FilterSet{analytics.ColumnMonth: {"2024-03"}},
		Unit:        UnitQuarter,
		DetailLimit: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Overview.Rows != 5 || snap.Bands.Period != "2024Q1" || snap.Details.Total != 3 || len(snap.Details.Rows) != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Trend.Dimension != string(analytics.ColumnProduct) {
		t.Errorf("default trend dimension = %q", snap.Trend.Dimension)
	}

	if _, err := d.Snapshot(context.Background(), SnapshotRequest{Unit: "week"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestDashboard_SnapshotPanelFilters(t *testing.T) {
	d := sampleDashboard(t)

	snap, err := d.Snapshot(context.Background(), SnapshotRequest{
		Filters:       analytics.FilterSet{analytics.ColumnMonth: {"2024-03"}},
		ClientFilters: analytics.FilterSet{},
		DetailFilters: analytics.FilterSet{analytics.ColumnRepresentative: {"김철수"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(snap.ClientTotals) != 3 {
		t.Errorf("client totals narrowed by another panel's filter: %+v", snap.ClientTotals)
	}
	if snap.Details.Total != 3 {
		t.Errorf("detail rows = %d, want 3", snap.Details.Total)
	}
	if len(snap.Promo.Rows) != 1 || snap.Promo.Rows[0].Month != "2024-03" {
		t.Errorf("promo should fall back to the shared filters: %+v", snap.Promo.Rows)
	}
}

func BenchmarkSnapshot(b *testing.B) {
	d := sampleDashboard(b)
	req := SnapshotRequest{DetailLimit: 100}
	for b.Loop() {
		if _, err := d.Snapshot(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}
