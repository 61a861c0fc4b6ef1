package dataset

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"pharma-dashboard/internal/models"
)

var quiet = Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

const fullCSV = "기준년월,담당자,거래처명,품목군,품목명,총수량,총매출\n" +
	"202401,김철수,서울약국,순환기,아모잘탄정,\"1,200\",\"1,000,000\"\n" +
	"2024-02,이영희,부산병원,순환기,로수젯정,30,500000.5\n" +
	"\n" +
	"202403.0,박민수,대구의원,백신,한미플루주,,300000\n"

func parse(t *testing.T, input string, opts Options) (*Dataset, error) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quiet.Logger
	}
	return Parse(context.Background(), strings.NewReader(input), "test.csv", opts)
}

func TestParse(t *testing.T) {
	ds, err := parse(t, fullCSV, Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []models.Transaction{
		{
			Period:         models.Period{Year: 2024, Month: time.January},
			Representative: "김철수",
			Client:         "서울약국",
			ProductGroup:   "순환기",
			Product:        "아모잘탄정",
			Quantity:       1200,
			Revenue:        decimal.NewFromInt(1_000_000),
		},
		{
			Period:         models.Period{Year: 2024, Month: time.February},
			Representative: "이영희",
			Client:         "부산병원",
			ProductGroup:   "순환기",
			Product:        "로수젯정",
			Quantity:       30,
			Revenue:        decimal.RequireFromString("500000.5"),
		},
		{
			Period:         models.Period{Year: 2024, Month: time.March},
			Representative: "박민수",
			Client:         "대구의원",
			ProductGroup:   "백신",
			Product:        "한미플루주",
			Revenue:        decimal.NewFromInt(300_000),
		},
	}

	opt := cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
	if diff := cmp.Diff(want, ds.Rows, opt); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if !ds.Layout.ProductGroup || !ds.Layout.Quantity {
		t.Errorf("layout = %+v, want both optional columns", ds.Layout)
	}
	if ds.Name != "test.csv" {
		t.Errorf("name = %q", ds.Name)
	}
}

func TestParse_MinimalColumnsAndBOM(t *testing.T) {
	input := "\ufeff총매출,품목명,거래처명,담당자,기준년월,비고\n" +
		"1000,아모잘탄정,서울약국,김철수,202405,메모\n"

	ds, err := parse(t, input, Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ds.Layout != (Layout{}) {
		t.Errorf("layout = %+v, want no optional columns", ds.Layout)
	}
	if got := ds.Rows[0]; got.Client != "서울약국" || got.Period.MonthKey() != "2024-05" {
		t.Errorf("row = %+v", got)
	}
	if diff := cmp.Diff([]string{HeaderPeriod, HeaderRepresentative, HeaderClient, HeaderProduct, HeaderRevenue}, ds.Layout.Headers()); diff != "" {
		t.Errorf("Headers() (-want +got):\n%s", diff)
	}
}

func TestParse_Batches(t *testing.T) {
	var b strings.Builder
	b.WriteString("기준년월,담당자,거래처명,품목명,총매출\n")
	for i := range 25 {
		b.WriteString("202401,김철수,서울약국,P,")
		b.WriteString(decimal.NewFromInt(int64(i)).String())
		b.WriteString("\n")
	}

	ds, err := parse(t, b.String(), Options{Workers: 3, BatchSize: 4})
	if err != nil {
		t.Fatal(err)
	}
	for i, tx := range ds.Rows {
		if tx.Revenue.IntPart() != int64(i) {
			t.Fatalf("row %d has revenue %s, order lost", i, tx.Revenue)
		}
	}
}

func TestParse_Empty(t *testing.T) {
	for name, input := range map[string]string{
		"no bytes":    "",
		"header only": "기준년월,담당자,거래처명,품목명,총매출\n",
		"blank rows":  "기준년월,담당자,거래처명,품목명,총매출\n,,,,\n\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := parse(t, input, Options{}); !errors.Is(err, ErrEmpty) {
				t.Errorf("err = %v, want ErrEmpty", err)
			}
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	const header = "기준년월,담당자,거래처명,품목명,총매출\n"

	tests := []struct {
		name     string
		input    string
		wantLine int
		wantCol  string
	}{
		{"bad period", header + "202401,a,b,c,1\n2024-13,a,b,c,1\n", 3, HeaderPeriod},
		{"text revenue", header + "202401,a,b,c,많음\n", 2, HeaderRevenue},
		{"empty revenue", header + "202401,a,b,c,\n", 2, HeaderRevenue},
		{"field count", header + "202401,a,b,c\n", 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.input, Options{})
			var rowErr *RowError
			if !errors.As(err, &rowErr) {
				t.Fatalf("err = %v, want *RowError", err)
			}
			if rowErr.Line != tt.wantLine || rowErr.Column != tt.wantCol {
				t.Errorf("line %d column %q, want line %d column %q", rowErr.Line, rowErr.Column, tt.wantLine, tt.wantCol)
			}
			if !IsValidation(err) {
				t.Error("IsValidation() = false")
			}
		})
	}
}

func TestParse_FractionalQuantity(t *testing.T) {
	input := "기준년월,담당자,거래처명,품목명,총수량,총매출\n202401,a,b,c,1.5,100\n"
	_, err := parse(t, input, Options{})
	var rowErr *RowError
	if !errors.As(err, &rowErr) || rowErr.Column != HeaderQuantity {
		t.Errorf("err = %v, want quantity RowError", err)
	}
}

func TestParse_MissingColumns(t *testing.T) {
	_, err := parse(t, "기준년월,담당자,품목명\n202401,a,c\n", Options{})

	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want *MissingColumnsError", err)
	}
	if diff := cmp.Diff([]string{HeaderClient, HeaderRevenue}, missing.Columns); diff != "" {
		t.Errorf("missing (-want +got):\n%s", diff)
	}
	if !IsValidation(err) {
		t.Error("IsValidation() = false")
	}
}

func TestParse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Parse(ctx, strings.NewReader(fullCSV), "x.csv", quiet)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if IsValidation(err) {
		t.Error("cancellation reported as validation error")
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"202403", "2024-03", false},
		{" 202403.0 ", "2024-03", false},
		{"2024-03", "2024-03", false},
		{"2024/3", "", true},
		{"2024.11", "2024-11", false},
		{"2024-03-15", "2024-03", false},
		{"2024/12/01", "2024-12", false},
		{"202413", "", true},
		{"24-03", "", true},
		{"", "", true},
		{"March", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParsePeriod(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p.MonthKey() != tt.want {
				t.Errorf("got %s, want %s", p.MonthKey(), tt.want)
			}
		})
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	ds, err := parse(t, fullCSV, Options{})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, ds.Rows, ds.Layout); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), utf8BOM) {
		t.Error("export is missing the byte order mark")
	}

	again, err := parse(t, buf.String(), Options{})
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	opt := cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
	if diff := cmp.Diff(ds.Rows, again.Rows, opt); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if again.Layout != ds.Layout {
		t.Errorf("layout %+v, want %+v", again.Layout, ds.Layout)
	}
}

func TestWriteXLSX(t *testing.T) {
	ds, err := parse(t, fullCSV, Options{})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, ds.Rows, ds.Layout); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != len(ds.Rows)+1 {
		t.Fatalf("got %d sheet rows, want %d", len(rows), len(ds.Rows)+1)
	}
	if diff := cmp.Diff(ds.Layout.Headers(), rows[0]); diff != "" {
		t.Errorf("header (-want +got):\n%s", diff)
	}
	if rows[1][0] != "202401" || rows[1][4] != "아모잘탄정" {
		t.Errorf("first data row = %v", rows[1])
	}
}

func BenchmarkParse(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("기준년월,담당자,거래처명,품목명,총매출\n")
	for range 20_000 {
		sb.WriteString("202401,김철수,서울약국,아모잘탄정,1000000\n")
	}
	input := sb.String()

	for b.Loop() {
		if _, err := Parse(context.Background(), strings.NewReader(input), "bench.csv", quiet); err != nil {
			b.Fatal(err)
		}
	}
}
