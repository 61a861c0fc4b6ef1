package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = "기준년월,담당자,거래처명,품목명,총매출\n" +
	"202403,김철수,서울약국,아모잘탄정,1000000\n" +
	"202403,이영희,부산병원,로수젯정,500000\n" +
	"202402,이영희,대구의원,한미플루주,300000\n"

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSummary(t *testing.T) {
	out, err := run(t, "summary", "--file", writeCSV(t))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	for _, want := range []string{"1,500,000", "서울약국", "2024-03", "한미플루"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAsk(t *testing.T) {
	out, err := run(t, "ask", "--file", writeCSV(t), "아모잘탄", "매출은?")
	if err != nil {
		t.Fatal(err)
	}
	if want := "아모잘탄 매출은 총 1,000,000원입니다."; strings.TrimSpace(out) != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestDetailsFilter(t *testing.T) {
	out, err := run(t, "details", "--file", writeCSV(t), "--filter", "rep=이영희")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "김철수") || !strings.Contains(out, "부산병원") {
		t.Errorf("filter not applied:\n%s", out)
	}
}

func TestBadFilter(t *testing.T) {
	if _, err := run(t, "details", "--file", writeCSV(t), "--filter", "color=red"); err == nil {
		t.Error("expected error for unknown column")
	}
	if _, err := run(t, "details", "--file", writeCSV(t), "--filter", "rep"); err == nil {
		t.Error("expected error for missing value")
	}
}

func TestBands(t *testing.T) {
	out, err := run(t, "bands", "--file", writeCSV(t), "--unit", "month")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2024-03") {
		t.Errorf("band title missing period:\n%s", out)
	}
}

func TestExportCSV(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.csv")
	if _, err := run(t, "export", "--file", writeCSV(t), "-o", dest); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\ufeff기준년월")) {
		t.Errorf("export does not start with BOM and header: %q", data[:20])
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := run(t, "summary"); err == nil {
		t.Error("expected error without --file")
	}
}
