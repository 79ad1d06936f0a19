package utils

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

func sampleFrame() dataframe.DataFrame {
	return dataframe.New(
		series.New([]string{"LFPG", "LFPO", "TFFR"}, series.String, "code_aeroport"),
		series.New([]string{"1 200", "3,5", "-"}, series.String, "passagers_total"),
	)
}

func TestColumns(t *testing.T) {
	df := sampleFrame()
	if !HasColumns(df, "code_aeroport", "passagers_total") || HasColumn(df, "zone") {
		t.Error("HasColumn mismatch")
	}

	vals := FloatColumn(df, "passagers_total")
	if vals[0] != 1200 || vals[1] != 3.5 || !math.IsNaN(vals[2]) {
		t.Errorf("FloatColumn = %v", vals)
	}
	if missing := FloatColumn(df, "zone"); len(missing) != 3 || !math.IsNaN(missing[0]) {
		t.Errorf("missing column = %v", missing)
	}
	if s := StringColumn(df, "zone"); len(s) != 3 || s[0] != "" {
		t.Errorf("StringColumn missing = %v", s)
	}
	if !Contains([]string{"APT", "CIE"}, "CIE") {
		t.Error("Contains")
	}
}

func TestSubsetRows(t *testing.T) {
	df := sampleFrame()
	sub := SubsetRows(df, []int{2})
	if sub.Nrow() != 1 || sub.Col("code_aeroport").Records()[0] != "TFFR" {
		t.Errorf("subset = %v", sub)
	}
	empty := SubsetRows(df, nil)
	if empty.Nrow() != 0 || empty.Ncol() != 2 {
		t.Errorf("empty subset dims = %dx%d", empty.Nrow(), empty.Ncol())
	}
}

func TestWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	kpi := Sheet{
		Name:    "KPIs/overview",
		Headers: []string{"kpi", "value"},
		Rows:    [][]any{{"recovery_pct", 95.0}, {"cagr", math.NaN()}},
	}
	if err := SaveWorkbook(path, kpi, DataFrameSheet("airports", sampleFrame())); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "KPIs_overview" || sheets[1] != "airports" {
		t.Fatalf("sheets = %v", sheets)
	}
	if v, _ := f.GetCellValue("KPIs_overview", "B2"); v != "95" {
		t.Errorf("B2 = %q", v)
	}
	if v, _ := f.GetCellValue("KPIs_overview", "B3"); v != "" {
		t.Errorf("NaN cell = %q", v)
	}
	if v, _ := f.GetCellValue("airports", "A4"); v != "TFFR" {
		t.Errorf("A4 = %q", v)
	}

	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, kpi); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Error("xlsx output should be a zip archive")
	}
	if err := WriteWorkbook(&buf); err == nil {
		t.Error("empty workbook should fail")
	}
}
