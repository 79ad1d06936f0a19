package utils

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// HasColumns 所有列都存在时返回 true
func HasColumns(df dataframe.DataFrame, names ...string) bool {
	for _, n := range names {
		if !HasColumn(df, n) {
			return false
		}
	}
	return true
}

// ParseFloat 解析数值单元格，支持法式小数逗号和空格千分位
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), false
	}
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, " ", "")
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return math.NaN(), false
	}
	return v, true
}

// FloatColumn 取出数值列，缺列或无法解析的单元格返回 NaN
func FloatColumn(df dataframe.DataFrame, name string) []float64 {
	out := make([]float64, df.Nrow())
	if !HasColumn(df, name) {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	col := df.Col(name)
	if col.Type() == series.Float || col.Type() == series.Int {
		copy(out, col.Float())
		return out
	}
	for i, rec := range col.Records() {
		v, _ := ParseFloat(rec)
		out[i] = v
	}
	return out
}

// IntColumn 整数列，无法解析时为 0
func IntColumn(df dataframe.DataFrame, name string) []int {
	vals := FloatColumn(df, name)
	out := make([]int, len(vals))
	for i, v := range vals {
		if !math.IsNaN(v) {
			out[i] = int(v)
		}
	}
	return out
}

// StringColumn 文本列，缺列时全部为空串
func StringColumn(df dataframe.DataFrame, name string) []string {
	if !HasColumn(df, name) {
		return make([]string, df.Nrow())
	}
	return df.Col(name).Records()
}

// SubsetRows 按行号取子集，空集合时保留列结构
func SubsetRows(df dataframe.DataFrame, rows []int) dataframe.DataFrame {
	if len(rows) == 0 {
		return EmptyLike(df)
	}
	return df.Subset(rows)
}

// EmptyLike 同列名、零行的 DataFrame
func EmptyLike(df dataframe.DataFrame) dataframe.DataFrame {
	cols := make([]series.Series, 0, df.Ncol())
	for _, name := range df.Names() {
		cols = append(cols, series.New([]string{}, df.Col(name).Type(), name))
	}
	if len(cols) == 0 {
		return dataframe.New()
	}
	return dataframe.New(cols...)
}

// Sheet 导出工作簿中的一张表
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// DataFrameSheet 把 DataFrame 转成可导出的表
func DataFrameSheet(name string, df dataframe.DataFrame) Sheet {
	colNames := df.Names()
	sh := Sheet{Name: name, Headers: colNames, Rows: make([][]any, 0, df.Nrow())}
	cols := make([]series.Series, len(colNames))
	for i, n := range colNames {
		cols[i] = df.Col(n)
	}
	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		row := make([]any, len(colNames))
		for colIdx := range colNames {
			row[colIdx] = cols[colIdx].Val(rowIdx)
		}
		sh.Rows = append(sh.Rows, row)
	}
	return sh
}

func SaveToExcel(df dataframe.DataFrame, filePath string) error {
	return SaveWorkbook(filePath, DataFrameSheet("Sheet1", df))
}

// SaveWorkbook 多个表写入同一个 xlsx 文件
func SaveWorkbook(filePath string, sheets ...Sheet) error {
	f, err := buildWorkbook(sheets)
	if err != nil {
		return err
	}
	defer f.Close()

	// 保存文件
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// WriteWorkbook 与 SaveWorkbook 相同，但写入 io.Writer（HTTP 下载）
func WriteWorkbook(w io.Writer, sheets ...Sheet) error {
	f, err := buildWorkbook(sheets)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("写出Excel失败: %w", err)
	}
	return nil
}

func buildWorkbook(sheets []Sheet) (*excelize.File, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("工作簿至少需要一个表")
	}
	f := excelize.NewFile()

	for i, sh := range sheets {
		name := sheetName(sh.Name, i)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				f.Close()
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}

		// 写入列名
		for c, h := range sh.Headers {
			cell, _ := excelize.CoordinatesToCellName(c+1, 1)
			f.SetCellValue(name, cell, h)
		}

		// 写入数据
		for r, row := range sh.Rows {
			for c, val := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				f.SetCellValue(name, cell, cellValue(val))
			}
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// sheetName Excel 表名最长 31 个字符且不能含 []:*?/\
func sheetName(name string, idx int) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = fmt.Sprintf("Sheet%d", idx+1)
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

// cellValue NaN/Inf 写成空单元格
func cellValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
	case fmt.Stringer:
		return x.String()
	}
	return v
}
