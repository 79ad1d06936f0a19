// reader.go
package file

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"AirTrafficStory/src/model"
	"AirTrafficStory/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const bom = "\uFEFF"

// 依次尝试的分隔符，DGAC 导出默认是分号
var separators = []rune{';', ',', '\t', '|'}

var nonDigit = regexp.MustCompile(`[^0-9]`)

// ReadOptions 读表参数
type ReadOptions struct {
	Sheet   string            // xlsx 工作表名，为空时取第一张
	Aliases map[string]string // 规范化后的表头 -> 规范列名
}

// ReadTable 按扩展名读取 csv 或 xlsx，所有列先作为字符串载入
func ReadTable(filePath string, opts ReadOptions) (dataframe.DataFrame, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx":
		records, err = readXLSXRecords(filePath, opts.Sheet)
	default:
		records, err = readCSVRecords(filePath)
	}
	if err != nil {
		return dataframe.New(), err
	}
	if len(records) == 0 {
		return dataframe.New(), fmt.Errorf("%w: %s has no header", model.ErrSchema, filePath)
	}

	records[0] = NormalizeHeaders(records[0], opts.Aliases)
	return recordsToFrame(records)
}

// readCSVRecords 读取 csv，自动识别编码和分隔符
func readCSVRecords(filePath string) ([][]string, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("打开CSV失败: %w", err)
	}
	return parseCSV(raw)
}

func parseCSV(raw []byte) ([][]string, error) {
	// 1. 非 UTF-8 的导出按 Windows-1252 解码（Latin-1 的超集）
	if !utf8.Valid(raw) {
		decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
		if err != nil {
			return nil, fmt.Errorf("字符集转换失败: %w", err)
		}
		raw = decoded
	}

	// 2. 去掉 BOM
	raw = bytes.TrimPrefix(raw, []byte(bom))

	// 3. 识别分隔符
	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = DetectSeparator(firstLine(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("解析CSV失败: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// DetectSeparator 第一个能切出至少 3 列的分隔符，都不满足时用分号
func DetectSeparator(header string) rune {
	for _, sep := range separators {
		r := csv.NewReader(strings.NewReader(header))
		r.Comma = sep
		r.LazyQuotes = true
		rec, err := r.Read()
		if err == nil && len(rec) >= 3 {
			return sep
		}
	}
	return ';'
}

func firstLine(raw []byte) string {
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		return strings.TrimRight(string(raw[:i]), "\r")
	}
	return string(raw)
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// readXLSXRecords 使用tealeg/xlsx读取工作表，第一行为标题行
func readXLSXRecords(filePath, sheetName string) ([][]string, error) {
	// 1. 打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("xlsx open file false: %w", err)
	}

	// 2. 获取工作表
	if len(xlFile.Sheets) == 0 {
		return nil, fmt.Errorf("excel文件中没有工作表: %s", filePath)
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		named, ok := xlFile.Sheet[sheetName]
		if !ok {
			return nil, fmt.Errorf("工作表 %s 不存在: %s", sheetName, filePath)
		}
		sheet = named
	}

	// 3. 转换为字符串矩阵
	return sheetRecords(sheet), nil
}

func sheetRecords(sheet *xlsx.Sheet) [][]string {
	if len(sheet.Rows) == 0 {
		return nil
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, cell.Value)
	}

	records := [][]string{headers}
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		rec := make([]string, len(headers))
		for i, cell := range row.Cells {
			if i < len(headers) { // 确保不超出列数范围
				rec[i] = cell.Value
			}
		}
		if !isBlank(rec) {
			records = append(records, rec)
		}
	}
	return records
}

// NormalizeHeaders 表头去空白和 BOM、转小写、空格和连字符换成下划线，再套用别名
func NormalizeHeaders(headers []string, aliases map[string]string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		h = strings.ReplaceAll(h, bom, "")
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
		if alias, ok := aliases[h]; ok && alias != "" {
			h = alias
		}
		if h == "" {
			h = fmt.Sprintf("column_%d", i)
		}
		out[i] = h
	}
	return out
}

// recordsToFrame 第一行为表头，短行补空串
func recordsToFrame(records [][]string) (dataframe.DataFrame, error) {
	header := records[0]
	if len(records) == 1 {
		cols := make([]series.Series, len(header))
		for i, name := range header {
			cols[i] = series.New([]string{}, series.String, name)
		}
		return dataframe.New(cols...), nil
	}

	for i := 1; i < len(records); i++ {
		switch {
		case len(records[i]) < len(header):
			padded := make([]string, len(header))
			copy(padded, records[i])
			records[i] = padded
		case len(records[i]) > len(header):
			records[i] = records[i][:len(header)]
		}
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return df, fmt.Errorf("转换DataFrame失败: %w", df.Err)
	}
	return df, nil
}

// DeriveDates 由 (annee, mois)、anmois 或 annee_mois 生成 period/annee/mois/quarter。
// 无法得到有效年月或年份超出 [MinYear, MaxYear] 的行被丢弃并分别计数
func DeriveDates(df dataframe.DataFrame) (dataframe.DataFrame, PrepStats, error) {
	n := df.Nrow()
	years := make([]int, n)
	months := make([]int, n)

	switch {
	case utils.HasColumns(df, model.ColYear, model.ColMonth):
		ys := utils.StringColumn(df, model.ColYear)
		ms := utils.StringColumn(df, model.ColMonth)
		for i := 0; i < n; i++ {
			years[i] = atoiLoose(ys[i])
			months[i] = atoiLoose(ms[i])
		}
	case utils.HasColumn(df, "anmois"), utils.HasColumn(df, "annee_mois"):
		col := "anmois"
		if !utils.HasColumn(df, col) {
			col = "annee_mois"
		}
		for i, raw := range utils.StringColumn(df, col) {
			years[i], months[i] = splitYearMonth(raw)
		}
	default:
		return df, PrepStats{}, fmt.Errorf("%w: no date columns (annee/mois, anmois, annee_mois)", model.ErrSchema)
	}

	keep := make([]int, 0, n)
	periods := make([]int, 0, n)
	keptYears := make([]int, 0, n)
	keptMonths := make([]int, 0, n)
	quarters := make([]string, 0, n)
	var stats PrepStats
	for i := 0; i < n; i++ {
		p := model.Period{Year: years[i], Month: months[i]}
		if !p.Valid() {
			stats.InvalidDates++
			continue
		}
		if !p.InDataRange() {
			stats.OutOfRangeYears++
			continue
		}
		keep = append(keep, i)
		periods = append(periods, p.Code())
		keptYears = append(keptYears, p.Year)
		keptMonths = append(keptMonths, p.Month)
		quarters = append(quarters, p.Quarter())
	}

	out := utils.SubsetRows(df, keep)
	out = out.Mutate(series.New(periods, series.Int, model.ColPeriod)).
		Mutate(series.New(keptYears, series.Int, model.ColYear)).
		Mutate(series.New(keptMonths, series.Int, model.ColMonth)).
		Mutate(series.New(quarters, series.String, model.ColQuarter))
	if out.Err != nil {
		return out, stats, fmt.Errorf("生成日期列失败: %w", out.Err)
	}
	return out, stats, nil
}

// splitYearMonth 只保留数字并左补零到 6 位，前 4 位为年、后 2 位为月
func splitYearMonth(raw string) (int, int) {
	s := nonDigit.ReplaceAllString(raw, "")
	if s == "" || len(s) > 6 {
		return 0, 0
	}
	s = strings.Repeat("0", 6-len(s)) + s
	y, _ := strconv.Atoi(s[:4])
	m, _ := strconv.Atoi(s[4:])
	return y, m
}

// atoiLoose 兼容 "2019.0" 这种浮点写法
func atoiLoose(s string) int {
	v, ok := utils.ParseFloat(s)
	if !ok {
		return 0
	}
	return int(v)
}
