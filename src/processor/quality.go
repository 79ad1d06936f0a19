// quality.go
package processor

import (
	"math"
	"sort"
	"strings"

	"AirTrafficStory/src/model"
	"AirTrafficStory/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"
)

// DefaultIQRMultiplier 异常值判定的 IQR 倍数
const DefaultIQRMultiplier = 1.5

// 各表判定重复的键
var duplicateKeys = map[model.Kind][]string{
	model.KindAirports: {model.ColYear, model.ColMonth, model.ColAirportCode},
	model.KindAirlines: {model.ColYear, model.ColMonth, model.ColAirline},
	model.KindRoutes:   {model.ColYear, model.ColMonth, model.ColRouteSegment, model.ColRouteFSC, model.ColRouteFrom, model.ColRouteTo},
}

// DuplicateKeyColumns 某张表的重复判定键
func DuplicateKeyColumns(kind model.Kind) []string {
	return duplicateKeys[kind]
}

// SchemaCheck 列集合与期望模式的差异
type SchemaCheck struct {
	Missing []string `json:"missing"`
	Extras  []string `json:"extras"`
	Derived []string `json:"derived"`
}

// OK 没有缺列
func (sc SchemaCheck) OK() bool { return len(sc.Missing) == 0 }

// ValidateSchema 对比实际列和期望列。加载时生成的派生列单独列出，不算多余列
func ValidateSchema(df dataframe.DataFrame, expected []string) SchemaCheck {
	present := df.Names()
	sc := SchemaCheck{Missing: []string{}, Extras: []string{}, Derived: []string{}}
	for _, c := range expected {
		if !utils.Contains(present, c) {
			sc.Missing = append(sc.Missing, c)
		}
	}
	for _, c := range present {
		switch {
		case utils.Contains(expected, c):
		case utils.Contains(model.DerivedColumns, c):
			sc.Derived = append(sc.Derived, c)
		default:
			sc.Extras = append(sc.Extras, c)
		}
	}
	sort.Strings(sc.Missing)
	sort.Strings(sc.Extras)
	sort.Strings(sc.Derived)
	return sc
}

// MissingCount 某列的缺失数
type MissingCount struct {
	Column  string `json:"column"`
	Missing int    `json:"missing"`
}

// MissingByColumn 只返回有缺失的列，按缺失数降序
func MissingByColumn(df dataframe.DataFrame) []MissingCount {
	out := []MissingCount{}
	for _, name := range df.Names() {
		col := df.Col(name)
		n := 0
		for i := 0; i < col.Len(); i++ {
			el := col.Elem(i)
			if el.IsNA() || (col.Type() == series.String && strings.TrimSpace(el.String()) == "") {
				n++
			}
		}
		if n > 0 {
			out = append(out, MissingCount{Column: name, Missing: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Missing != out[j].Missing {
			return out[i].Missing > out[j].Missing
		}
		return out[i].Column < out[j].Column
	})
	return out
}

// DuplicateRows 所有与其它行共享键值的行(每组全部计入)。
// 键列不全时返回 nil
func DuplicateRows(df dataframe.DataFrame, keys []string) []int {
	if len(keys) == 0 || !utils.HasColumns(df, keys...) {
		return nil
	}
	cols := make([][]string, len(keys))
	for i, k := range keys {
		cols[i] = df.Col(k).Records()
	}
	groups := make(map[string][]int)
	order := make([]string, 0)
	for row := 0; row < df.Nrow(); row++ {
		parts := make([]string, len(keys))
		for i := range keys {
			parts[i] = cols[i][row]
		}
		key := strings.Join(parts, "\x1f")
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}
	rows := []int{}
	for _, key := range order {
		if len(groups[key]) > 1 {
			rows = append(rows, groups[key]...)
		}
	}
	sort.Ints(rows)
	return rows
}

// DuplicateKeys 共享键值的行数，键列不全时为 0
func DuplicateKeys(df dataframe.DataFrame, keys []string) int {
	return len(DuplicateRows(df, keys))
}

// DuplicateFullRows 整行完全相同的行数
func DuplicateFullRows(df dataframe.DataFrame) int {
	return DuplicateKeys(df, df.Names())
}

// Outliers 某列的 IQR 异常值
type Outliers struct {
	Column string      `json:"column"`
	Q1     model.Value `json:"q1"`
	Q3     model.Value `json:"q3"`
	Lower  model.Value `json:"lower"`
	Upper  model.Value `json:"upper"`
	Count  int         `json:"count"`
	Rows   []int       `json:"-"`
}

// IQROutliers 超出 [Q1-k*IQR, Q3+k*IQR] 的行。k<=0 时用 1.5，NaN 不参与计算
func IQROutliers(df dataframe.DataFrame, col string, k float64) Outliers {
	out := Outliers{Column: col, Rows: []int{}}
	if k <= 0 {
		k = DefaultIQRMultiplier
	}
	if !utils.HasColumn(df, col) {
		return out
	}
	vals := utils.FloatColumn(df, col)
	sorted := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return out
	}
	sort.Float64s(sorted)

	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	iqr := q3 - q1
	lo, hi := q1-k*iqr, q3+k*iqr
	out.Q1, out.Q3 = model.Some(q1), model.Some(q3)
	out.Lower, out.Upper = model.Some(lo), model.Some(hi)

	for i, v := range vals {
		if !math.IsNaN(v) && (v < lo || v > hi) {
			out.Rows = append(out.Rows, i)
		}
	}
	out.Count = len(out.Rows)
	return out
}

// Coverage 表中数据覆盖的月份
type Coverage struct {
	Start   *model.Period `json:"start"`
	End     *model.Period `json:"end"`
	Months  int           `json:"months"`
	Gaps    int           `json:"gaps"` // 首尾之间没有数据的月份数
	Entries int           `json:"rows"`
}

// DateCoverage 最早和最晚月份以及中间的空缺
func DateCoverage(df dataframe.DataFrame) Coverage {
	c := Coverage{Entries: df.Nrow()}
	if !utils.HasColumn(df, model.ColPeriod) {
		return c
	}
	seen := make(map[int]bool)
	for _, code := range utils.IntColumn(df, model.ColPeriod) {
		if code > 0 {
			seen[code] = true
		}
	}
	if len(seen) == 0 {
		return c
	}
	codes := make([]int, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	start := model.PeriodFromCode(codes[0])
	end := model.PeriodFromCode(codes[len(codes)-1])
	c.Start, c.End = &start, &end
	c.Months = len(codes)
	c.Gaps = end.Index() - start.Index() + 1 - len(codes)
	return c
}

// RangeViolations 年份超出 [MinYear, MaxYear] 的行数和计数列中的负数个数
func RangeViolations(kind model.Kind, df dataframe.DataFrame) (years, negatives int) {
	if utils.HasColumn(df, model.ColPeriod) {
		for _, code := range utils.IntColumn(df, model.ColPeriod) {
			if p := model.PeriodFromCode(code); p.Valid() && !p.InDataRange() {
				years++
			}
		}
	}
	for _, col := range model.MeasureColumns[kind] {
		if !utils.HasColumn(df, col) {
			continue
		}
		for _, v := range utils.FloatColumn(df, col) {
			if v < 0 {
				negatives++
			}
		}
	}
	return years, negatives
}

// TableQuality 一张表的质量报告，仅作提示，不修改数据
type TableQuality struct {
	Kind          model.Kind     `json:"kind"`
	Rows          int            `json:"rows"`
	Schema        SchemaCheck    `json:"schema"`
	Missing       []MissingCount `json:"missing"`
	DuplicateKeys []string       `json:"duplicate_keys"`
	Duplicates    int            `json:"duplicates"`
	FullDupRows   int            `json:"duplicate_rows"`
	Outliers      Outliers       `json:"outliers"`
	Coverage      Coverage       `json:"coverage"`

	// 载入时已剔除的违规数据也会计入，见 dashboard.Quality
	OutOfRangeYears int `json:"out_of_range_years"`
	NegativeValues  int `json:"negative_values"`
}

// TableReport 对一张表执行全部检查，异常值检查用查询指标列
func TableReport(kind model.Kind, df dataframe.DataFrame, expected []string, col string, k float64) TableQuality {
	keys := DuplicateKeyColumns(kind)
	years, negatives := RangeViolations(kind, df)
	return TableQuality{
		Kind:          kind,
		Rows:          df.Nrow(),
		Schema:        ValidateSchema(df, expected),
		Missing:       MissingByColumn(df),
		DuplicateKeys: keys,
		Duplicates:    DuplicateKeys(df, keys),
		FullDupRows:   DuplicateFullRows(df),
		Outliers:      IQROutliers(df, col, k),
		Coverage:      DateCoverage(df),

		OutOfRangeYears: years,
		NegativeValues:  negatives,
	}
}
