// series.go
package processor

import (
	"math"
	"sort"

	"AirTrafficStory/src/model"
	"AirTrafficStory/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// Freq 重采样频率
type Freq string

const (
	Monthly   Freq = "M"
	Quarterly Freq = "Q"
	Yearly    Freq = "Y"
)

// YearTotal 某年合计
type YearTotal struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// periodSums 按 period 汇总某列，NaN 记为 0
func periodSums(df dataframe.DataFrame, col string) map[int]float64 {
	sums := make(map[int]float64)
	if !utils.HasColumns(df, model.ColPeriod, col) {
		return sums
	}
	periods := utils.IntColumn(df, model.ColPeriod)
	vals := utils.FloatColumn(df, col)
	for i, p := range periods {
		v := vals[i]
		if math.IsNaN(v) {
			v = 0
		}
		sums[p] += v
	}
	return sums
}

// MonthlySeries 每个有数据的月份一个点，按时间升序，缺失月份不插值
func MonthlySeries(df dataframe.DataFrame, col string) model.Series {
	sums := periodSums(df, col)
	codes := make([]int, 0, len(sums))
	for c := range sums {
		codes = append(codes, c)
	}
	sort.Ints(codes)

	out := make(model.Series, len(codes))
	for i, c := range codes {
		out[i] = model.Point{Period: model.PeriodFromCode(c), Value: model.Some(sums[c])}
	}
	return out
}

// ResampleSeries 月度序列汇总为季度或年度，点的 period 取该区间的第一个月
func ResampleSeries(s model.Series, freq Freq) model.Series {
	if freq == Monthly || freq == "" {
		return s
	}
	sums := make(map[int]float64)
	for _, p := range s {
		key := p.Period
		switch freq {
		case Quarterly:
			key.Month = (p.Period.Month-1)/3*3 + 1
		case Yearly:
			key.Month = 1
		}
		sums[key.Code()] += p.Value.Or(0)
	}
	codes := make([]int, 0, len(sums))
	for c := range sums {
		codes = append(codes, c)
	}
	sort.Ints(codes)

	out := make(model.Series, len(codes))
	for i, c := range codes {
		out[i] = model.Point{Period: model.PeriodFromCode(c), Value: model.Some(sums[c])}
	}
	return out
}

// YearlyTotals 按年汇总，年份升序
func YearlyTotals(df dataframe.DataFrame, col string) []YearTotal {
	byYear := make(map[int]float64)
	for code, v := range periodSums(df, col) {
		byYear[code/100] += v
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearTotal, len(years))
	for i, y := range years {
		out[i] = YearTotal{Year: y, Value: byYear[y]}
	}
	return out
}

// pctChange (cur/prev - 1) * 100，prev 为 0 时未定义
func pctChange(cur, prev float64) model.Value {
	if prev == 0 {
		return model.Undefined()
	}
	return model.Some((cur/prev - 1) * 100)
}

// YoY 每个点与 12 个月前同一月份比较的百分比变化。按月份对齐，不按位置
func YoY(s model.Series) model.Series {
	byIdx := make(map[int]model.Value, len(s))
	for _, p := range s {
		byIdx[p.Period.Index()] = p.Value
	}
	out := make(model.Series, len(s))
	for i, p := range s {
		out[i] = model.Point{Period: p.Period}
		prev, ok := byIdx[p.Period.Index()-12]
		if ok && prev.Valid && p.Value.Valid {
			out[i].Value = pctChange(p.Value.V, prev.V)
		}
	}
	return out
}

// RecentYoY 最后一个点相对 12 个月前的变化
func RecentYoY(s model.Series) model.Value {
	last, ok := s.Last()
	if !ok {
		return model.Undefined()
	}
	return lookupChange(s, last, 12)
}

// MoM 最后一个点相对上一个月的变化
func MoM(s model.Series) model.Value {
	last, ok := s.Last()
	if !ok {
		return model.Undefined()
	}
	return lookupChange(s, last, 1)
}

func lookupChange(s model.Series, last model.Point, months int) model.Value {
	target := last.Period.AddMonths(-months)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Period == target {
			if !s[i].Value.Valid || !last.Value.Valid {
				return model.Undefined()
			}
			return pctChange(last.Value.V, s[i].Value.V)
		}
		if s[i].Period.Before(target) {
			break
		}
	}
	return model.Undefined()
}

// RollingMean 按位置的滑动平均，窗口内有效点少于 max(1, window/2) 时未定义
func RollingMean(s model.Series, window int) model.Series {
	if window < 1 {
		window = 1
	}
	minPeriods := window / 2
	if minPeriods < 1 {
		minPeriods = 1
	}

	out := make(model.Series, len(s))
	for i := range s {
		var sum float64
		var n int
		for j := i - window + 1; j <= i; j++ {
			if j < 0 || !s[j].Value.Valid {
				continue
			}
			sum += s[j].Value.V
			n++
		}
		out[i] = model.Point{Period: s[i].Period}
		if n >= minPeriods {
			out[i].Value = model.Some(sum / float64(n))
		}
	}
	return out
}

// CovidBand 图表上高亮的疫情区间，纯标注
func CovidBand(start, end model.Period) model.Band {
	return model.Band{Label: "COVID-19", Start: start, End: end}
}

// DefaultCovidBand 2020-03 至 2021-06
func DefaultCovidBand() model.Band {
	return CovidBand(model.Period{Year: 2020, Month: 3}, model.Period{Year: 2021, Month: 6})
}

// Projection 从最后一个点开始按月复合增长 pct(%)，返回 horizon+1 个点(含起点)
func Projection(s model.Series, pct float64, horizon int) model.Series {
	last, ok := s.Last()
	if !ok || !last.Value.Valid {
		return model.Series{}
	}
	if horizon <= 0 {
		horizon = 12
	}
	rate := 1 + pct/100
	out := make(model.Series, horizon+1)
	for i := 0; i <= horizon; i++ {
		out[i] = model.Point{
			Period: last.Period.AddMonths(i),
			Value:  model.Some(last.Value.V * math.Pow(rate, float64(i))),
		}
	}
	return out
}

// MajorEvents 趋势图上的重大事件标注
func MajorEvents() []model.Band {
	return []model.Band{
		{Label: "September 11 attacks", Start: model.Period{Year: 2001, Month: 9}, End: model.Period{Year: 2001, Month: 9}},
		{Label: "Global financial crisis", Start: model.Period{Year: 2008, Month: 9}, End: model.Period{Year: 2008, Month: 9}},
		{Label: "COVID-19 pandemic", Start: model.Period{Year: 2020, Month: 3}, End: model.Period{Year: 2020, Month: 3}},
		{Label: "War in Ukraine", Start: model.Period{Year: 2022, Month: 2}, End: model.Period{Year: 2022, Month: 2}},
	}
}
