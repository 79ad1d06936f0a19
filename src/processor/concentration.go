// concentration.go
package processor

import (
	"math"
	"sort"

	"AirTrafficStory/src/model"
	"AirTrafficStory/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// OthersLabel 市场份额序列中前 N 名以外的合并项
const OthersLabel = "Others"

// EntityTotals 按实体列汇总指标
func EntityTotals(df dataframe.DataFrame, keyCol, col string) map[string]float64 {
	totals := make(map[string]float64)
	if !utils.HasColumns(df, keyCol, col) {
		return totals
	}
	keys := utils.StringColumn(df, keyCol)
	vals := utils.FloatColumn(df, col)
	for i, k := range keys {
		if math.IsNaN(vals[i]) {
			continue
		}
		totals[k] += vals[i]
	}
	return totals
}

// EntityNames 代码 -> 名称，取最后出现的非空名称
func EntityNames(df dataframe.DataFrame, codeCol, nameCol string) map[string]string {
	names := make(map[string]string)
	if !utils.HasColumns(df, codeCol, nameCol) {
		return names
	}
	codes := utils.StringColumn(df, codeCol)
	labels := utils.StringColumn(df, nameCol)
	for i, c := range codes {
		if labels[i] != "" {
			names[c] = labels[i]
		} else if _, ok := names[c]; !ok {
			names[c] = c
		}
	}
	return names
}

func sortedKeys(values map[string]float64) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// total 正值之和，份额只在正值上计算
func total(values map[string]float64) float64 {
	var sum float64
	for _, k := range sortedKeys(values) {
		if values[k] > 0 {
			sum += values[k]
		}
	}
	return sum
}

// HHI 市场份额平方和，取值 [0,1]；合计不为正时未定义
func HHI(values map[string]float64) model.Value {
	t := total(values)
	if t <= 0 {
		return model.Undefined()
	}
	var hhi float64
	for _, k := range sortedKeys(values) {
		if values[k] <= 0 {
			continue
		}
		share := values[k] / t
		hhi += share * share
	}
	return model.Some(hhi)
}

// TopNShare 前 n 名份额之和
func TopNShare(values map[string]float64, n int) model.Value {
	t := total(values)
	if t <= 0 {
		return model.Undefined()
	}
	var sum float64
	for _, r := range TopN(values, n, nil) {
		if r.Value > 0 {
			sum += r.Value
		}
	}
	return model.Some(sum / t)
}

// TopN 按数值降序、名称升序排序后取前 n 个，名称相同时结果稳定
func TopN(values map[string]float64, n int, names map[string]string) []model.Ranked {
	t := total(values)
	ranked := make([]model.Ranked, 0, len(values))
	for _, code := range sortedKeys(values) {
		name := code
		if names != nil && names[code] != "" {
			name = names[code]
		}
		r := model.Ranked{Code: code, Name: name, Value: values[code]}
		if t > 0 && values[code] >= 0 {
			r.Share = model.Some(values[code] / t)
		}
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Value != ranked[j].Value {
			return ranked[i].Value > ranked[j].Value
		}
		if ranked[i].Name != ranked[j].Name {
			return ranked[i].Name < ranked[j].Name
		}
		return ranked[i].Code < ranked[j].Code
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// ShareSeries 一个实体在各月的份额
type ShareSeries struct {
	Code   string       `json:"code"`
	Name   string       `json:"name"`
	Points model.Series `json:"points"`
}

// MarketShareSeries 全区间前 topN 的实体各月份额，其余合并为 Others
func MarketShareSeries(df dataframe.DataFrame, keyCol, nameCol, col string, topN int) []ShareSeries {
	if !utils.HasColumns(df, model.ColPeriod, keyCol, col) {
		return nil
	}
	leaders := TopN(EntityTotals(df, keyCol, col), topN, EntityNames(df, keyCol, nameCol))
	lead := make(map[string]bool, len(leaders))
	for _, r := range leaders {
		lead[r.Code] = true
	}

	periods := utils.IntColumn(df, model.ColPeriod)
	keys := utils.StringColumn(df, keyCol)
	vals := utils.FloatColumn(df, col)

	perPeriod := make(map[int]map[string]float64)
	for i, p := range periods {
		if math.IsNaN(vals[i]) {
			continue
		}
		key := keys[i]
		if !lead[key] {
			key = OthersLabel
		}
		if perPeriod[p] == nil {
			perPeriod[p] = make(map[string]float64)
		}
		perPeriod[p][key] += vals[i]
	}

	codes := make([]int, 0, len(perPeriod))
	for p := range perPeriod {
		codes = append(codes, p)
	}
	sort.Ints(codes)

	entries := make([]ShareSeries, 0, len(leaders)+1)
	for _, r := range leaders {
		entries = append(entries, ShareSeries{Code: r.Code, Name: r.Name})
	}
	entries = append(entries, ShareSeries{Code: OthersLabel, Name: OthersLabel})

	for _, p := range codes {
		t := total(perPeriod[p])
		for i := range entries {
			pt := model.Point{Period: model.PeriodFromCode(p)}
			if t > 0 {
				pt.Value = model.Some(perPeriod[p][entries[i].Code] / t)
			}
			entries[i].Points = append(entries[i].Points, pt)
		}
	}

	// 没有其余实体时去掉 Others
	last := entries[len(entries)-1]
	allZero := true
	for _, pt := range last.Points {
		if pt.Value.Or(0) != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		entries = entries[:len(entries)-1]
	}
	return entries
}

// Contribution 某实体在两个区间之间的变化
type Contribution struct {
	Code         string      `json:"code"`
	Name         string      `json:"name"`
	ValueA       float64     `json:"value_a"`
	ValueB       float64     `json:"value_b"`
	Delta        float64     `json:"delta"`
	ShareOfDelta model.Value `json:"share_of_delta"`
}

// ContributionToChange 哪些实体推动了区间 A 到区间 B 的变化。
// 按 delta 降序取前 topN，份额以全部实体的 delta 之和为分母
func ContributionToChange(df dataframe.DataFrame, keyCol, nameCol, col string, a, b model.DateRange, topN int) []Contribution {
	sumA := EntityTotals(FilterRange(df, a), keyCol, col)
	sumB := EntityTotals(FilterRange(df, b), keyCol, col)
	names := EntityNames(df, keyCol, nameCol)

	all := make(map[string]float64, len(sumA)+len(sumB))
	for k := range sumA {
		all[k] = 0
	}
	for k := range sumB {
		all[k] = 0
	}

	out := make([]Contribution, 0, len(all))
	var totalDelta float64
	for _, k := range sortedKeys(all) {
		c := Contribution{Code: k, Name: k, ValueA: sumA[k], ValueB: sumB[k]}
		if n := names[k]; n != "" {
			c.Name = n
		}
		c.Delta = c.ValueB - c.ValueA
		totalDelta += c.Delta
		out = append(out, c)
	}
	for i := range out {
		out[i].ShareOfDelta = model.Ratio(out[i].Delta, totalDelta)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Delta != out[j].Delta {
			return out[i].Delta > out[j].Delta
		}
		return out[i].Name < out[j].Name
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
