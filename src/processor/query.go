// query.go
package processor

import (
	"fmt"
	"sort"
	"strings"

	"AirTrafficStory/src/model"
	"AirTrafficStory/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const (
	DefaultTopN = 10
	MaxTopN     = 100
)

// Query 展示层传入的过滤参数
type Query struct {
	Range  model.DateRange `json:"range"`
	Metric model.Metric    `json:"metric"`
	TopN   int             `json:"top_n"`
	// Zones 为 nil 表示不过滤；非 nil 的空切片表示未选任何区域，结果为空
	Zones    []model.Zone `json:"zones"`
	Airports []string     `json:"airports,omitempty"`
	Airlines []string     `json:"airlines,omitempty"`
}

// Normalize 补默认值并校验，非法参数返回 ErrInvalidFilter
func (q Query) Normalize() (Query, error) {
	r, err := q.Range.Normalize()
	if err != nil {
		return q, err
	}
	q.Range = r

	metric, err := model.ParseMetric(string(q.Metric))
	if err != nil {
		return q, err
	}
	q.Metric = metric

	switch {
	case q.TopN == 0:
		q.TopN = DefaultTopN
	case q.TopN < 0:
		return q, fmt.Errorf("%w: top must be positive, got %d", model.ErrInvalidFilter, q.TopN)
	case q.TopN > MaxTopN:
		q.TopN = MaxTopN
	}

	if q.Zones != nil {
		zones := make([]model.Zone, 0, len(q.Zones))
		for _, z := range q.Zones {
			parsed, err := model.ParseZone(string(z))
			if err != nil {
				return q, err
			}
			if !utils.Contains(zones, parsed) {
				zones = append(zones, parsed)
			}
		}
		sort.Slice(zones, func(i, j int) bool { return zones[i] < zones[j] })
		q.Zones = zones
	}
	q.Airports = normalizeCodes(q.Airports)
	q.Airlines = normalizeCodes(q.Airlines)
	return q, nil
}

func normalizeCodes(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" && !utils.Contains(out, c) {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Key 规范化后的参数串，作为缓存键的一部分
func (q Query) Key() string {
	zones := "*"
	if q.Zones != nil {
		parts := make([]string, len(q.Zones))
		for i, z := range q.Zones {
			parts[i] = string(z)
		}
		zones = "[" + strings.Join(parts, ",") + "]"
	}
	return fmt.Sprintf("r=%s&m=%s&n=%d&z=%s&apt=%s&cie=%s",
		q.Range, q.Metric, q.TopN, zones,
		strings.Join(q.Airports, ","), strings.Join(q.Airlines, ","))
}

// AllZones 是否覆盖全部区域
func (q Query) AllZones() bool {
	return q.Zones == nil || len(q.Zones) == len(model.AllZones)
}

// Filter 按查询过滤一张表：日期闭区间、区域(仅机场表)、机场代码、航空公司代码
func Filter(kind model.Kind, df dataframe.DataFrame, q Query) dataframe.DataFrame {
	df = FilterRange(df, q.Range)
	if kind == model.KindAirports {
		df = FilterZones(df, q.Zones)
	}
	df = FilterAirports(kind, df, q.Airports)
	if kind == model.KindAirlines {
		df = FilterAirlines(df, q.Airlines)
	}
	return df
}

// FilterRange 保留 period 落在 [Start, End] 内的行
func FilterRange(df dataframe.DataFrame, r model.DateRange) dataframe.DataFrame {
	if !utils.HasColumn(df, model.ColPeriod) || r.IsZero() {
		return df
	}
	return df.Filter(dataframe.F{
		Colname:    model.ColPeriod,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			code, err := el.Int()
			return err == nil && r.ContainsCode(code)
		},
	})
}

// FilterZones nil 不过滤，空切片返回空表
func FilterZones(df dataframe.DataFrame, zones []model.Zone) dataframe.DataFrame {
	if zones == nil {
		return df
	}
	if len(zones) == 0 {
		return utils.EmptyLike(df)
	}
	if !utils.HasColumn(df, model.ColZone) {
		return df
	}
	return df.Filter(dataframe.F{
		Colname:    model.ColZone,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			return utils.Contains(zones, model.Zone(el.String()))
		},
	})
}

// FilterAirports 机场表按代码过滤，航段表只要任一端匹配即保留
func FilterAirports(kind model.Kind, df dataframe.DataFrame, codes []string) dataframe.DataFrame {
	if len(codes) == 0 {
		return df
	}
	switch kind {
	case model.KindAirports:
		return filterIn(df, model.ColAirportCode, codes)
	case model.KindRoutes:
		if !utils.HasColumns(df, model.ColRouteFrom, model.ColRouteTo) {
			return df
		}
		from := utils.StringColumn(df, model.ColRouteFrom)
		to := utils.StringColumn(df, model.ColRouteTo)
		rows := make([]int, 0, len(from))
		for i := range from {
			if utils.Contains(codes, from[i]) || utils.Contains(codes, to[i]) {
				rows = append(rows, i)
			}
		}
		return utils.SubsetRows(df, rows)
	}
	return df
}

func FilterAirlines(df dataframe.DataFrame, codes []string) dataframe.DataFrame {
	if len(codes) == 0 {
		return df
	}
	return filterIn(df, model.ColAirline, codes)
}

func filterIn(df dataframe.DataFrame, col string, values []string) dataframe.DataFrame {
	if !utils.HasColumn(df, col) {
		return df
	}
	return df.Filter(dataframe.F{
		Colname:    col,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			return utils.Contains(values, strings.ToUpper(el.String()))
		},
	})
}

// MetricColumn 查询指标在某张表上的列
func MetricColumn(kind model.Kind, q Query) (string, error) {
	return kind.Column(q.Metric)
}
