// kpi.go
package processor

import (
	"AirTrafficStory/src/model"

	"github.com/go-gota/gota/dataframe"
)

// KPIOptions 计算 KPI 的固定参数
type KPIOptions struct {
	BaselineYear int
	ShareN       int // 集中度中 top-N 份额的 N，默认 3
}

func (o KPIOptions) withDefaults() KPIOptions {
	if o.BaselineYear == 0 {
		o.BaselineYear = DefaultBaselineYear
	}
	if o.ShareN <= 0 {
		o.ShareN = 3
	}
	return o
}

// KPIs 一张表在当前过滤条件下的标量指标。比值类指标未定义时为 N/A
type KPIs struct {
	Kind      model.Kind    `json:"kind"`
	Metric    model.Metric  `json:"metric"`
	Column    string        `json:"column"`
	Rows      int           `json:"rows"`
	Entities  int           `json:"entities"`
	Total     float64       `json:"total"`
	Top       *model.Ranked `json:"top"`
	Peak      *model.Point  `json:"peak_month"`
	Latest    *model.Point  `json:"latest_month"`
	YoY       model.Value   `json:"yoy_pct"`
	MoM       model.Value   `json:"mom_pct"`
	Recovery  model.Value   `json:"recovery_pct"`
	CAGR      model.Value   `json:"cagr"`
	HHI       model.Value   `json:"hhi"`
	TopNShare model.Value   `json:"top_share"`

	// 机场表附加的货运合计，航空公司表附加的航班数
	Freight *float64 `json:"total_freight,omitempty"`
	Flights *float64 `json:"total_flights,omitempty"`
}

// ComputeKPIs 在已经过滤的表上计算 KPI
func ComputeKPIs(kind model.Kind, df dataframe.DataFrame, metric model.Metric, opts KPIOptions) (KPIs, error) {
	opts = opts.withDefaults()
	col, err := kind.Column(metric)
	if err != nil {
		return KPIs{}, err
	}
	codeCol, nameCol := kind.EntityColumns()

	k := KPIs{
		Kind:   kind,
		Metric: metric,
		Column: col,
		Rows:   df.Nrow(),
	}

	monthly := MonthlySeries(df, col)
	for _, p := range monthly {
		k.Total += p.Value.Or(0)
	}
	if peak := peakPoint(monthly); peak != nil {
		k.Peak = peak
	}
	if last, ok := monthly.Last(); ok {
		k.Latest = &last
	}
	k.YoY = RecentYoY(monthly)
	k.MoM = MoM(monthly)

	yearly := YearlyTotals(df, col)
	k.Recovery = RecoveryFromYearly(yearly, opts.BaselineYear)
	k.CAGR = SeriesCAGR(yearly, 0, 0)

	totals := EntityTotals(df, codeCol, col)
	k.Entities = len(totals)
	k.HHI = HHI(totals)
	k.TopNShare = TopNShare(totals, opts.ShareN)
	if top := TopN(totals, 1, EntityNames(df, codeCol, nameCol)); len(top) > 0 {
		k.Top = &top[0]
	}
	return k, nil
}

// AirportKPIs 附带货运合计
func AirportKPIs(df dataframe.DataFrame, metric model.Metric, opts KPIOptions) (KPIs, error) {
	k, err := ComputeKPIs(model.KindAirports, df, metric, opts)
	if err != nil {
		return k, err
	}
	freight := sumColumn(df, model.ColFreightTotal)
	k.Freight = &freight
	return k, nil
}

// AirlineKPIs 附带航班数合计
func AirlineKPIs(df dataframe.DataFrame, metric model.Metric, opts KPIOptions) (KPIs, error) {
	k, err := ComputeKPIs(model.KindAirlines, df, metric, opts)
	if err != nil {
		return k, err
	}
	flights := sumColumn(df, model.ColAirlineFlights)
	k.Flights = &flights
	return k, nil
}

func RouteKPIs(df dataframe.DataFrame, metric model.Metric, opts KPIOptions) (KPIs, error) {
	return ComputeKPIs(model.KindRoutes, df, metric, opts)
}

// peakPoint 数值最大的月份，相同时取较早的月份
func peakPoint(s model.Series) *model.Point {
	var best *model.Point
	for i := range s {
		if !s[i].Value.Valid {
			continue
		}
		if best == nil || s[i].Value.V > best.Value.V {
			p := s[i]
			best = &p
		}
	}
	return best
}

func sumColumn(df dataframe.DataFrame, col string) float64 {
	var sum float64
	for _, v := range periodSums(df, col) {
		sum += v
	}
	return sum
}
