// pages.go
package dashboard

import (
	"AirTrafficStory/src/datasource/file"
	"AirTrafficStory/src/model"
	"AirTrafficStory/src/processor"
	"AirTrafficStory/src/storage"
)

// Overview 首页：三张表的 KPI、机场月度趋势、前 N 机场和区域构成
type Overview struct {
	Query    processor.Query       `json:"query"`
	Version  uint64                `json:"version"`
	Airports *processor.KPIs       `json:"airports"`
	Airlines *processor.KPIs       `json:"airlines"`
	Routes   *processor.KPIs       `json:"routes"` // 航段表没有起降架次，该指标下为 null
	Series   model.Series          `json:"series"`
	Top      []model.Ranked        `json:"top_airports"`
	Zones    []processor.ZoneTotal `json:"zones"`
	Covid    model.Band            `json:"covid_band"`
}

func (s *Service) Overview(q processor.Query) (*Overview, error) {
	q, err := s.prepare(q)
	if err != nil {
		return nil, err
	}
	snap := s.src.Snapshot()
	return storage.Memo(s.cache, s.key(snap, "ALL", "overview", q), func() (*Overview, error) {
		out := &Overview{Query: q, Version: snap.Version, Covid: s.opts.Covid}
		for _, kind := range model.AllKinds {
			k, err := s.kpis(snap, kind, q)
			if err != nil {
				return nil, err
			}
			switch kind {
			case model.KindAirports:
				out.Airports = k
			case model.KindAirlines:
				out.Airlines = k
			case model.KindRoutes:
				out.Routes = k
			}
		}

		col, err := model.KindAirports.Column(q.Metric)
		if err != nil {
			return nil, err
		}
		apt := filtered(snap, model.KindAirports, q)
		out.Series = processor.MonthlySeries(apt, col)
		out.Top = processor.TopN(
			processor.EntityTotals(apt, model.ColAirportCode, col), q.TopN,
			processor.EntityNames(apt, model.ColAirportCode, model.ColAirportName))
		out.Zones, _ = processor.ZoneBreakdown(apt, col)
		return out, nil
	})
}

// Trends 时间趋势页
type Trends struct {
	Query       processor.Query          `json:"query"`
	Kind        model.Kind               `json:"kind"`
	Monthly     model.Series             `json:"monthly"`
	Quarterly   model.Series             `json:"quarterly"`
	Yearly      []processor.YearTotal    `json:"yearly"`
	YoY         model.Series             `json:"yoy_pct"`
	Rolling     model.Series             `json:"rolling_mean"`
	Window      int                      `json:"rolling_window"`
	Seasonality []processor.SeasonBucket `json:"seasonality"`
	Projection  model.Series             `json:"projection"`
	GrowthPct   float64                  `json:"growth_pct"`
	Recovery    model.Value              `json:"recovery_pct"`
	CAGR        model.Value              `json:"cagr"`
	Covid       model.Band               `json:"covid_band"`
	Events      []model.Band             `json:"events"`
}

// Trends 某张表的月度、季度、年度序列及派生指标。growthPct 为情景预测的月增长率(%)
func (s *Service) Trends(kind model.Kind, q processor.Query, growthPct float64) (*Trends, error) {
	q, err := s.prepare(q)
	if err != nil {
		return nil, err
	}
	col, err := kind.Column(q.Metric)
	if err != nil {
		return nil, err
	}
	snap := s.src.Snapshot()
	key := s.key(snap, kind.Code(), "trends", q)
	key.Params += "&g=" + model.Some(growthPct).Format(4, "")
	return storage.Memo(s.cache, key, func() (*Trends, error) {
		df := filtered(snap, kind, q)
		monthly := processor.MonthlySeries(df, col)
		yearly := processor.YearlyTotals(df, col)
		return &Trends{
			Query:       q,
			Kind:        kind,
			Monthly:     monthly,
			Quarterly:   processor.ResampleSeries(monthly, processor.Quarterly),
			Yearly:      yearly,
			YoY:         processor.YoY(monthly),
			Rolling:     processor.RollingMean(monthly, s.opts.RollingWindow),
			Window:      s.opts.RollingWindow,
			Seasonality: processor.Seasonality(monthly, processor.SeasonMean),
			Projection:  processor.Projection(monthly, growthPct, 12),
			GrowthPct:   growthPct,
			Recovery:    processor.RecoveryFromYearly(yearly, s.opts.BaselineYear),
			CAGR:        processor.SeriesCAGR(yearly, 0, 0),
			Covid:       s.opts.Covid,
			Events:      processor.MajorEvents(),
		}, nil
	})
}

// AirportsPage 机场页
type AirportsPage struct {
	Query   processor.Query       `json:"query"`
	KPIs    *processor.KPIs       `json:"kpis"`
	Top     []model.Ranked        `json:"top"`
	Hubs    []processor.Hub       `json:"hubs"`
	Zones   []processor.ZoneTotal `json:"zones"`
	Series  model.Series          `json:"series"`
	Geo     []model.GeoPoint      `json:"geo"`
	Summary processor.GeoSummary  `json:"geo_summary"`
}

func (s *Service) Airports(q processor.Query) (*AirportsPage, error) {
	q, err := s.prepare(q)
	if err != nil {
		return nil, err
	}
	col, err := model.KindAirports.Column(q.Metric)
	if err != nil {
		return nil, err
	}
	snap := s.src.Snapshot()
	return storage.Memo(s.cache, s.key(snap, "APT", "airports", q), func() (*AirportsPage, error) {
		k, err := s.kpis(snap, model.KindAirports, q)
		if err != nil {
			return nil, err
		}
		df := filtered(snap, model.KindAirports, q)
		geo := processor.GeoPoints(df, col, snap.Airports)
		zones, _ := processor.ZoneBreakdown(df, col)
		return &AirportsPage{
			Query: q,
			KPIs:  k,
			Top: processor.TopN(
				processor.EntityTotals(df, model.ColAirportCode, col), q.TopN,
				processor.EntityNames(df, model.ColAirportCode, model.ColAirportName)),
			Hubs:    processor.Hubs(df, q.TopN, snap.Airports),
			Zones:   zones,
			Series:  processor.MonthlySeries(df, col),
			Geo:     geo,
			Summary: processor.SummarizeGeo(geo),
		}, nil
	})
}

// AirlinesPage 航空公司页
type AirlinesPage struct {
	Query        processor.Query          `json:"query"`
	KPIs         *processor.KPIs          `json:"kpis"`
	Top          []model.Ranked           `json:"top"`
	Shares       []processor.ShareSeries  `json:"market_share"`
	Contribution []processor.Contribution `json:"contribution"`
	ChangeFrom   *model.DateRange         `json:"change_from"`
	ChangeTo     *model.DateRange         `json:"change_to"`
	Series       model.Series             `json:"series"`

	// 航班数、旅客公里与旅客数
	Performance []processor.AirlinePerformance `json:"performance"`
}

func (s *Service) Airlines(q processor.Query) (*AirlinesPage, error) {
	q, err := s.prepare(q)
	if err != nil {
		return nil, err
	}
	col, err := model.KindAirlines.Column(q.Metric)
	if err != nil {
		return nil, err
	}
	snap := s.src.Snapshot()
	return storage.Memo(s.cache, s.key(snap, "CIE", "airlines", q), func() (*AirlinesPage, error) {
		k, err := s.kpis(snap, model.KindAirlines, q)
		if err != nil {
			return nil, err
		}
		df := filtered(snap, model.KindAirlines, q)
		page := &AirlinesPage{
			Query: q,
			KPIs:  k,
			Top: processor.TopN(
				processor.EntityTotals(df, model.ColAirline, col), q.TopN,
				processor.EntityNames(df, model.ColAirline, model.ColAirlineName)),
			Shares:       processor.MarketShareSeries(df, model.ColAirline, model.ColAirlineName, col, q.TopN),
			Contribution: []processor.Contribution{},
			Series:       processor.MonthlySeries(df, col),
			Performance:  processor.AirlinePerformanceFrom(file.AirlineRecords(df), q.TopN),
		}
		// 有数据的首年对比末年
		if a, b, ok := yearSpan(processor.YearlyTotals(df, col), q.Range); ok {
			page.ChangeFrom, page.ChangeTo = &a, &b
			page.Contribution = processor.ContributionToChange(df, model.ColAirline, model.ColAirlineName, col, a, b, q.TopN)
		}
		return page, nil
	})
}

// yearSpan 有数据的首年和末年，各自截到查询区间内；不足两年时返回 false
func yearSpan(years []processor.YearTotal, r model.DateRange) (model.DateRange, model.DateRange, bool) {
	if len(years) < 2 {
		return model.DateRange{}, model.DateRange{}, false
	}
	y0, y1 := years[0].Year, years[len(years)-1].Year
	first := clampRange(model.DateRange{Start: model.Period{Year: y0, Month: 1}, End: model.Period{Year: y0, Month: 12}}, r)
	last := clampRange(model.DateRange{Start: model.Period{Year: y1, Month: 1}, End: model.Period{Year: y1, Month: 12}}, r)
	return first, last, true
}

func clampRange(a, r model.DateRange) model.DateRange {
	if a.Start.Before(r.Start) {
		a.Start = r.Start
	}
	if a.End.After(r.End) {
		a.End = r.End
	}
	return a
}

// RoutesPage 航线页
type RoutesPage struct {
	Query     processor.Query        `json:"query"`
	KPIs      *processor.KPIs        `json:"kpis"`
	Top       []model.Ranked         `json:"top"`
	Series    model.Series           `json:"series"`
	Distances processor.RouteGeo     `json:"distances"`
	Stages    []processor.RouteStage `json:"stages"`
}

func (s *Service) Routes(q processor.Query) (*RoutesPage, error) {
	q, err := s.prepare(q)
	if err != nil {
		return nil, err
	}
	col, err := model.KindRoutes.Column(q.Metric)
	if err != nil {
		return nil, err
	}
	snap := s.src.Snapshot()
	return storage.Memo(s.cache, s.key(snap, "LSN", "routes", q), func() (*RoutesPage, error) {
		k, err := s.kpis(snap, model.KindRoutes, q)
		if err != nil {
			return nil, err
		}
		df := filtered(snap, model.KindRoutes, q)
		totals := processor.EntityTotals(df, model.ColRoutePair, col)
		return &RoutesPage{
			Query:     q,
			KPIs:      k,
			Top:       processor.TopN(totals, q.TopN, nil),
			Series:    processor.MonthlySeries(df, col),
			Distances: processor.RouteDistances(df, snap.Airports, q.TopN),
			Stages:    processor.RouteStagesFrom(file.RouteRecords(df), q.TopN),
		}, nil
	})
}

// DeepDive 区域与指标探索页
type DeepDive struct {
	Query        processor.Query          `json:"query"`
	Zones        []processor.ZoneTotal    `json:"zones"`
	ZoneSeries   []processor.ZoneSeries   `json:"zone_series"`
	Distribution []model.Ranked           `json:"distribution"` // 全部机场，按指标降序
	Seasonality  []processor.SeasonBucket `json:"seasonality"`
	Geo          []model.GeoPoint         `json:"geo"`
	Summary      processor.GeoSummary     `json:"geo_summary"`
}

func (s *Service) DeepDive(q processor.Query) (*DeepDive, error) {
	q, err := s.prepare(q)
	if err != nil {
		return nil, err
	}
	col, err := model.KindAirports.Column(q.Metric)
	if err != nil {
		return nil, err
	}
	snap := s.src.Snapshot()
	return storage.Memo(s.cache, s.key(snap, "APT", "deep-dive", q), func() (*DeepDive, error) {
		df := filtered(snap, model.KindAirports, q)
		zones, perZone := processor.ZoneBreakdown(df, col)
		geo := processor.GeoPoints(df, col, snap.Airports)
		return &DeepDive{
			Query:      q,
			Zones:      zones,
			ZoneSeries: perZone,
			Distribution: processor.TopN(
				processor.EntityTotals(df, model.ColAirportCode, col), 0,
				processor.EntityNames(df, model.ColAirportCode, model.ColAirportName)),
			Seasonality: processor.Seasonality(processor.MonthlySeries(df, col), processor.SeasonMean),
			Geo:         geo,
			Summary:     processor.SummarizeGeo(geo),
		}, nil
	})
}

// QualityPage 三张表的质量报告，基于完整的表，不受过滤条件影响
type QualityPage struct {
	Version uint64                        `json:"version"`
	Tables  []processor.TableQuality      `json:"tables"`
	Sources map[model.Kind]file.TableInfo `json:"sources"`
}

// Quality 异常值检查使用查询指标在各表上的列；航段表没有架次时退回旅客数
func (s *Service) Quality(q processor.Query) (*QualityPage, error) {
	q, err := s.prepare(q)
	if err != nil {
		return nil, err
	}
	snap := s.src.Snapshot()
	return storage.Memo(s.cache, s.key(snap, "ALL", "quality", processor.Query{Metric: q.Metric}), func() (*QualityPage, error) {
		page := &QualityPage{Version: snap.Version, Sources: snap.Info}
		for _, kind := range model.AllKinds {
			col, err := kind.Column(q.Metric)
			if err != nil {
				col, _ = kind.Column(model.MetricPassengers)
			}
			report := processor.TableReport(kind, snap.Table(kind), s.opts.Schemas[kind], col, s.opts.IQRMultiplier)
			// 载入时剔除的行和清除的负数
			report.OutOfRangeYears += snap.Info[kind].OutOfRange
			report.NegativeValues += snap.Info[kind].Negative
			page.Tables = append(page.Tables, report)
		}
		return page, nil
	})
}
