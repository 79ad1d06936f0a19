// charts.go
package dashboard

import (
	"fmt"

	"AirTrafficStory/src/chart"
	"AirTrafficStory/src/model"
	"AirTrafficStory/src/processor"
	"AirTrafficStory/src/storage"
)

// 可用的图表名
const (
	ChartTrend       = "trend"
	ChartTop         = "top"
	ChartSeasonality = "seasonality"
	ChartMap         = "map"
	ChartShares      = "shares"
	ChartPerformance = "performance"
)

// ChartNames 固定顺序
var ChartNames = []string{ChartTrend, ChartTop, ChartSeasonality, ChartMap, ChartShares, ChartPerformance}

// Chart 渲染 PNG。kind 决定 trend/top/seasonality 使用的表，
// map 固定为机场表，shares 和 performance 固定为航空公司表
func (s *Service) Chart(name string, kind model.Kind, q processor.Query) ([]byte, error) {
	q, err := s.prepare(q)
	if err != nil {
		return nil, err
	}
	snap := s.src.Snapshot()
	key := s.key(snap, kind.Code(), "chart:"+name, q)
	return storage.Memo(s.cache, key, func() ([]byte, error) {
		title := fmt.Sprintf("%s %s %s", kind.Code(), q.Metric, q.Range)
		switch name {
		case ChartTrend:
			tr, err := s.Trends(kind, q, 0)
			if err != nil {
				return nil, err
			}
			return chart.Trend(title, string(q.Metric), tr.Monthly, tr.Rolling, tr.Covid, tr.Events)
		case ChartSeasonality:
			tr, err := s.Trends(kind, q, 0)
			if err != nil {
				return nil, err
			}
			return chart.Seasonality(title, string(q.Metric), tr.Seasonality)
		case ChartTop:
			ranked, err := s.topFor(kind, q)
			if err != nil {
				return nil, err
			}
			return chart.TopBar(title, string(q.Metric), ranked)
		case ChartMap:
			dd, err := s.DeepDive(q)
			if err != nil {
				return nil, err
			}
			return chart.BubbleMap(fmt.Sprintf("APT %s %s", q.Metric, q.Range), dd.Geo, q.TopN)
		case ChartShares:
			al, err := s.Airlines(q)
			if err != nil {
				return nil, err
			}
			return chart.Shares(fmt.Sprintf("CIE %s %s", q.Metric, q.Range), al.Shares)
		case ChartPerformance:
			al, err := s.Airlines(q)
			if err != nil {
				return nil, err
			}
			return chart.Performance(fmt.Sprintf("CIE flights vs pkt %s", q.Range), al.Performance)
		}
		return nil, fmt.Errorf("%w: unknown chart %q", model.ErrInvalidFilter, name)
	})
}

func (s *Service) topFor(kind model.Kind, q processor.Query) ([]model.Ranked, error) {
	switch kind {
	case model.KindAirlines:
		p, err := s.Airlines(q)
		if err != nil {
			return nil, err
		}
		return p.Top, nil
	case model.KindRoutes:
		p, err := s.Routes(q)
		if err != nil {
			return nil, err
		}
		return p.Top, nil
	}
	p, err := s.Airports(q)
	if err != nil {
		return nil, err
	}
	return p.Top, nil
}
