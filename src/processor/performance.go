// performance.go
package processor

import (
	"sort"

	"AirTrafficStory/src/model"
)

// AirlinePerformance 航空公司在区间内的运力产出：航班、旅客公里、旅客
type AirlinePerformance struct {
	Code         string      `json:"code"`
	Name         string      `json:"name"`
	Flights      float64     `json:"flights"`
	PKT          float64     `json:"pkt"`
	Passengers   float64     `json:"passengers"`
	PaxPerFlight model.Value `json:"pax_per_flight"`
	KMPerPax     model.Value `json:"km_per_pax"`
}

// AirlinePerformanceFrom 按公司汇总月度记录，旅客数降序，取前 n 家(n<=0 时全部)
func AirlinePerformanceFrom(records []model.AirlineRecord, n int) []AirlinePerformance {
	byCode := make(map[string]*AirlinePerformance)
	for _, r := range records {
		p, ok := byCode[r.Code]
		if !ok {
			p = &AirlinePerformance{Code: r.Code, Name: r.Code}
			byCode[r.Code] = p
		}
		if r.Name != "" {
			p.Name = r.Name
		}
		p.Flights += r.Flights
		p.PKT += r.PKT
		p.Passengers += r.Passengers
	}

	out := make([]AirlinePerformance, 0, len(byCode))
	for _, p := range byCode {
		p.PaxPerFlight = model.Ratio(p.Passengers, p.Flights)
		p.KMPerPax = model.Ratio(p.PKT, p.Passengers)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Passengers != out[j].Passengers {
			return out[i].Passengers > out[j].Passengers
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Code < out[j].Code
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// RouteStage 一条无向航线的旅客公里和平均航段长度(pkt/旅客)
type RouteStage struct {
	Pair       string      `json:"pair"`
	Passengers float64     `json:"passengers"`
	PKT        float64     `json:"pkt"`
	AvgStageKM model.Value `json:"avg_stage_km"`
}

// RouteStagesFrom 按无向航线汇总，旅客公里降序，取前 n 条
func RouteStagesFrom(records []model.RouteRecord, n int) []RouteStage {
	byPair := make(map[string]*RouteStage)
	for _, r := range records {
		if r.From == "" || r.To == "" {
			continue
		}
		s, ok := byPair[r.Pair]
		if !ok {
			s = &RouteStage{Pair: r.Pair}
			byPair[r.Pair] = s
		}
		s.Passengers += r.Passengers
		s.PKT += r.PKT
	}

	out := make([]RouteStage, 0, len(byPair))
	for _, s := range byPair {
		s.AvgStageKM = model.Ratio(s.PKT, s.Passengers)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PKT != out[j].PKT {
			return out[i].PKT > out[j].PKT
		}
		return out[i].Pair < out[j].Pair
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
