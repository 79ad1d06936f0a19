// geo.go
package processor

import (
	"math"
	"sort"

	"AirTrafficStory/src/model"
	"AirTrafficStory/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/skypies/geo"
	"gonum.org/v1/gonum/stat"
)

// GeoSummary 地图概况
type GeoSummary struct {
	Centroid *Coord       `json:"centroid"`
	BBox     *BoundingBox `json:"bbox"`
	Airports int          `json:"airport_count"`
}

// Coord 经纬度
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox 经纬度范围
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// GeoPoints 每个有坐标的机场一个点，权重为查询指标在区间内的合计。
// 坐标取自机场维度，按代码升序
func GeoPoints(df dataframe.DataFrame, col string, dim map[string]model.AirportInfo) []model.GeoPoint {
	totals := EntityTotals(df, model.ColAirportCode, col)
	out := make([]model.GeoPoint, 0, len(totals))
	for _, code := range sortedKeys(totals) {
		info, ok := dim[code]
		if !ok || !info.HasGeo {
			continue
		}
		out = append(out, model.GeoPoint{
			Code:   code,
			Name:   info.Name,
			Zone:   info.Zone,
			Lat:    info.Lat,
			Lon:    info.Lon,
			Weight: totals[code],
		})
	}
	return out
}

// Centroid 按权重的平面平均经纬度；总权重为 0 时退化为简单平均，没有点时返回 nil
func Centroid(points []model.GeoPoint) *Coord {
	if len(points) == 0 {
		return nil
	}
	lats := make([]float64, len(points))
	lons := make([]float64, len(points))
	weights := make([]float64, len(points))
	var sum float64
	for i, p := range points {
		lats[i], lons[i] = p.Lat, p.Lon
		if p.Weight > 0 {
			weights[i] = p.Weight
			sum += p.Weight
		}
	}
	if sum <= 0 {
		weights = nil
	}
	return &Coord{Lat: stat.Mean(lats, weights), Lon: stat.Mean(lons, weights)}
}

func BBox(points []model.GeoPoint) *BoundingBox {
	if len(points) == 0 {
		return nil
	}
	b := BoundingBox{
		MinLat: math.Inf(1), MaxLat: math.Inf(-1),
		MinLon: math.Inf(1), MaxLon: math.Inf(-1),
	}
	for _, p := range points {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return &b
}

// SummarizeGeo 质心、范围和机场数
func SummarizeGeo(points []model.GeoPoint) GeoSummary {
	return GeoSummary{Centroid: Centroid(points), BBox: BBox(points), Airports: len(points)}
}

// Hub 枢纽机场
type Hub struct {
	Rank       int        `json:"rank"`
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	Zone       model.Zone `json:"zone"`
	Passengers float64    `json:"passengers"`
	Freight    float64    `json:"freight"`
	Lat        *float64   `json:"lat"`
	Lon        *float64   `json:"lon"`
}

// Hubs 按旅客量排名前 n 的机场，附货运量和坐标
func Hubs(df dataframe.DataFrame, n int, dim map[string]model.AirportInfo) []Hub {
	pax := EntityTotals(df, model.ColAirportCode, model.ColPassengersTotal)
	freight := EntityTotals(df, model.ColAirportCode, model.ColFreightTotal)
	names := EntityNames(df, model.ColAirportCode, model.ColAirportName)

	ranked := TopN(pax, n, names)
	out := make([]Hub, len(ranked))
	for i, r := range ranked {
		h := Hub{
			Rank:       r.Rank,
			Code:       r.Code,
			Name:       r.Name,
			Passengers: r.Value,
			Freight:    freight[r.Code],
		}
		if info, ok := dim[r.Code]; ok {
			h.Zone = info.Zone
			if info.HasGeo {
				lat, lon := info.Lat, info.Lon
				h.Lat, h.Lon = &lat, &lon
			}
		}
		out[i] = h
	}
	return out
}

// RouteDistance 一条无向航线的大圆距离
type RouteDistance struct {
	Pair       string  `json:"pair"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	DistanceKM float64 `json:"distance_km"`
	Passengers float64 `json:"passengers"`
}

// RouteGeo 航线距离概况。两端都有坐标的航线才参与计算
type RouteGeo struct {
	Routes        int             `json:"routes"`
	Located       int             `json:"located"`
	WeightedAvgKM model.Value     `json:"weighted_avg_km"`
	Longest       []RouteDistance `json:"longest"`
	Busiest       []RouteDistance `json:"busiest"`
}

// RouteDistances 用机场坐标计算每条航线的距离，按旅客量加权求平均
func RouteDistances(df dataframe.DataFrame, dim map[string]model.AirportInfo, n int) RouteGeo {
	var out RouteGeo
	if !utils.HasColumns(df, model.ColRouteFrom, model.ColRouteTo) {
		return out
	}
	from := utils.StringColumn(df, model.ColRouteFrom)
	to := utils.StringColumn(df, model.ColRouteTo)
	pax := utils.FloatColumn(df, model.ColRoutePax)

	routes := make(map[string]*RouteDistance)
	for i := range from {
		pair := model.RoutePair(from[i], to[i])
		r, ok := routes[pair]
		if !ok {
			a, b := from[i], to[i]
			if b < a {
				a, b = b, a
			}
			r = &RouteDistance{Pair: pair, From: a, To: b, DistanceKM: math.NaN()}
			routes[pair] = r
		}
		if !math.IsNaN(pax[i]) {
			r.Passengers += pax[i]
		}
	}
	out.Routes = len(routes)

	located := make([]RouteDistance, 0, len(routes))
	var dists, weights []float64
	for _, r := range routes {
		a, okA := dim[r.From]
		b, okB := dim[r.To]
		if !okA || !okB || !a.HasGeo || !b.HasGeo {
			continue
		}
		r.DistanceKM = geo.Latlong{Lat: a.Lat, Long: a.Lon}.DistKM(geo.Latlong{Lat: b.Lat, Long: b.Lon})
		located = append(located, *r)
		dists = append(dists, r.DistanceKM)
		weights = append(weights, r.Passengers)
	}
	out.Located = len(located)

	var wsum float64
	for _, w := range weights {
		wsum += w
	}
	if wsum > 0 {
		out.WeightedAvgKM = model.Some(stat.Mean(dists, weights))
	}

	sort.Slice(located, func(i, j int) bool {
		if located[i].DistanceKM != located[j].DistanceKM {
			return located[i].DistanceKM > located[j].DistanceKM
		}
		return located[i].Pair < located[j].Pair
	})
	out.Longest = headRoutes(located, n)

	sort.Slice(located, func(i, j int) bool {
		if located[i].Passengers != located[j].Passengers {
			return located[i].Passengers > located[j].Passengers
		}
		return located[i].Pair < located[j].Pair
	})
	out.Busiest = headRoutes(located, n)
	return out
}

func headRoutes(rs []RouteDistance, n int) []RouteDistance {
	if n > 0 && len(rs) > n {
		rs = rs[:n]
	}
	out := make([]RouteDistance, len(rs))
	copy(out, rs)
	return out
}
