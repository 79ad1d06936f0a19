// zones.go
package processor

import (
	"math"
	"sort"

	"AirTrafficStory/src/model"
	"AirTrafficStory/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// ZoneTotal 区域合计
type ZoneTotal struct {
	Zone  model.Zone  `json:"zone"`
	Label string      `json:"label"`
	Value float64     `json:"value"`
	Share model.Value `json:"share"`
}

// ZoneSeries 某区域的月度序列
type ZoneSeries struct {
	Zone   model.Zone   `json:"zone"`
	Points model.Series `json:"points"`
}

// ZoneBreakdown 机场表按区域汇总，以及每个区域的月度序列
func ZoneBreakdown(df dataframe.DataFrame, col string) ([]ZoneTotal, []ZoneSeries) {
	if !utils.HasColumns(df, model.ColZone, model.ColPeriod, col) {
		return []ZoneTotal{}, []ZoneSeries{}
	}
	zones := utils.StringColumn(df, model.ColZone)
	periods := utils.IntColumn(df, model.ColPeriod)
	vals := utils.FloatColumn(df, col)

	totals := make(map[string]float64)
	perZone := make(map[string]map[int]float64)
	for i, z := range zones {
		v := vals[i]
		if math.IsNaN(v) {
			v = 0
		}
		totals[z] += v
		if perZone[z] == nil {
			perZone[z] = make(map[int]float64)
		}
		perZone[z][periods[i]] += v
	}

	grand := total(totals)
	out := make([]ZoneTotal, 0, len(totals))
	for _, z := range sortedKeys(totals) {
		zone := model.Zone(z)
		out = append(out, ZoneTotal{
			Zone:  zone,
			Label: zone.Label(),
			Value: totals[z],
			Share: model.Ratio(totals[z], grand),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })

	series := make([]ZoneSeries, 0, len(perZone))
	for _, z := range sortedKeys(totals) {
		codes := make([]int, 0, len(perZone[z]))
		for c := range perZone[z] {
			codes = append(codes, c)
		}
		sort.Ints(codes)
		pts := make(model.Series, len(codes))
		for i, c := range codes {
			pts[i] = model.Point{Period: model.PeriodFromCode(c), Value: model.Some(perZone[z][c])}
		}
		series = append(series, ZoneSeries{Zone: model.Zone(z), Points: pts})
	}
	return out, series
}
