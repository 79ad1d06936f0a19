// records.go
package file

import (
	"math"

	"AirTrafficStory/src/model"
	"AirTrafficStory/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// AirportRecords 预处理后的机场表转为记录
func AirportRecords(df dataframe.DataFrame) []model.AirportRecord {
	periods := utils.IntColumn(df, model.ColPeriod)
	codes := utils.StringColumn(df, model.ColAirportCode)
	names := utils.StringColumn(df, model.ColAirportName)
	zones := utils.StringColumn(df, model.ColZone)
	cities := utils.StringColumn(df, model.ColCity)
	lat := utils.FloatColumn(df, model.ColLatitude)
	lon := utils.FloatColumn(df, model.ColLongitude)
	dep := utils.FloatColumn(df, model.ColPaxDeparture)
	arr := utils.FloatColumn(df, model.ColPaxArrival)
	tr := utils.FloatColumn(df, model.ColPaxTransit)
	fdep := utils.FloatColumn(df, model.ColFreightDepart)
	farr := utils.FloatColumn(df, model.ColFreightArrival)
	mpax := utils.FloatColumn(df, model.ColPaxMovements)
	mcargo := utils.FloatColumn(df, model.ColCargoMovements)

	out := make([]model.AirportRecord, df.Nrow())
	for i := range out {
		hasGeo := !math.IsNaN(lat[i]) && !math.IsNaN(lon[i])
		out[i] = model.AirportRecord{
			Period:         model.PeriodFromCode(periods[i]),
			Code:           codes[i],
			Name:           names[i],
			Zone:           model.Zone(zones[i]),
			City:           cities[i],
			HasGeo:         hasGeo,
			PaxDeparture:   zeroNaN(dep[i]),
			PaxArrival:     zeroNaN(arr[i]),
			PaxTransit:     zeroNaN(tr[i]),
			FreightDepart:  zeroNaN(fdep[i]),
			FreightArrival: zeroNaN(farr[i]),
			PaxMovements:   zeroNaN(mpax[i]),
			CargoMovements: zeroNaN(mcargo[i]),
		}
		if hasGeo {
			out[i].Lat, out[i].Lon = lat[i], lon[i]
		}
	}
	return out
}

// AirlineRecords 航空公司表转为记录
func AirlineRecords(df dataframe.DataFrame) []model.AirlineRecord {
	periods := utils.IntColumn(df, model.ColPeriod)
	codes := utils.StringColumn(df, model.ColAirline)
	names := utils.StringColumn(df, model.ColAirlineName)
	countries := utils.StringColumn(df, model.ColAirlineCountry)
	pax := utils.FloatColumn(df, model.ColAirlinePax)
	frp := utils.FloatColumn(df, model.ColAirlineFreight)
	vol := utils.FloatColumn(df, model.ColAirlineFlights)
	pkt := utils.FloatColumn(df, model.ColAirlinePKT)

	out := make([]model.AirlineRecord, df.Nrow())
	for i := range out {
		out[i] = model.AirlineRecord{
			Period:     model.PeriodFromCode(periods[i]),
			Code:       codes[i],
			Name:       names[i],
			Country:    countries[i],
			Passengers: zeroNaN(pax[i]),
			Freight:    zeroNaN(frp[i]),
			Flights:    zeroNaN(vol[i]),
			PKT:        zeroNaN(pkt[i]),
		}
	}
	return out
}

// RouteRecords 航段表转为记录
func RouteRecords(df dataframe.DataFrame) []model.RouteRecord {
	periods := utils.IntColumn(df, model.ColPeriod)
	from := utils.StringColumn(df, model.ColRouteFrom)
	to := utils.StringColumn(df, model.ColRouteTo)
	pax := utils.FloatColumn(df, model.ColRoutePax)
	frp := utils.FloatColumn(df, model.ColRouteFreight)
	pkt := utils.FloatColumn(df, model.ColRoutePKT)

	out := make([]model.RouteRecord, df.Nrow())
	for i := range out {
		out[i] = model.RouteRecord{
			Period:     model.PeriodFromCode(periods[i]),
			From:       from[i],
			To:         to[i],
			Pair:       model.RoutePair(from[i], to[i]),
			Dir:        model.RouteDir(from[i], to[i]),
			Passengers: zeroNaN(pax[i]),
			Freight:    zeroNaN(frp[i]),
			PKT:        zeroNaN(pkt[i]),
		}
	}
	return out
}

// AirportDim 每个机场代码一条维度记录。优先取有坐标的行，同等条件下取最新月份
func AirportDim(df dataframe.DataFrame) map[string]model.AirportInfo {
	dim := make(map[string]model.AirportInfo)
	latest := make(map[string]int)

	for _, r := range AirportRecords(df) {
		if r.Code == "" {
			continue
		}
		cur, seen := dim[r.Code]
		better := !seen ||
			(r.HasGeo && !cur.HasGeo) ||
			(r.HasGeo == cur.HasGeo && r.Period.Code() > latest[r.Code])
		if !better {
			continue
		}
		dim[r.Code] = model.AirportInfo{
			Code:   r.Code,
			Name:   r.Name,
			Zone:   r.Zone,
			City:   r.City,
			Lat:    r.Lat,
			Lon:    r.Lon,
			HasGeo: r.HasGeo,
		}
		latest[r.Code] = r.Period.Code()
	}
	return dim
}
