package model

// 处理后数据表中的规范列名
const (
	ColPeriod  = "period"
	ColYear    = "annee"
	ColMonth   = "mois"
	ColQuarter = "quarter"

	ColAirportCode     = "code_aeroport"
	ColAirportName     = "nom_aeroport"
	ColZone            = "zone"
	ColCity            = "ville"
	ColLatitude        = "latitude"
	ColLongitude       = "longitude"
	ColPaxDeparture    = "passagers_depart"
	ColPaxArrival      = "passagers_arrivee"
	ColPaxTransit      = "passagers_transit"
	ColFreightDepart   = "fret_depart"
	ColFreightArrival  = "fret_arrivee"
	ColPaxMovements    = "mouvements_passagers"
	ColCargoMovements  = "mouvements_cargo"
	ColPassengersTotal = "passagers_total"
	ColFreightTotal    = "fret_total"
	ColMovementsTotal  = "mouvements_total"
	ColHasGeo          = "has_geo"

	ColAirline        = "cie"
	ColAirlineName    = "cie_nom"
	ColAirlineCountry = "cie_pays"
	ColAirlinePax     = "cie_pax"
	ColAirlineFreight = "cie_frp"
	ColAirlineFlights = "cie_vol"
	ColAirlinePKT     = "cie_pkt"

	ColRouteSegment = "lsn_seg"
	ColRouteFSC     = "lsn_fsc"
	ColRouteFrom    = "lsn_1"
	ColRouteTo      = "lsn_2"
	ColRoutePax     = "lsn_pax"
	ColRouteFreight = "lsn_frp"
	ColRoutePKT     = "lsn_pkt"
	ColRouteDir     = "route_dir"
	ColRoutePair    = "route_pair"
)

// MeasureColumns 各表的计数类列，取值不能为负。经纬度不在其中
var MeasureColumns = map[Kind][]string{
	KindAirports: {
		ColPaxDeparture, ColPaxArrival, ColPaxTransit,
		ColFreightDepart, ColFreightArrival,
		ColPaxMovements, ColCargoMovements,
	},
	KindAirlines: {ColAirlinePax, ColAirlinePKT, "cie_tkt", ColAirlineFreight, ColAirlineFlights, "cie_peq", "cie_peqkt"},
	KindRoutes:   {ColRoutePax, ColRoutePKT, "lsn_tkt", ColRouteFreight, "lsn_peq", "lsn_peqkt"},
}

// DerivedColumns 由加载步骤生成的列，模式校验时不算多余列
var DerivedColumns = []string{
	"date", "year", "month", ColQuarter, ColPeriod,
	ColPassengersTotal, ColFreightTotal, ColMovementsTotal, ColHasGeo,
	ColRouteDir, ColRoutePair,
}

// 航线标识中的分隔符
const (
	PairSeparator = " — "
	DirSeparator  = " → "
)

// RoutePair 无向航线，两端代码按字典序排列
func RoutePair(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + PairSeparator + b
}

// RouteDir 有向航线
func RouteDir(from, to string) string {
	return from + DirSeparator + to
}
