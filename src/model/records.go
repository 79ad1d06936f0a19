package model

// AirportRecord 机场月度记录 (APT)
type AirportRecord struct {
	Period         Period  `json:"period"`
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Zone           Zone    `json:"zone"`
	City           string  `json:"city,omitempty"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	HasGeo         bool    `json:"has_geo"`
	PaxDeparture   float64 `json:"pax_departure"`
	PaxArrival     float64 `json:"pax_arrival"`
	PaxTransit     float64 `json:"pax_transit"`
	FreightDepart  float64 `json:"freight_departure"`
	FreightArrival float64 `json:"freight_arrival"`
	PaxMovements   float64 `json:"pax_movements"`
	CargoMovements float64 `json:"cargo_movements"`
}

func (r AirportRecord) Passengers() float64 {
	return r.PaxDeparture + r.PaxArrival + r.PaxTransit
}

func (r AirportRecord) Freight() float64 {
	return r.FreightDepart + r.FreightArrival
}

func (r AirportRecord) Movements() float64 {
	return r.PaxMovements + r.CargoMovements
}

// AirlineRecord 航空公司月度记录 (CIE)
type AirlineRecord struct {
	Period     Period  `json:"period"`
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Country    string  `json:"country,omitempty"`
	Passengers float64 `json:"passengers"`
	Freight    float64 `json:"freight"`
	Flights    float64 `json:"flights"`
	PKT        float64 `json:"pkt"`
}

// RouteRecord 航段月度记录 (LSN)
type RouteRecord struct {
	Period     Period  `json:"period"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	Pair       string  `json:"pair"`
	Dir        string  `json:"dir"`
	Passengers float64 `json:"passengers"`
	Freight    float64 `json:"freight"`
	PKT        float64 `json:"pkt"`
}

// AirportInfo 静态机场维度：代码 -> 名称、区域、坐标
type AirportInfo struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Zone   Zone    `json:"zone"`
	City   string  `json:"city,omitempty"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	HasGeo bool    `json:"has_geo"`
}
