package model

import (
	"fmt"
	"strings"
)

// Metric 界面可选的指标
type Metric string

const (
	MetricPassengers Metric = "passengers"
	MetricFreight    Metric = "freight"
	MetricMovements  Metric = "movements"
)

func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", MetricPassengers:
		return MetricPassengers, nil
	case MetricFreight:
		return MetricFreight, nil
	case MetricMovements:
		return MetricMovements, nil
	}
	return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidFilter, s)
}

// Kind 三张基础表
type Kind string

const (
	KindAirports Kind = "airports"
	KindAirlines Kind = "airlines"
	KindRoutes   Kind = "routes"
)

// AllKinds 固定顺序，导出和质量报告都按这个顺序
var AllKinds = []Kind{KindAirports, KindAirlines, KindRoutes}

// ParseKind 接受 airports/airlines/routes 以及 APT/CIE/LSN 目录名，空串为机场表
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "airports", "apt":
		return KindAirports, nil
	case "airlines", "cie":
		return KindAirlines, nil
	case "routes", "lsn":
		return KindRoutes, nil
	}
	return "", fmt.Errorf("%w: unknown table %q", ErrInvalidFilter, s)
}

// Code DGAC 数据集的目录名
func (k Kind) Code() string {
	switch k {
	case KindAirports:
		return "APT"
	case KindAirlines:
		return "CIE"
	case KindRoutes:
		return "LSN"
	}
	return strings.ToUpper(string(k))
}

// Column 指标在各表中对应的列，航线表没有起降架次
func (k Kind) Column(m Metric) (string, error) {
	var col string
	switch k {
	case KindAirports:
		switch m {
		case MetricPassengers:
			col = ColPassengersTotal
		case MetricFreight:
			col = ColFreightTotal
		case MetricMovements:
			col = ColMovementsTotal
		}
	case KindAirlines:
		switch m {
		case MetricPassengers:
			col = ColAirlinePax
		case MetricFreight:
			col = ColAirlineFreight
		case MetricMovements:
			col = ColAirlineFlights
		}
	case KindRoutes:
		switch m {
		case MetricPassengers:
			col = ColRoutePax
		case MetricFreight:
			col = ColRouteFreight
		}
	}
	if col == "" {
		return "", fmt.Errorf("%w: metric %s not available for %s", ErrInvalidFilter, m, k)
	}
	return col, nil
}

// EntityColumns 实体的代码列与名称列
func (k Kind) EntityColumns() (code, name string) {
	switch k {
	case KindAirports:
		return ColAirportCode, ColAirportName
	case KindAirlines:
		return ColAirline, ColAirlineName
	case KindRoutes:
		return ColRoutePair, ColRoutePair
	}
	return "", ""
}
