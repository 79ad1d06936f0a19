package model

import (
	"fmt"
	"strings"
)

// Zone 机场所属区域：本土 (MT) 或海外 (OM)
type Zone string

const (
	ZoneMetropolitan Zone = "MT"
	ZoneOverseas     Zone = "OM"
)

// AllZones 界面上可选的全部区域
var AllZones = []Zone{ZoneMetropolitan, ZoneOverseas}

// ParseZone 接受 MT/OM 代码以及英文、法文的全称
func ParseZone(s string) (Zone, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mt", "metropolitan", "metropole", "métropole", "metro":
		return ZoneMetropolitan, nil
	case "om", "overseas", "outre-mer", "outremer", "dom":
		return ZoneOverseas, nil
	}
	return "", fmt.Errorf("%w: unknown zone %q", ErrInvalidFilter, s)
}

// ParseZones 逐个解析，遇到非法值立即返回
func ParseZones(values []string) ([]Zone, error) {
	out := make([]Zone, 0, len(values))
	for _, v := range values {
		z, err := ParseZone(v)
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, nil
}

func (z Zone) Label() string {
	switch z {
	case ZoneMetropolitan:
		return "Metropolitan"
	case ZoneOverseas:
		return "Overseas"
	}
	return string(z)
}
