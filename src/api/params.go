// params.go
package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"AirTrafficStory/src/model"
	"AirTrafficStory/src/processor"
)

// listParam 同名参数可重复，也可逗号分隔。present 表示参数出现过(即使值为空)
func listParam(values url.Values, name string) (items []string, present bool) {
	raw, ok := values[name]
	if !ok {
		return nil, false
	}
	items = []string{}
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	}
	return items, true
}

// parsePeriodParam end 只给年份时取该年 12 月
func parsePeriodParam(raw string, isEnd bool) (model.Period, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.Period{}, nil
	}
	p, err := model.ParsePeriod(raw)
	if err != nil {
		return p, err
	}
	if isEnd && len(raw) == 4 {
		p.Month = 12
	}
	return p, nil
}

// parseQuery 解析公共过滤参数：start, end, zone, metric, top, airport, airline。
// zone=all 表示不过滤；出现 zone 但没有任何值时表示未选区域
func parseQuery(r *http.Request) (processor.Query, error) {
	values := r.URL.Query()
	var q processor.Query
	var err error

	if q.Range.Start, err = parsePeriodParam(values.Get("start"), false); err != nil {
		return q, err
	}
	if q.Range.End, err = parsePeriodParam(values.Get("end"), true); err != nil {
		return q, err
	}

	if zones, ok := listParam(values, "zone"); ok {
		if len(zones) == 1 && strings.EqualFold(zones[0], "all") {
			q.Zones = nil
		} else {
			parsed, err := model.ParseZones(zones)
			if err != nil {
				return q, err
			}
			q.Zones = parsed
		}
	}

	q.Metric = model.Metric(values.Get("metric"))
	if top := values.Get("top"); top != "" {
		n, err := strconv.Atoi(top)
		if err != nil {
			return q, fmt.Errorf("%w: top %q is not an integer", model.ErrInvalidFilter, top)
		}
		if n <= 0 {
			return q, fmt.Errorf("%w: top must be positive, got %d", model.ErrInvalidFilter, n)
		}
		q.TopN = n
	}
	q.Airports, _ = listParam(values, "airport")
	q.Airlines, _ = listParam(values, "airline")
	return q, nil
}

// parseGrowth 情景预测的月增长率(%)，缺省为 0
func parseGrowth(r *http.Request) (float64, error) {
	raw := r.URL.Query().Get("growth")
	if raw == "" {
		return 0, nil
	}
	g, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: growth %q is not a number", model.ErrInvalidFilter, raw)
	}
	if g < -100 || g > 100 {
		return 0, fmt.Errorf("%w: growth %v outside [-100, 100]", model.ErrInvalidFilter, g)
	}
	return g, nil
}
