package model

// Point 时间序列中的一个点
type Point struct {
	Period Period `json:"period"`
	Value  Value  `json:"value"`
}

// Series 按时间升序排列的序列
type Series []Point

// Values 只取有效的点，未定义的点被跳过
func (s Series) Values() []float64 {
	out := make([]float64, 0, len(s))
	for _, p := range s {
		if p.Value.Valid {
			out = append(out, p.Value.V)
		}
	}
	return out
}

// Last 最后一个点，空序列返回 false
func (s Series) Last() (Point, bool) {
	if len(s) == 0 {
		return Point{}, false
	}
	return s[len(s)-1], true
}

// Ranked 排名条目
type Ranked struct {
	Rank  int     `json:"rank"`
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Share Value   `json:"share"`
}

// GeoPoint 地图上的一个机场
type GeoPoint struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Zone   Zone    `json:"zone"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Weight float64 `json:"weight"`
}

// Band 图表上的标注区间
type Band struct {
	Label string `json:"label"`
	Start Period `json:"start"`
	End   Period `json:"end"`
}
