// chart.go
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"AirTrafficStory/src/model"
	"AirTrafficStory/src/processor"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// 图片尺寸
var (
	Width  = 10 * vg.Inch
	Height = 5 * vg.Inch
)

var (
	lineColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	rollColor   = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	bandColor   = color.RGBA{R: 214, G: 39, B: 40, A: 40}
	eventColor  = color.RGBA{R: 127, G: 127, B: 127, A: 255}
	metroColor  = color.RGBA{R: 31, G: 119, B: 180, A: 200}
	oversColor  = color.RGBA{R: 44, G: 160, B: 44, A: 200}
	shareColors = []color.Color{
		color.RGBA{R: 31, G: 119, B: 180, A: 255},
		color.RGBA{R: 255, G: 127, B: 14, A: 255},
		color.RGBA{R: 44, G: 160, B: 44, A: 255},
		color.RGBA{R: 214, G: 39, B: 40, A: 255},
		color.RGBA{R: 148, G: 103, B: 189, A: 255},
		color.RGBA{R: 140, G: 86, B: 75, A: 255},
		color.RGBA{R: 227, G: 119, B: 194, A: 255},
		color.RGBA{R: 188, G: 189, B: 34, A: 255},
		color.RGBA{R: 23, G: 190, B: 207, A: 255},
		color.RGBA{R: 127, G: 127, B: 127, A: 255},
	}
)

// decimalYear 月份在横轴上的位置，2019-07 -> 2019.5
func decimalYear(p model.Period) float64 {
	return float64(p.Year) + float64(p.Month-1)/12
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

// render 输出 PNG
func render(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return nil, fmt.Errorf("生成图片失败: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("写出图片失败: %w", err)
	}
	return buf.Bytes(), nil
}

// seriesXYs 只取有效的点
func seriesXYs(s model.Series) plotter.XYs {
	xys := make(plotter.XYs, 0, len(s))
	for _, pt := range s {
		if pt.Value.Valid {
			xys = append(xys, plotter.XY{X: decimalYear(pt.Period), Y: pt.Value.V})
		}
	}
	return xys
}

// Trend 月度折线，叠加滚动均值、疫情阴影区间和重大事件竖线
func Trend(title, yLabel string, monthly, rolling model.Series, band model.Band, events []model.Band) ([]byte, error) {
	p := newPlot(title, "", yLabel)
	xys := seriesXYs(monthly)
	if len(xys) == 0 {
		return render(p)
	}

	maxY := 0.0
	for _, xy := range xys {
		maxY = math.Max(maxY, xy.Y)
	}
	x0, x1 := xys[0].X, xys[len(xys)-1].X

	// 1. 疫情区间，只画与数据重叠的部分
	bx0 := math.Max(decimalYear(band.Start), x0)
	bx1 := math.Min(decimalYear(band.End)+1.0/12, x1)
	if bx0 < bx1 {
		poly, err := plotter.NewPolygon(plotter.XYs{{X: bx0, Y: 0}, {X: bx1, Y: 0}, {X: bx1, Y: maxY}, {X: bx0, Y: maxY}})
		if err != nil {
			return nil, err
		}
		poly.Color = bandColor
		poly.LineStyle.Width = 0
		p.Add(poly)
		p.Legend.Add(band.Label, poly)
	}

	// 2. 事件竖线
	for _, ev := range events {
		x := decimalYear(ev.Start)
		if x < x0 || x > x1 {
			continue
		}
		l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: maxY}})
		if err != nil {
			return nil, err
		}
		l.Color = eventColor
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(l)
	}

	// 3. 数据线
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.Color = lineColor
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("monthly", line)

	if r := seriesXYs(rolling); len(r) > 0 {
		rl, err := plotter.NewLine(r)
		if err != nil {
			return nil, err
		}
		rl.Color = rollColor
		p.Add(rl)
		p.Legend.Add("rolling mean", rl)
	}
	p.Legend.Top = true
	p.Y.Min = 0
	return render(p)
}

// TopBar 前 N 名柱状图，横轴为名称
func TopBar(title, yLabel string, ranked []model.Ranked) ([]byte, error) {
	p := newPlot(title, "", yLabel)
	if len(ranked) == 0 {
		return render(p)
	}
	values := make(plotter.Values, len(ranked))
	labels := make([]string, len(ranked))
	for i, r := range ranked {
		values[i] = r.Value
		labels[i] = shortLabel(r.Name, 18)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, err
	}
	bars.Color = lineColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.Y.Min = 0
	return render(p)
}

// Seasonality 12 个日历月的柱状图
func Seasonality(title, yLabel string, buckets []processor.SeasonBucket) ([]byte, error) {
	p := newPlot(title, "", yLabel)
	values := make(plotter.Values, 12)
	labels := make([]string, 12)
	for i := range labels {
		labels[i] = model.Period{Year: 2000, Month: i + 1}.String()[5:]
	}
	for _, b := range buckets {
		if b.Month >= 1 && b.Month <= 12 {
			values[b.Month-1] = b.Value.Or(0)
		}
	}
	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return nil, err
	}
	bars.Color = rollColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	p.Y.Min = 0
	return render(p)
}

// BubbleMap 经纬度散点，半径与权重的平方根成正比，颜色区分区域
func BubbleMap(title string, points []model.GeoPoint, labelTop int) ([]byte, error) {
	p := newPlot(title, "longitude", "latitude")
	if len(points) == 0 {
		return render(p)
	}
	maxW := 0.0
	for _, pt := range points {
		maxW = math.Max(maxW, pt.Weight)
	}

	for _, pt := range points {
		bubble, err := plotter.NewScatter(plotter.XYs{{X: pt.Lon, Y: pt.Lat}})
		if err != nil {
			return nil, err
		}
		radius := vg.Points(2)
		if maxW > 0 && pt.Weight > 0 {
			radius = vg.Points(2 + 14*math.Sqrt(pt.Weight/maxW))
		}
		bubble.GlyphStyle.Radius = radius
		bubble.GlyphStyle.Shape = draw.CircleGlyph{}
		bubble.GlyphStyle.Color = metroColor
		if pt.Zone == model.ZoneOverseas {
			bubble.GlyphStyle.Color = oversColor
		}
		p.Add(bubble)
	}

	// 权重最大的几个机场加标签
	if labelTop > 0 {
		top := make(map[string]float64, len(points))
		for _, pt := range points {
			top[pt.Code] = pt.Weight
		}
		keep := processor.TopN(top, labelTop, nil)
		var xys plotter.XYs
		var labels []string
		for _, r := range keep {
			for _, pt := range points {
				if pt.Code == r.Code {
					xys = append(xys, plotter.XY{X: pt.Lon, Y: pt.Lat})
					labels = append(labels, shortLabel(pt.Name, 14))
					break
				}
			}
		}
		if len(xys) > 0 {
			lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
			if err != nil {
				return nil, err
			}
			p.Add(lbl)
		}
	}
	return render(p)
}

// Performance 航班数对旅客公里的气泡图，半径按旅客数
func Performance(title string, perf []processor.AirlinePerformance) ([]byte, error) {
	p := newPlot(title, "flights", "passenger-km")
	if len(perf) == 0 {
		return render(p)
	}
	maxPax := 0.0
	for _, a := range perf {
		maxPax = math.Max(maxPax, a.Passengers)
	}

	xys := make(plotter.XYs, 0, len(perf))
	labels := make([]string, 0, len(perf))
	for i, a := range perf {
		bubble, err := plotter.NewScatter(plotter.XYs{{X: a.Flights, Y: a.PKT}})
		if err != nil {
			return nil, err
		}
		bubble.GlyphStyle.Radius = vg.Points(2)
		if maxPax > 0 && a.Passengers > 0 {
			bubble.GlyphStyle.Radius = vg.Points(2 + 14*math.Sqrt(a.Passengers/maxPax))
		}
		bubble.GlyphStyle.Shape = draw.CircleGlyph{}
		bubble.GlyphStyle.Color = shareColors[i%len(shareColors)]
		p.Add(bubble)

		xys = append(xys, plotter.XY{X: a.Flights, Y: a.PKT})
		labels = append(labels, shortLabel(a.Name, 14))
	}
	lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, err
	}
	p.Add(lbl)
	return render(p)
}

// Shares 各实体份额折线
func Shares(title string, shares []processor.ShareSeries) ([]byte, error) {
	p := newPlot(title, "", "share")
	for i, s := range shares {
		xys := seriesXYs(s.Points)
		if len(xys) == 0 {
			continue
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		l.Color = shareColors[i%len(shareColors)]
		p.Add(l)
		p.Legend.Add(shortLabel(s.Name, 16), l)
	}
	p.Legend.Top = true
	p.Y.Min = 0
	p.Y.Max = 1
	return render(p)
}

func shortLabel(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
