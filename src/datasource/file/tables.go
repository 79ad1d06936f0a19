// tables.go
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"
	"time"

	"AirTrafficStory/src/model"
	"AirTrafficStory/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 各表需要转成数值的列
var (
	airportNumeric = append(append([]string{}, model.MeasureColumns[model.KindAirports]...),
		model.ColLatitude, model.ColLongitude)
	airlineNumeric = model.MeasureColumns[model.KindAirlines]
	routeNumeric   = model.MeasureColumns[model.KindRoutes]
)

// PrepStats 预处理中丢弃的行和清除的单元格
type PrepStats struct {
	InvalidDates    int // 年月无法解析
	OutOfRangeYears int // 年份不在 [MinYear, MaxYear]
	NegativeValues  int // 计数列中的负数，置为缺失
}

// Dropped 被丢弃的行数
func (ps PrepStats) Dropped() int {
	return ps.InvalidDates + ps.OutOfRangeYears
}

// NaNFunc 判断单元格是否表示缺失
type NaNFunc func(string) bool

// DefaultNaN 与处理脚本一致的缺失值标记
func DefaultNaN(cell string) bool {
	switch cell {
	case "", " ", "-", "nan", "NaN", "None":
		return true
	}
	return false
}

// TableInfo 一张表的来源和载入统计
type TableInfo struct {
	Kind    model.Kind `json:"kind"`
	Path    string     `json:"path"`
	Size    int64      `json:"size"`
	ModTime time.Time  `json:"mod_time"`
	Rows    int        `json:"rows"`
	Dropped int        `json:"dropped_rows"` // 日期无效或超出年份范围被丢弃的行
	// 年份超出范围的行数(已计入 Dropped)和被清除的负数单元格
	OutOfRange int  `json:"out_of_range_rows"`
	Negative   int  `json:"negative_values"`
	Missing    bool `json:"missing"` // 文件不存在，使用空表
}

// Identity 文件身份：路径、大小、修改时间
func (ti TableInfo) Identity() string {
	return fmt.Sprintf("%s:%d:%d", ti.Path, ti.Size, ti.ModTime.UnixNano())
}

// Snapshot 三张表的只读快照，载入后不再修改
type Snapshot struct {
	Version  uint64
	LoadedAt time.Time
	Info     map[model.Kind]TableInfo
	Airports map[string]model.AirportInfo // 静态机场维度

	tables map[model.Kind]dataframe.DataFrame
}

// Table 返回某张表；未载入时返回带规范列的空表
func (s *Snapshot) Table(k model.Kind) dataframe.DataFrame {
	if s != nil {
		if df, ok := s.tables[k]; ok {
			return df
		}
	}
	return EmptyTable(k)
}

// Airport 查维度表
func (s *Snapshot) Airport(code string) (model.AirportInfo, bool) {
	if s == nil {
		return model.AirportInfo{}, false
	}
	info, ok := s.Airports[code]
	return info, ok
}

// Source 快照的输入
type Source struct {
	Paths   map[model.Kind]string
	Options ReadOptions
	IsNaN   NaNFunc
}

// LoadSnapshot 依次载入三张表。文件不存在时使用空表并在 Info 中标记，
// 读取或解析失败时返回错误
func LoadSnapshot(src Source, version uint64) (*Snapshot, error) {
	snap := &Snapshot{
		Version:  version,
		LoadedAt: time.Now(),
		Info:     make(map[model.Kind]TableInfo, len(model.AllKinds)),
		tables:   make(map[model.Kind]dataframe.DataFrame, len(model.AllKinds)),
	}

	for _, kind := range model.AllKinds {
		df, info, err := LoadTable(kind, src.Paths[kind], src.Options, src.IsNaN)
		if err != nil {
			return nil, fmt.Errorf("载入 %s 失败: %w", kind.Code(), err)
		}
		snap.tables[kind] = df
		snap.Info[kind] = info
	}

	snap.Airports = AirportDim(snap.tables[model.KindAirports])
	return snap, nil
}

// NewSnapshot 由内存中的表直接构造快照，缺失的表使用空表
func NewSnapshot(version uint64, tables map[model.Kind]dataframe.DataFrame) *Snapshot {
	snap := &Snapshot{
		Version:  version,
		LoadedAt: time.Now(),
		Info:     make(map[model.Kind]TableInfo, len(model.AllKinds)),
		tables:   make(map[model.Kind]dataframe.DataFrame, len(model.AllKinds)),
	}
	for _, kind := range model.AllKinds {
		df, ok := tables[kind]
		if !ok {
			df = EmptyTable(kind)
		}
		snap.tables[kind] = df
		snap.Info[kind] = TableInfo{Kind: kind, Rows: df.Nrow(), Missing: !ok}
	}
	snap.Airports = AirportDim(snap.tables[model.KindAirports])
	return snap
}

// LoadTable 读取并预处理一张表
func LoadTable(kind model.Kind, path string, opts ReadOptions, isNaN NaNFunc) (dataframe.DataFrame, TableInfo, error) {
	info := TableInfo{Kind: kind, Path: path}

	st, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || path == "" {
		info.Missing = true
		return EmptyTable(kind), info, nil
	}
	if err != nil {
		return dataframe.DataFrame{}, info, err
	}
	info.Size = st.Size()
	info.ModTime = st.ModTime()

	raw, err := ReadTable(path, opts)
	if err != nil {
		return dataframe.DataFrame{}, info, err
	}

	df, stats, err := Prepare(kind, raw, isNaN)
	if err != nil {
		return dataframe.DataFrame{}, info, err
	}
	info.Rows = df.Nrow()
	info.Dropped = stats.Dropped()
	info.OutOfRange = stats.OutOfRangeYears
	info.Negative = stats.NegativeValues
	return df, info, nil
}

// Prepare 日期派生、数值转换和派生列。超出年份范围的行被丢弃，计数列的负数置为缺失
func Prepare(kind model.Kind, raw dataframe.DataFrame, isNaN NaNFunc) (dataframe.DataFrame, PrepStats, error) {
	if isNaN == nil {
		isNaN = DefaultNaN
	}

	df, stats, err := DeriveDates(raw)
	if err != nil {
		return df, stats, err
	}

	var negatives int
	switch kind {
	case model.KindAirports:
		df, negatives = prepAirports(df, isNaN)
	case model.KindAirlines:
		df, negatives = prepAirlines(df, isNaN)
	case model.KindRoutes:
		df, negatives = prepRoutes(df, isNaN)
	default:
		return df, stats, fmt.Errorf("%w: unknown table %s", model.ErrInvalidFilter, kind)
	}
	stats.NegativeValues = negatives
	if df.Err != nil {
		return df, stats, fmt.Errorf("预处理 %s 失败: %w", kind.Code(), df.Err)
	}
	return df, stats, nil
}

// coerce 把列转换为浮点数，fillZero 为 true 时缺失值记为 0。
// 经纬度以外的列负数视为缺失，返回被清除的个数
func coerce(df dataframe.DataFrame, col string, isNaN NaNFunc, fillZero bool) (dataframe.DataFrame, []float64, int) {
	n := df.Nrow()
	vals := make([]float64, n)
	cells := utils.StringColumn(df, col)
	present := utils.HasColumn(df, col)
	signed := col == model.ColLatitude || col == model.ColLongitude
	negatives := 0
	for i := 0; i < n; i++ {
		v := math.NaN()
		if present && !isNaN(cells[i]) {
			if f, ok := utils.ParseFloat(cells[i]); ok {
				v = f
			}
		}
		if v < 0 && !signed {
			v = math.NaN()
			negatives++
		}
		if fillZero && math.IsNaN(v) {
			v = 0
		}
		vals[i] = v
	}
	if present {
		df = df.Mutate(series.New(vals, series.Float, col))
	}
	return df, vals, negatives
}

func prepAirports(df dataframe.DataFrame, isNaN NaNFunc) (dataframe.DataFrame, int) {
	cols := make(map[string][]float64, len(airportNumeric))
	negatives := 0
	for _, c := range airportNumeric {
		var neg int
		df, cols[c], neg = coerce(df, c, isNaN, false)
		negatives += neg
	}

	n := df.Nrow()
	pax := make([]float64, n)
	freight := make([]float64, n)
	moves := make([]float64, n)
	hasGeo := make([]bool, n)
	for i := 0; i < n; i++ {
		pax[i] = zeroNaN(cols[model.ColPaxDeparture][i]) + zeroNaN(cols[model.ColPaxArrival][i]) + zeroNaN(cols[model.ColPaxTransit][i])
		freight[i] = zeroNaN(cols[model.ColFreightDepart][i]) + zeroNaN(cols[model.ColFreightArrival][i])
		moves[i] = zeroNaN(cols[model.ColPaxMovements][i]) + zeroNaN(cols[model.ColCargoMovements][i])
		hasGeo[i] = !math.IsNaN(cols[model.ColLatitude][i]) && !math.IsNaN(cols[model.ColLongitude][i])
	}

	// 区域统一为 MT/OM
	zones := utils.StringColumn(df, model.ColZone)
	for i, z := range zones {
		if parsed, err := model.ParseZone(z); err == nil {
			zones[i] = string(parsed)
		} else {
			zones[i] = strings.ToUpper(strings.TrimSpace(z))
		}
	}

	df = ensureString(df, model.ColAirportCode, nil)
	df = ensureString(df, model.ColAirportName, utils.StringColumn(df, model.ColAirportCode))

	return df.
		Mutate(series.New(zones, series.String, model.ColZone)).
		Mutate(series.New(pax, series.Float, model.ColPassengersTotal)).
		Mutate(series.New(freight, series.Float, model.ColFreightTotal)).
		Mutate(series.New(moves, series.Float, model.ColMovementsTotal)).
		Mutate(series.New(hasGeo, series.Bool, model.ColHasGeo)), negatives
}

func prepAirlines(df dataframe.DataFrame, isNaN NaNFunc) (dataframe.DataFrame, int) {
	negatives := 0
	for _, c := range airlineNumeric {
		var neg int
		df, _, neg = coerce(df, c, isNaN, true)
		negatives += neg
	}
	for _, c := range []string{model.ColAirlinePax, model.ColAirlineFreight, model.ColAirlineFlights, model.ColAirlinePKT} {
		df = ensureFloat(df, c)
	}
	df = ensureString(df, model.ColAirline, nil)
	return ensureString(df, model.ColAirlineName, utils.StringColumn(df, model.ColAirline)), negatives
}

func prepRoutes(df dataframe.DataFrame, isNaN NaNFunc) (dataframe.DataFrame, int) {
	negatives := 0
	for _, c := range routeNumeric {
		var neg int
		df, _, neg = coerce(df, c, isNaN, true)
		negatives += neg
	}
	for _, c := range []string{model.ColRoutePax, model.ColRouteFreight, model.ColRoutePKT} {
		df = ensureFloat(df, c)
	}
	if !utils.HasColumns(df, model.ColRouteFrom, model.ColRouteTo) {
		return df, negatives
	}

	from := utils.StringColumn(df, model.ColRouteFrom)
	to := utils.StringColumn(df, model.ColRouteTo)
	dirs := make([]string, len(from))
	pairs := make([]string, len(from))
	for i := range from {
		a, b := strings.TrimSpace(from[i]), strings.TrimSpace(to[i])
		dirs[i] = model.RouteDir(a, b)
		pairs[i] = model.RoutePair(a, b)
	}
	return df.
		Mutate(series.New(dirs, series.String, model.ColRouteDir)).
		Mutate(series.New(pairs, series.String, model.ColRoutePair)), negatives
}

// ensureFloat 缺失的指标列补 0
func ensureFloat(df dataframe.DataFrame, col string) dataframe.DataFrame {
	if utils.HasColumn(df, col) {
		return df
	}
	return df.Mutate(series.New(make([]float64, df.Nrow()), series.Float, col))
}

// ensureString 缺失的文本列用 fallback 补齐，fallback 为 nil 时为空串
func ensureString(df dataframe.DataFrame, col string, fallback []string) dataframe.DataFrame {
	if utils.HasColumn(df, col) {
		return df
	}
	if fallback == nil {
		fallback = make([]string, df.Nrow())
	}
	return df.Mutate(series.New(fallback, series.String, col))
}

func zeroNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// EmptyTable 零行但列齐全的表，文件缺失时代替真实数据
func EmptyTable(kind model.Kind) dataframe.DataFrame {
	var strCols, floatCols []string
	switch kind {
	case model.KindAirports:
		strCols = []string{model.ColAirportCode, model.ColAirportName, model.ColZone, model.ColCity, model.ColQuarter}
		floatCols = append(append([]string{}, airportNumeric...),
			model.ColPassengersTotal, model.ColFreightTotal, model.ColMovementsTotal)
	case model.KindAirlines:
		strCols = []string{model.ColAirline, model.ColAirlineName, model.ColQuarter}
		floatCols = airlineNumeric
	case model.KindRoutes:
		strCols = []string{model.ColRouteSegment, model.ColRouteFSC, model.ColRouteFrom, model.ColRouteTo,
			model.ColRouteDir, model.ColRoutePair, model.ColQuarter}
		floatCols = routeNumeric
	}

	cols := []series.Series{
		series.New([]int{}, series.Int, model.ColPeriod),
		series.New([]int{}, series.Int, model.ColYear),
		series.New([]int{}, series.Int, model.ColMonth),
	}
	for _, c := range strCols {
		cols = append(cols, series.New([]string{}, series.String, c))
	}
	for _, c := range floatCols {
		cols = append(cols, series.New([]float64{}, series.Float, c))
	}
	if kind == model.KindAirports {
		cols = append(cols, series.New([]bool{}, series.Bool, model.ColHasGeo))
	}
	return dataframe.New(cols...)
}
