package processor

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"AirTrafficStory/src/model"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

type aptRow struct {
	period  int
	code    string
	name    string
	zone    string
	pax     float64
	freight float64
}

// aptFrame 构造预处理后的机场表
func aptFrame(rows []aptRow) dataframe.DataFrame {
	n := len(rows)
	periods, years, months := make([]int, n), make([]int, n), make([]int, n)
	codes, names, zones := make([]string, n), make([]string, n), make([]string, n)
	pax, freight, moves := make([]float64, n), make([]float64, n), make([]float64, n)
	for i, r := range rows {
		periods[i], years[i], months[i] = r.period, r.period/100, r.period%100
		codes[i], names[i], zones[i] = r.code, r.name, r.zone
		pax[i], freight[i], moves[i] = r.pax, r.freight, r.pax/100
	}
	return dataframe.New(
		series.New(periods, series.Int, model.ColPeriod),
		series.New(years, series.Int, model.ColYear),
		series.New(months, series.Int, model.ColMonth),
		series.New(codes, series.String, model.ColAirportCode),
		series.New(names, series.String, model.ColAirportName),
		series.New(zones, series.String, model.ColZone),
		series.New(pax, series.Float, model.ColPassengersTotal),
		series.New(freight, series.Float, model.ColFreightTotal),
		series.New(moves, series.Float, model.ColMovementsTotal),
	)
}

type cieRow struct {
	period int
	code   string
	name   string
	pax    float64
}

func cieFrame(rows []cieRow) dataframe.DataFrame {
	n := len(rows)
	periods, years, months := make([]int, n), make([]int, n), make([]int, n)
	codes, names := make([]string, n), make([]string, n)
	pax, flights := make([]float64, n), make([]float64, n)
	for i, r := range rows {
		periods[i], years[i], months[i] = r.period, r.period/100, r.period%100
		codes[i], names[i] = r.code, r.name
		pax[i], flights[i] = r.pax, 1
	}
	return dataframe.New(
		series.New(periods, series.Int, model.ColPeriod),
		series.New(years, series.Int, model.ColYear),
		series.New(months, series.Int, model.ColMonth),
		series.New(codes, series.String, model.ColAirline),
		series.New(names, series.String, model.ColAirlineName),
		series.New(pax, series.Float, model.ColAirlinePax),
		series.New(flights, series.Float, model.ColAirlineFlights),
	)
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func sampleAirports() dataframe.DataFrame {
	return aptFrame([]aptRow{
		{201901, "LFPG", "PARIS-CDG", "MT", 100, 10},
		{201902, "LFPG", "PARIS-CDG", "MT", 120, 12},
		{201901, "LFPO", "PARIS-ORLY", "MT", 50, 1},
		{201902, "LFPO", "PARIS-ORLY", "MT", 40, 1},
		{202001, "LFPG", "PARIS-CDG", "MT", 110, 9},
		{202002, "LFPG", "PARIS-CDG", "MT", 60, 8},
		{201901, "TFFR", "POINTE-A-PITRE", "OM", 20, 2},
	})
}

func TestQueryNormalize(t *testing.T) {
	q, err := Query{Zones: []model.Zone{"overseas", "MT", "OM"}, Airports: []string{" lfpg", "LFPG", "lfpo"}}.Normalize()
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if q.Metric != model.MetricPassengers || q.TopN != DefaultTopN {
		t.Errorf("defaults not applied: %+v", q)
	}
	if !reflect.DeepEqual(q.Zones, []model.Zone{model.ZoneMetropolitan, model.ZoneOverseas}) {
		t.Errorf("zones = %v", q.Zones)
	}
	if !reflect.DeepEqual(q.Airports, []string{"LFPG", "LFPO"}) {
		t.Errorf("airports = %v", q.Airports)
	}

	bad := []Query{
		{TopN: -1},
		{Metric: "seats"},
		{Zones: []model.Zone{"mars"}},
		{Range: model.DateRange{Start: model.Period{Year: 2020, Month: 1}, End: model.Period{Year: 2019, Month: 1}}},
	}
	for _, b := range bad {
		if _, err := b.Normalize(); !errors.Is(err, model.ErrInvalidFilter) {
			t.Errorf("Normalize(%+v) error = %v, want ErrInvalidFilter", b, err)
		}
	}

	capped, _ := Query{TopN: 1000}.Normalize()
	if capped.TopN != MaxTopN {
		t.Errorf("TopN = %d, want %d", capped.TopN, MaxTopN)
	}
}

func TestQueryKeyStable(t *testing.T) {
	a, _ := Query{Airports: []string{"lfpo", "LFPG"}}.Normalize()
	b, _ := Query{Airports: []string{"LFPG", "LFPO"}}.Normalize()
	if a.Key() != b.Key() {
		t.Errorf("keys differ: %q vs %q", a.Key(), b.Key())
	}
	c, _ := Query{Zones: []model.Zone{}}.Normalize()
	if c.Key() == a.Key() {
		t.Error("empty zone selection must not share a key with all zones")
	}
}

func TestSeriesStaysInRange(t *testing.T) {
	df := sampleAirports()
	r := model.DateRange{Start: model.Period{Year: 2019, Month: 2}, End: model.Period{Year: 2020, Month: 1}}
	s := MonthlySeries(FilterRange(df, r), model.ColPassengersTotal)
	if len(s) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(s), s)
	}
	for _, p := range s {
		if !r.Contains(p.Period) {
			t.Errorf("period %s outside %s", p.Period, r)
		}
	}
	if s[0].Value.V != 160 || s[1].Value.V != 110 {
		t.Errorf("values = %v", s.Values())
	}
}

func TestFilterZones(t *testing.T) {
	df := sampleAirports()
	if got := FilterZones(df, nil).Nrow(); got != df.Nrow() {
		t.Errorf("nil zones rows = %d", got)
	}
	if got := FilterZones(df, []model.Zone{}).Nrow(); got != 0 {
		t.Errorf("empty zones rows = %d", got)
	}
	if got := FilterZones(df, []model.Zone{model.ZoneOverseas}).Nrow(); got != 1 {
		t.Errorf("OM rows = %d", got)
	}

	// 所选区间没有海外省数据：空序列，不报错
	q, err := Query{
		Range: model.DateRange{Start: model.Period{Year: 2020, Month: 1}, End: model.Period{Year: 2020, Month: 12}},
		Zones: []model.Zone{model.ZoneOverseas},
	}.Normalize()
	if err != nil {
		t.Fatal(err)
	}
	s := MonthlySeries(Filter(model.KindAirports, df, q), model.ColPassengersTotal)
	if len(s) != 0 {
		t.Errorf("series = %v, want empty", s)
	}
}

func TestYoYByPeriod(t *testing.T) {
	s := model.Series{
		{Period: model.Period{Year: 2019, Month: 1}, Value: model.Some(100)},
		{Period: model.Period{Year: 2019, Month: 3}, Value: model.Some(80)},
		{Period: model.Period{Year: 2020, Month: 1}, Value: model.Some(150)},
		{Period: model.Period{Year: 2020, Month: 2}, Value: model.Some(120)},
	}
	y := YoY(s)
	if !y[2].Value.Valid || !almostEqual(y[2].Value.V, 50, 1e-9) {
		t.Errorf("2020-01 yoy = %v", y[2].Value)
	}
	// 2019-02 不存在，不能按位置退化为与 2019-03 比较
	if y[3].Value.Valid {
		t.Errorf("2020-02 yoy should be N/A, got %v", y[3].Value)
	}
	if RecentYoY(s).Valid {
		t.Error("recent yoy should be N/A")
	}
	if mom := MoM(s); !almostEqual(mom.V, -20, 1e-9) {
		t.Errorf("mom = %v", mom)
	}
}

func TestRollingMean(t *testing.T) {
	s := model.Series{
		{Period: model.Period{Year: 2019, Month: 1}, Value: model.Some(3)},
		{Period: model.Period{Year: 2019, Month: 2}, Value: model.Some(6)},
		{Period: model.Period{Year: 2019, Month: 3}, Value: model.Some(9)},
	}
	r := RollingMean(s, 3)
	want := []float64{3, 4.5, 6}
	for i, w := range want {
		if !almostEqual(r[i].Value.V, w, 1e-9) {
			t.Errorf("rolling[%d] = %v, want %v", i, r[i].Value, w)
		}
	}
}

func TestResampleAndYearly(t *testing.T) {
	df := sampleAirports()
	y := ResampleSeries(MonthlySeries(df, model.ColPassengersTotal), Yearly)
	if len(y) != 2 || y[0].Value.V != 330 || y[1].Value.V != 170 {
		t.Errorf("yearly = %v", y)
	}
	totals := YearlyTotals(df, model.ColPassengersTotal)
	if !reflect.DeepEqual(totals, []YearTotal{{2019, 330}, {2020, 170}}) {
		t.Errorf("totals = %v", totals)
	}
}

func TestRecovery(t *testing.T) {
	years := []YearTotal{{2019, 100_000_000}, {2024, 95_000_000}}
	got := RecoveryFromYearly(years, 2019)
	if !got.Valid || !almostEqual(got.V, 95, 1e-9) {
		t.Errorf("recovery = %v, want 95", got)
	}

	// 基准年没有记录
	if v := Recovery(aptFrame([]aptRow{{202001, "LFPG", "PARIS-CDG", "MT", 10, 0}}), model.ColPassengersTotal, 2019); v.Valid {
		t.Errorf("recovery without 2019 rows = %v, want N/A", v)
	}
	if v := Recovery(aptFrame(nil), model.ColPassengersTotal, 2019); v.Valid {
		t.Errorf("recovery on empty table = %v, want N/A", v)
	}
	if v := RecoveryFromYearly([]YearTotal{{2020, 10}, {2021, 20}}, 2019); v.Valid {
		t.Errorf("recovery without baseline = %v", v)
	}
	if v := RecoveryFromYearly([]YearTotal{{2019, 0}, {2021, 20}}, 2019); v.Valid {
		t.Errorf("recovery with zero baseline = %v", v)
	}
}

func TestYearValueMissing(t *testing.T) {
	years := []YearTotal{{2019, 100}, {2021, 80}}
	if v, err := YearValue(years, 2021); err != nil || v != 80 {
		t.Errorf("YearValue(2021) = %v, %v", v, err)
	}
	if _, err := YearValue(years, 2020); !errors.Is(err, model.ErrMissingData) {
		t.Errorf("YearValue(2020) err = %v, want ErrMissingData", err)
	}
	// 缺失的年份转成 N/A
	if v := SeriesCAGR(years, 2020, 2021); v.Valid {
		t.Errorf("CAGR from a missing year = %v", v)
	}
	if v := SeriesCAGR(years, 0, 0); !v.Valid || !almostEqual(v.V, math.Sqrt(0.8)-1, 1e-12) {
		t.Errorf("CAGR 2019-2021 = %v", v)
	}
}

func TestCAGRRoundTrip(t *testing.T) {
	cases := []struct{ v0, vn, n float64 }{
		{100, 200, 5},
		{1e6, 9.5e5, 3},
		{42, 42, 1},
	}
	for _, c := range cases {
		r := CAGR(c.v0, c.vn, c.n)
		if !r.Valid {
			t.Fatalf("CAGR(%v) undefined", c)
		}
		back := c.v0 * math.Pow(1+r.V, c.n)
		if !almostEqual(back, c.vn, 1e-6*c.vn) {
			t.Errorf("CAGR(%v) = %v, reapplied = %v", c, r.V, back)
		}
	}
	for _, c := range [][3]float64{{0, 10, 2}, {10, 10, 0}, {10, -1, 2}} {
		if CAGR(c[0], c[1], c[2]).Valid {
			t.Errorf("CAGR(%v) should be N/A", c)
		}
	}
	if v := SeriesCAGR([]YearTotal{{2019, 100}}, 0, 0); !v.Valid || v.V != 0 {
		t.Errorf("single-year cagr = %v", v)
	}
}

func TestHHIAndShare(t *testing.T) {
	values := map[string]float64{"AF": 50, "TO": 30, "U2": 20}
	hhi := HHI(values)
	if !almostEqual(hhi.V, 0.38, 1e-9) {
		t.Errorf("HHI = %v, want 0.38", hhi)
	}
	if share := TopNShare(values, 3); !almostEqual(share.V, 1.0, 1e-9) {
		t.Errorf("top3 share = %v, want 1", share)
	}
	if single := HHI(map[string]float64{"AF": 7}); single.V != 1 {
		t.Errorf("single-entity HHI = %v", single)
	}
	if HHI(map[string]float64{}).Valid || HHI(map[string]float64{"AF": 0}).Valid {
		t.Error("HHI of empty market should be N/A")
	}
	for i := 0; i < 20; i++ {
		if HHI(values) != hhi {
			t.Fatal("HHI is not stable across calls")
		}
	}
}

func TestHHIBoundsAndOrder(t *testing.T) {
	markets := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"monopoly", []float64{5}, 1},
		{"duopoly", []float64{1, 1}, 0.5},
		{"even ten", []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, 0.1},
		{"skewed", []float64{90, 5, 5}, 0.815},
		{"with zeros", []float64{3, 0, 1, 0}, 0.625},
		{"with negative", []float64{100, -100, 100}, 0.5},
	}
	codes := []string{"AF", "U2", "TO", "FR", "VY", "LH", "BA", "KL", "IB", "SK"}

	for _, m := range markets {
		// 正序、逆序和轮转后的输入结果一致
		orders := [][]float64{m.values, reversed(m.values)}
		if len(m.values) > 1 {
			orders = append(orders, append(append([]float64{}, m.values[1:]...), m.values[0]))
		}
		for _, vals := range orders {
			values := make(map[string]float64, len(vals))
			for i, v := range vals {
				values[codes[i]] = v
			}
			hhi := HHI(values)
			if !hhi.Valid || hhi.V < 0 || hhi.V > 1 || !almostEqual(hhi.V, m.want, 1e-9) {
				t.Errorf("%s %v: HHI = %v, want %v", m.name, vals, hhi, m.want)
			}
			share := TopNShare(values, 2)
			if !share.Valid || share.V < 0 || share.V > 1 {
				t.Errorf("%s %v: top-2 share = %v", m.name, vals, share)
			}
		}
	}
}

func reversed(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[len(vals)-1-i] = v
	}
	return out
}

func TestTopNDeterministic(t *testing.T) {
	values := map[string]float64{"C": 10, "A": 10, "B": 10, "D": 20}
	names := map[string]string{"A": "Zulu", "B": "Alpha", "C": "Mike", "D": "Delta"}
	first := TopN(values, 3, names)
	wantCodes := []string{"D", "B", "C"}
	for i, r := range first {
		if r.Code != wantCodes[i] || r.Rank != i+1 {
			t.Errorf("rank %d = %+v, want %s", i+1, r, wantCodes[i])
		}
	}
	for i := 0; i < 50; i++ {
		if got := TopN(values, 3, names); !reflect.DeepEqual(got, first) {
			t.Fatalf("TopN not deterministic: %v vs %v", got, first)
		}
	}
}

func TestMarketShareSeries(t *testing.T) {
	df := cieFrame([]cieRow{
		{201901, "AF", "AIR FRANCE", 50},
		{201901, "TO", "TRANSAVIA", 30},
		{201901, "U2", "EASYJET", 20},
		{201902, "AF", "AIR FRANCE", 60},
		{201902, "U2", "EASYJET", 40},
	})
	shares := MarketShareSeries(df, model.ColAirline, model.ColAirlineName, model.ColAirlinePax, 2)
	if len(shares) != 3 || shares[2].Code != OthersLabel {
		t.Fatalf("shares = %+v", shares)
	}
	for i := range shares[0].Points {
		var sum float64
		for _, s := range shares {
			sum += s.Points[i].Value.V
		}
		if !almostEqual(sum, 1, 1e-9) {
			t.Errorf("period %d shares sum to %v", i, sum)
		}
	}

	all := MarketShareSeries(df, model.ColAirline, model.ColAirlineName, model.ColAirlinePax, 5)
	if all[len(all)-1].Code == OthersLabel {
		t.Error("Others should be dropped when every entity is listed")
	}
}

func TestContributionToChange(t *testing.T) {
	df := cieFrame([]cieRow{
		{201901, "AF", "AIR FRANCE", 50},
		{201901, "U2", "EASYJET", 20},
		{202001, "AF", "AIR FRANCE", 40},
		{202001, "U2", "EASYJET", 60},
	})
	a := model.DateRange{Start: model.Period{Year: 2019, Month: 1}, End: model.Period{Year: 2019, Month: 12}}
	b := model.DateRange{Start: model.Period{Year: 2020, Month: 1}, End: model.Period{Year: 2020, Month: 12}}
	got := ContributionToChange(df, model.ColAirline, model.ColAirlineName, model.ColAirlinePax, a, b, 10)
	if len(got) != 2 || got[0].Code != "U2" || got[0].Delta != 40 || got[1].Delta != -10 {
		t.Fatalf("contributions = %+v", got)
	}
	if !almostEqual(got[0].ShareOfDelta.V, 40.0/30.0, 1e-9) {
		t.Errorf("share of delta = %v", got[0].ShareOfDelta)
	}
}

func TestSeasonality(t *testing.T) {
	s := model.Series{
		{Period: model.Period{Year: 2019, Month: 1}, Value: model.Some(10)},
		{Period: model.Period{Year: 2020, Month: 1}, Value: model.Some(20)},
		{Period: model.Period{Year: 2019, Month: 7}, Value: model.Some(45)},
	}
	b := Seasonality(s, SeasonMean)
	if len(b) != 12 {
		t.Fatalf("buckets = %d", len(b))
	}
	if b[0].Mean.V != 15 || b[0].Years != 2 || b[6].Value.V != 45 {
		t.Errorf("jan = %+v, jul = %+v", b[0], b[6])
	}
	if b[1].Mean.Valid || b[1].Index.Valid {
		t.Errorf("february should be empty: %+v", b[1])
	}
	if !almostEqual(b[0].Index.V, 0.5, 1e-9) || !almostEqual(b[6].Index.V, 1.5, 1e-9) {
		t.Errorf("index jan = %v, jul = %v", b[0].Index, b[6].Index)
	}
	if sum := Seasonality(s, SeasonSum); sum[0].Value.V != 30 {
		t.Errorf("sum mode jan = %v", sum[0].Value)
	}
}

func TestProjection(t *testing.T) {
	s := model.Series{{Period: model.Period{Year: 2024, Month: 12}, Value: model.Some(100)}}
	p := Projection(s, 10, 2)
	if len(p) != 3 {
		t.Fatalf("len = %d", len(p))
	}
	if p[2].Period != (model.Period{Year: 2025, Month: 2}) || !almostEqual(p[2].Value.V, 121, 1e-9) {
		t.Errorf("last = %+v", p[2])
	}
	if len(Projection(nil, 5, 12)) != 0 {
		t.Error("projection of empty series should be empty")
	}
}

func TestZoneBreakdown(t *testing.T) {
	totals, perZone := ZoneBreakdown(sampleAirports(), model.ColPassengersTotal)
	if len(totals) != 2 || totals[0].Zone != model.ZoneMetropolitan || totals[0].Value != 480 {
		t.Fatalf("totals = %+v", totals)
	}
	if !almostEqual(totals[1].Share.V, 20.0/500, 1e-9) {
		t.Errorf("OM share = %v", totals[1].Share)
	}
	if len(perZone) != 2 || len(perZone[1].Points) != 1 {
		t.Errorf("per zone = %+v", perZone)
	}
}

func TestAirportKPIs(t *testing.T) {
	k, err := AirportKPIs(sampleAirports(), model.MetricPassengers, KPIOptions{BaselineYear: 2019})
	if err != nil {
		t.Fatal(err)
	}
	if k.Total != 500 || k.Entities != 3 {
		t.Errorf("total = %v, entities = %d", k.Total, k.Entities)
	}
	if k.Top == nil || k.Top.Code != "LFPG" || k.Top.Value != 390 {
		t.Errorf("top = %+v", k.Top)
	}
	if k.Peak == nil || k.Peak.Period != (model.Period{Year: 2019, Month: 1}) {
		t.Errorf("peak = %+v", k.Peak)
	}
	if !almostEqual(k.Recovery.V, 170.0/330*100, 1e-9) {
		t.Errorf("recovery = %v", k.Recovery)
	}
	if !almostEqual(k.MoM.V, (60.0/110-1)*100, 1e-9) {
		t.Errorf("mom = %v", k.MoM)
	}
	if !almostEqual(k.YoY.V, (60.0/160-1)*100, 1e-9) {
		t.Errorf("yoy = %v", k.YoY)
	}
	if k.Freight == nil || *k.Freight != 43 {
		t.Errorf("freight = %v", k.Freight)
	}

	if _, err := RouteKPIs(dataframe.New(), model.MetricMovements, KPIOptions{}); !errors.Is(err, model.ErrInvalidFilter) {
		t.Errorf("routes movements error = %v", err)
	}
}

func TestKPIsOnEmptyTable(t *testing.T) {
	empty := aptFrame(nil)
	k, err := AirportKPIs(empty, model.MetricPassengers, KPIOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if k.Total != 0 || k.Top != nil || k.Peak != nil {
		t.Errorf("kpis = %+v", k)
	}
	if k.Recovery.Valid || k.HHI.Valid || k.CAGR.Valid || k.YoY.Valid {
		t.Errorf("ratios should be N/A: %+v", k)
	}
}

func TestGeoHelpers(t *testing.T) {
	dim := map[string]model.AirportInfo{
		"LFPG": {Code: "LFPG", Name: "PARIS-CDG", Zone: model.ZoneMetropolitan, Lat: 49.0, Lon: 2.5, HasGeo: true},
		"LFPO": {Code: "LFPO", Name: "PARIS-ORLY", Zone: model.ZoneMetropolitan, Lat: 48.7, Lon: 2.4, HasGeo: true},
		"TFFR": {Code: "TFFR", Name: "POINTE-A-PITRE", Zone: model.ZoneOverseas},
	}
	pts := GeoPoints(sampleAirports(), model.ColPassengersTotal, dim)
	if len(pts) != 2 {
		t.Fatalf("points = %+v", pts)
	}
	c := Centroid(pts)
	wantLat := (49.0*390 + 48.7*90) / 480
	if c == nil || !almostEqual(c.Lat, wantLat, 1e-9) {
		t.Errorf("centroid = %+v, want lat %v", c, wantLat)
	}

	unweighted := Centroid([]model.GeoPoint{{Lat: 10, Lon: 0}, {Lat: 20, Lon: 10}})
	if unweighted.Lat != 15 || unweighted.Lon != 5 {
		t.Errorf("unweighted centroid = %+v", unweighted)
	}
	if Centroid(nil) != nil {
		t.Error("centroid of no points should be nil")
	}

	box := BBox(pts)
	if box.MinLat != 48.7 || box.MaxLat != 49.0 {
		t.Errorf("bbox = %+v", box)
	}

	hubs := Hubs(sampleAirports(), 2, dim)
	if len(hubs) != 2 || hubs[0].Code != "LFPG" || hubs[0].Lat == nil || hubs[0].Freight != 39 {
		t.Errorf("hubs = %+v", hubs)
	}
}

func TestRouteDistances(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"LFPG", "LFMN", "LFPG", "XXXX"}, series.String, model.ColRouteFrom),
		series.New([]string{"LFMN", "LFPG", "TFFR", "LFPG"}, series.String, model.ColRouteTo),
		series.New([]float64{100, 50, 10, 5}, series.Float, model.ColRoutePax),
	)
	dim := map[string]model.AirportInfo{
		"LFPG": {Code: "LFPG", Lat: 49.0097, Lon: 2.5479, HasGeo: true},
		"LFMN": {Code: "LFMN", Lat: 43.6584, Lon: 7.2159, HasGeo: true},
		"TFFR": {Code: "TFFR", Lat: 16.2653, Lon: -61.5318, HasGeo: true},
	}
	rg := RouteDistances(df, dim, 5)
	if rg.Routes != 3 || rg.Located != 2 {
		t.Fatalf("routes = %d, located = %d", rg.Routes, rg.Located)
	}
	if rg.Longest[0].Pair != model.RoutePair("LFPG", "TFFR") {
		t.Errorf("longest = %+v", rg.Longest[0])
	}
	if rg.Busiest[0].Passengers != 150 {
		t.Errorf("busiest = %+v", rg.Busiest[0])
	}
	// 巴黎到尼斯约 690 公里
	if d := rg.Busiest[0].DistanceKM; d < 650 || d > 730 {
		t.Errorf("CDG-NCE distance = %v", d)
	}
	if !rg.WeightedAvgKM.Valid {
		t.Error("weighted average should be defined")
	}
}

func TestQualityChecks(t *testing.T) {
	df := aptFrame([]aptRow{
		{201901, "LFPG", "PARIS-CDG", "MT", 100, 1},
		{201901, "LFPG", "PARIS-CDG", "MT", 100, 1},
		{201902, "LFPO", "", "MT", 110, 1},
		{201904, "LFPO", "PARIS-ORLY", "MT", 90, 1},
		{201905, "LFBO", "TOULOUSE", "MT", 5000, 1},
	})

	sc := ValidateSchema(df, []string{model.ColAirportCode, model.ColAirportName, "apt_lib"})
	if !reflect.DeepEqual(sc.Missing, []string{"apt_lib"}) {
		t.Errorf("missing = %v", sc.Missing)
	}
	if !reflect.DeepEqual(sc.Extras, []string{model.ColYear, model.ColMonth, model.ColZone}) {
		t.Errorf("extras = %v", sc.Extras)
	}
	if !reflect.DeepEqual(sc.Derived, []string{model.ColFreightTotal, model.ColMovementsTotal, model.ColPassengersTotal, model.ColPeriod}) {
		t.Errorf("derived = %v", sc.Derived)
	}

	missing := MissingByColumn(df)
	if len(missing) != 1 || missing[0].Column != model.ColAirportName || missing[0].Missing != 1 {
		t.Errorf("missing by column = %+v", missing)
	}

	if got := DuplicateKeys(df, DuplicateKeyColumns(model.KindAirports)); got != 2 {
		t.Errorf("duplicate keys = %d, want 2", got)
	}
	if got := DuplicateFullRows(df); got != 2 {
		t.Errorf("duplicate rows = %d, want 2", got)
	}
	if got := DuplicateKeys(df, DuplicateKeyColumns(model.KindRoutes)); got != 0 {
		t.Errorf("routes keys on airport table = %d", got)
	}

	out := IQROutliers(df, model.ColPassengersTotal, 1.5)
	if out.Count != 1 || out.Rows[0] != 4 {
		t.Errorf("outliers = %+v", out)
	}
	if none := IQROutliers(df, "absent", 1.5); none.Count != 0 || none.Q1.Valid {
		t.Errorf("outliers on absent column = %+v", none)
	}

	cov := DateCoverage(df)
	if cov.Months != 4 || cov.Gaps != 1 || cov.Start.Code() != 201901 || cov.End.Code() != 201905 {
		t.Errorf("coverage = %+v", cov)
	}
}

func TestRangeViolations(t *testing.T) {
	// 未经预处理的表：1985 年一行，一个负的旅客数
	df := dataframe.New(
		series.New([]int{198501, 201901, 201902}, series.Int, model.ColPeriod),
		series.New([]string{"AF", "AF", "U2"}, series.String, model.ColAirline),
		series.New([]float64{10, -5, 20}, series.Float, model.ColAirlinePax),
		series.New([]float64{1, 1, -1}, series.Float, model.ColAirlineFlights),
	)
	years, negatives := RangeViolations(model.KindAirlines, df)
	if years != 1 || negatives != 2 {
		t.Errorf("violations = %d years, %d negatives", years, negatives)
	}

	report := TableReport(model.KindAirlines, df, nil, model.ColAirlinePax, 0)
	if report.OutOfRangeYears != 1 || report.NegativeValues != 2 {
		t.Errorf("report = %+v", report)
	}
	if y, n := RangeViolations(model.KindAirports, aptFrame(nil)); y != 0 || n != 0 {
		t.Errorf("empty table violations = %d, %d", y, n)
	}
}

func TestAirlinePerformanceFrom(t *testing.T) {
	jan := model.Period{Year: 2019, Month: 1}
	feb := model.Period{Year: 2019, Month: 2}
	records := []model.AirlineRecord{
		{Period: jan, Code: "AF", Name: "AIR FRANCE", Passengers: 100, Flights: 2, PKT: 80000},
		{Period: feb, Code: "AF", Name: "AIR FRANCE", Passengers: 140, Flights: 2, PKT: 112000},
		{Period: jan, Code: "U2", Name: "EASYJET", Passengers: 150, Flights: 1, PKT: 90000},
		{Period: jan, Code: "XX", Passengers: 0, Flights: 0, PKT: 0},
	}

	perf := AirlinePerformanceFrom(records, 0)
	if len(perf) != 3 || perf[0].Code != "AF" || perf[1].Code != "U2" || perf[2].Name != "XX" {
		t.Fatalf("perf = %+v", perf)
	}
	af := perf[0]
	if af.Passengers != 240 || af.Flights != 4 || af.PKT != 192000 {
		t.Errorf("AF totals = %+v", af)
	}
	if !almostEqual(af.PaxPerFlight.V, 60, 1e-9) || !almostEqual(af.KMPerPax.V, 800, 1e-9) {
		t.Errorf("AF ratios = %v, %v", af.PaxPerFlight, af.KMPerPax)
	}
	// 没有航班和旅客时比值未定义
	if perf[2].PaxPerFlight.Valid || perf[2].KMPerPax.Valid {
		t.Errorf("XX ratios = %+v", perf[2])
	}
	if top := AirlinePerformanceFrom(records, 1); len(top) != 1 || top[0].Code != "AF" {
		t.Errorf("top 1 = %+v", top)
	}
	if empty := AirlinePerformanceFrom(nil, 3); len(empty) != 0 {
		t.Errorf("empty = %+v", empty)
	}
}

func TestRouteStagesFrom(t *testing.T) {
	rec := func(from, to string, pax, pkt float64) model.RouteRecord {
		return model.RouteRecord{From: from, To: to, Pair: model.RoutePair(from, to), Passengers: pax, PKT: pkt}
	}
	stages := RouteStagesFrom([]model.RouteRecord{
		rec("ORY", "NCE", 100, 68000),
		rec("NCE", "ORY", 50, 34000),
		rec("CDG", "PTP", 10, 67000),
		rec("", "", 5, 5),
	}, 0)
	if len(stages) != 2 {
		t.Fatalf("stages = %+v", stages)
	}
	if stages[0].Pair != model.RoutePair("NCE", "ORY") || stages[0].Passengers != 150 || !almostEqual(stages[0].AvgStageKM.V, 680, 1e-9) {
		t.Errorf("first = %+v", stages[0])
	}
	if stages[1].AvgStageKM.V != 6700 {
		t.Errorf("second = %+v", stages[1])
	}
}
