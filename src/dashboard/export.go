// export.go
package dashboard

import (
	"fmt"
	"strings"

	"AirTrafficStory/src/model"
	"AirTrafficStory/src/processor"
	"AirTrafficStory/src/utils"
)

// cell 未定义的比值写成 N/A
func cell(v model.Value) any {
	if !v.Valid {
		return model.NA
	}
	return v.V
}

func periodCell(p *model.Point) any {
	if p == nil {
		return ""
	}
	return p.Period.String()
}

// ExportSheets 报表工作簿：KPI、月度序列、各表排名、质量概况
func (s *Service) ExportSheets(q processor.Query) ([]utils.Sheet, error) {
	ov, err := s.Overview(q)
	if err != nil {
		return nil, err
	}
	q = ov.Query

	kpiSheet := utils.Sheet{
		Name: "KPI",
		Headers: []string{"table", "metric", "total", "top", "top_value", "peak_month",
			"yoy_pct", "mom_pct", "recovery_pct", "cagr", "hhi", "top3_share"},
	}
	for _, k := range []*processor.KPIs{ov.Airports, ov.Airlines, ov.Routes} {
		if k == nil {
			continue
		}
		top, topValue := "", any("")
		if k.Top != nil {
			top, topValue = k.Top.Name, k.Top.Value
		}
		kpiSheet.Rows = append(kpiSheet.Rows, []any{
			k.Kind.Code(), string(k.Metric), k.Total, top, topValue, periodCell(k.Peak),
			cell(k.YoY), cell(k.MoM), cell(k.Recovery), cell(k.CAGR), cell(k.HHI), cell(k.TopNShare),
		})
	}

	sheets := []utils.Sheet{kpiSheet}
	for _, kind := range model.AllKinds {
		tr, err := s.Trends(kind, q, 0)
		if err != nil {
			// 航段表不支持架次指标，跳过
			continue
		}
		sh := utils.Sheet{
			Name:    kind.Code() + " monthly",
			Headers: []string{"period", "value", "yoy_pct", "rolling_mean"},
		}
		for i, p := range tr.Monthly {
			sh.Rows = append(sh.Rows, []any{p.Period.String(), cell(p.Value), cell(tr.YoY[i].Value), cell(tr.Rolling[i].Value)})
		}
		sheets = append(sheets, sh)
	}

	sheets = append(sheets, rankedSheet("Top airports", ov.Top))
	if al, err := s.Airlines(q); err == nil {
		sheets = append(sheets, rankedSheet("Top airlines", al.Top))
	}
	if rt, err := s.Routes(q); err == nil {
		sheets = append(sheets, rankedSheet("Top routes", rt.Top))
	}

	qp, err := s.Quality(q)
	if err != nil {
		return nil, err
	}
	qs := utils.Sheet{
		Name:    "Quality",
		Headers: []string{"table", "rows", "missing_columns", "extra_columns", "duplicate_keys", "duplicate_rows", "outliers", "first_month", "last_month", "gaps", "out_of_range_years", "negative_values"},
	}
	for _, t := range qp.Tables {
		first, last := "", ""
		if t.Coverage.Start != nil {
			first, last = t.Coverage.Start.String(), t.Coverage.End.String()
		}
		qs.Rows = append(qs.Rows, []any{
			t.Kind.Code(), t.Rows, strings.Join(t.Schema.Missing, ","), strings.Join(t.Schema.Extras, ","),
			t.Duplicates, t.FullDupRows, t.Outliers.Count, first, last, t.Coverage.Gaps,
			t.OutOfRangeYears, t.NegativeValues,
		})
	}
	return append(sheets, qs), nil
}

func rankedSheet(name string, ranked []model.Ranked) utils.Sheet {
	sh := utils.Sheet{Name: name, Headers: []string{"rank", "code", "name", "value", "share"}}
	for _, r := range ranked {
		sh.Rows = append(sh.Rows, []any{r.Rank, r.Code, r.Name, r.Value, cell(r.Share)})
	}
	return sh
}

// Digest 推送用的 markdown 摘要
func (s *Service) Digest(q processor.Query) (title, text string, err error) {
	ov, err := s.Overview(q)
	if err != nil {
		return "", "", err
	}
	title = fmt.Sprintf("法国航空运输 %s", ov.Query.Range)

	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", title)
	fmt.Fprintf(&b, "数据版本: %d，指标: %s\n\n", ov.Version, ov.Query.Metric)
	if k := ov.Airports; k != nil {
		fmt.Fprintf(&b, "- 机场合计: %s\n", formatCount(k.Total))
		if k.Latest != nil {
			fmt.Fprintf(&b, "- 最新月份: %s (同比 %s，环比 %s)\n", k.Latest.Period, k.YoY.Format(1, "%"), k.MoM.Format(1, "%"))
		}
		fmt.Fprintf(&b, "- 恢复率(对比 %d): %s\n", s.opts.BaselineYear, k.Recovery.Format(1, "%"))
		fmt.Fprintf(&b, "- CAGR: %s\n", pct(k.CAGR))
		if k.Top != nil {
			fmt.Fprintf(&b, "- 第一大机场: %s %s\n", k.Top.Name, formatCount(k.Top.Value))
		}
	}
	if k := ov.Airlines; k != nil {
		fmt.Fprintf(&b, "- 航空公司 HHI: %s，前三份额: %s\n", k.HHI.Format(3, ""), pct(k.TopNShare))
	}
	if len(ov.Top) > 0 {
		b.WriteString("\n**前几大机场**\n\n")
		for i, r := range ov.Top {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "%d. %s: %s\n", r.Rank, r.Name, formatCount(r.Value))
		}
	}
	return title, b.String(), nil
}

// pct 比值转百分比文本
func pct(v model.Value) string {
	if !v.Valid {
		return model.NA
	}
	return model.Some(v.V*100).Format(1, "%")
}

// formatCount 千分位，空格分隔
func formatCount(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, " ")
	if neg {
		out = "-" + out
	}
	return out
}
