// growth.go
package processor

import (
	"fmt"
	"math"

	"AirTrafficStory/src/model"

	"github.com/go-gota/gota/dataframe"
)

// DefaultBaselineYear 疫情前的基准年
const DefaultBaselineYear = 2019

// Recovery 最新一年合计 / 基准年合计 * 100。基准年没有数据或合计为 0 时为 N/A
func Recovery(df dataframe.DataFrame, col string, baselineYear int) model.Value {
	return RecoveryFromYearly(YearlyTotals(df, col), baselineYear)
}

// YearValue 某一年的合计，没有该年记录时返回 ErrMissingData
func YearValue(years []YearTotal, year int) (float64, error) {
	for _, y := range years {
		if y.Year == year {
			return y.Value, nil
		}
	}
	return 0, fmt.Errorf("%w: year %d", model.ErrMissingData, year)
}

func RecoveryFromYearly(years []YearTotal, baselineYear int) model.Value {
	if len(years) == 0 {
		return model.Undefined()
	}
	base, err := YearValue(years, baselineYear)
	if err != nil || base <= 0 {
		return model.Undefined()
	}
	latest := years[len(years)-1]
	return model.Some(latest.Value / base * 100)
}

// CAGR (vn/v0)^(1/n) - 1。v0<=0、n<=0 或 vn<0 时未定义
func CAGR(v0, vn, n float64) model.Value {
	if v0 <= 0 || n <= 0 || vn < 0 {
		return model.Undefined()
	}
	return model.Some(math.Pow(vn/v0, 1/n) - 1)
}

// SeriesCAGR 按年合计计算，start/end 为 0 时取首尾年份；n = max(1, end-start)，
// 任一端合计不为正时未定义
func SeriesCAGR(years []YearTotal, start, end int) model.Value {
	if len(years) == 0 {
		return model.Undefined()
	}
	if start == 0 {
		start = years[0].Year
	}
	if end == 0 {
		end = years[len(years)-1].Year
	}

	v0, err0 := YearValue(years, start)
	v1, err1 := YearValue(years, end)
	if err0 != nil || err1 != nil || v0 <= 0 || v1 <= 0 {
		return model.Undefined()
	}
	n := end - start
	if n < 1 {
		n = 1
	}
	return CAGR(v0, v1, float64(n))
}
