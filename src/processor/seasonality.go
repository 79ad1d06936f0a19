// seasonality.go
package processor

import (
	"AirTrafficStory/src/model"
)

// SeasonMode 按日历月聚合的方式
type SeasonMode string

const (
	SeasonMean SeasonMode = "mean"
	SeasonSum  SeasonMode = "sum"
)

// SeasonBucket 一个日历月的聚合结果
type SeasonBucket struct {
	Month int         `json:"month"`
	Years int         `json:"years"` // 参与聚合的年份数
	Sum   float64     `json:"sum"`
	Mean  model.Value `json:"mean"`
	Value model.Value `json:"value"` // 按 mode 取 Sum 或 Mean
	Index model.Value `json:"index"` // 该月均值 / 12 个月均值的平均
}

// Seasonality 在月度合计序列上按日历月(忽略年份)聚合，总是返回 12 个桶
func Seasonality(s model.Series, mode SeasonMode) []SeasonBucket {
	buckets := make([]SeasonBucket, 12)
	for i := range buckets {
		buckets[i].Month = i + 1
	}
	for _, p := range s {
		if !p.Value.Valid || p.Period.Month < 1 || p.Period.Month > 12 {
			continue
		}
		b := &buckets[p.Period.Month-1]
		b.Sum += p.Value.V
		b.Years++
	}

	var meanSum float64
	var meanCount int
	for i := range buckets {
		b := &buckets[i]
		if b.Years > 0 {
			b.Mean = model.Some(b.Sum / float64(b.Years))
			meanSum += b.Mean.V
			meanCount++
		}
		if mode == SeasonSum {
			b.Value = model.Some(b.Sum)
		} else {
			b.Value = b.Mean
		}
	}

	if meanCount == 0 {
		return buckets
	}
	overall := meanSum / float64(meanCount)
	for i := range buckets {
		if buckets[i].Mean.Valid {
			buckets[i].Index = model.Ratio(buckets[i].Mean.V, overall)
		}
	}
	return buckets
}
