// service.go
package dashboard

import (
	"fmt"

	"AirTrafficStory/src/config"
	"AirTrafficStory/src/datasource/file"
	"AirTrafficStory/src/model"
	"AirTrafficStory/src/processor"
	"AirTrafficStory/src/storage"

	"github.com/go-gota/gota/dataframe"
)

// SnapshotSource 提供当前数据快照，datasource.Store 实现了它
type SnapshotSource interface {
	Snapshot() *file.Snapshot
}

// Options 分析参数，来自配置
type Options struct {
	BaselineYear  int
	Covid         model.Band
	TopN          int
	IQRMultiplier float64
	RollingWindow int
	Schemas       map[model.Kind][]string
}

// OptionsFromConfig 读取 analysis 段和各表的期望列
func OptionsFromConfig(cfg *config.Config, dcfg *config.DataConfig) Options {
	opts := Options{
		BaselineYear:  cfg.Analysis.BaselineYear,
		Covid:         processor.DefaultCovidBand(),
		TopN:          cfg.Analysis.TopN,
		IQRMultiplier: cfg.Analysis.IQRMultiplier,
		RollingWindow: cfg.Analysis.RollingWindow,
		Schemas:       make(map[model.Kind][]string),
	}
	start, errS := model.ParsePeriod(cfg.Analysis.CovidStart)
	end, errE := model.ParsePeriod(cfg.Analysis.CovidEnd)
	if errS == nil && errE == nil && !end.Before(start) {
		opts.Covid = processor.CovidBand(start, end)
	}
	if dcfg != nil {
		for _, k := range model.AllKinds {
			opts.Schemas[k] = dcfg.GetSchema(k.Code())
		}
	}
	return opts.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.BaselineYear == 0 {
		o.BaselineYear = processor.DefaultBaselineYear
	}
	if o.Covid.Label == "" {
		o.Covid = processor.DefaultCovidBand()
	}
	if o.TopN <= 0 {
		o.TopN = processor.DefaultTopN
	}
	if o.IQRMultiplier <= 0 {
		o.IQRMultiplier = processor.DefaultIQRMultiplier
	}
	if o.RollingWindow <= 0 {
		o.RollingWindow = 3
	}
	if o.Schemas == nil {
		o.Schemas = make(map[model.Kind][]string)
	}
	return o
}

// Service 各页面的计算入口。每次调用读取当前快照，结果按
// (表, 快照版本, 操作, 参数) 缓存
type Service struct {
	src    SnapshotSource
	cache  *storage.ResultCache
	opts   Options
	logger *storage.Logger
}

func NewService(src SnapshotSource, cache *storage.ResultCache, opts Options, logger *storage.Logger) *Service {
	return &Service{src: src, cache: cache, opts: opts.withDefaults(), logger: logger}
}

// Options 当前生效的分析参数
func (s *Service) Options() Options {
	return s.opts
}

// CacheStats 缓存命中统计，cache 为 nil 时为零值
func (s *Service) CacheStats() storage.CacheStats {
	if s.cache == nil {
		return storage.CacheStats{}
	}
	return s.cache.Stats()
}

// Snapshot 当前快照
func (s *Service) Snapshot() *file.Snapshot {
	return s.src.Snapshot()
}

// prepare 规范化查询，未指定 top 时使用配置的默认值
func (s *Service) prepare(q processor.Query) (processor.Query, error) {
	if q.TopN == 0 {
		q.TopN = s.opts.TopN
	}
	return q.Normalize()
}

func (s *Service) key(snap *file.Snapshot, table, op string, q processor.Query) storage.CacheKey {
	return storage.CacheKey{Kind: table, Version: snap.Version, Op: op, Params: q.Key()}
}

// filtered 当前快照中按查询过滤后的表
func filtered(snap *file.Snapshot, kind model.Kind, q processor.Query) dataframe.DataFrame {
	return processor.Filter(kind, snap.Table(kind), q)
}

func (s *Service) kpiOptions() processor.KPIOptions {
	return processor.KPIOptions{BaselineYear: s.opts.BaselineYear}
}

// kpis 某张表的 KPI；该表不支持所选指标时返回 nil
func (s *Service) kpis(snap *file.Snapshot, kind model.Kind, q processor.Query) (*processor.KPIs, error) {
	if _, err := kind.Column(q.Metric); err != nil {
		return nil, nil
	}
	df := filtered(snap, kind, q)
	var (
		k   processor.KPIs
		err error
	)
	switch kind {
	case model.KindAirports:
		k, err = processor.AirportKPIs(df, q.Metric, s.kpiOptions())
	case model.KindAirlines:
		k, err = processor.AirlineKPIs(df, q.Metric, s.kpiOptions())
	default:
		k, err = processor.RouteKPIs(df, q.Metric, s.kpiOptions())
	}
	if err != nil {
		return nil, fmt.Errorf("%s KPI: %w", kind.Code(), err)
	}
	return &k, nil
}

// DataStatus 快照版本与各表来源
type DataStatus struct {
	Version uint64                        `json:"version"`
	Loaded  string                        `json:"loaded_at"`
	Tables  map[model.Kind]file.TableInfo `json:"tables"`
}

// Status 当前数据状态，/health 使用
func (s *Service) Status() DataStatus {
	snap := s.src.Snapshot()
	return DataStatus{
		Version: snap.Version,
		Loaded:  snap.LoadedAt.Format("2006-01-02 15:04:05"),
		Tables:  snap.Info,
	}
}
