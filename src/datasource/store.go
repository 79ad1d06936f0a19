// store.go
package datasource

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"AirTrafficStory/src/config"
	"AirTrafficStory/src/datasource/file"
	"AirTrafficStory/src/model"
	"AirTrafficStory/src/storage"
)

// Store 持有当前的只读快照。重新载入成功后原子替换，并使旧版本的缓存失效；
// 失败时保留原快照
type Store struct {
	source  file.Source
	dirs    []string
	cache   *storage.ResultCache
	logger  *storage.Logger
	current atomic.Pointer[file.Snapshot]
	version atomic.Uint64
	reload  sync.Mutex // 串行化重新载入
}

// NewStore 根据配置构造，尚未载入数据
func NewStore(cfg *config.Config, dcfg *config.DataConfig, cache *storage.ResultCache, logger *storage.Logger) *Store {
	src := file.Source{
		Paths: map[model.Kind]string{
			model.KindAirports: cfg.TablePath(model.KindAirports.Code()),
			model.KindAirlines: cfg.TablePath(model.KindAirlines.Code()),
			model.KindRoutes:   cfg.TablePath(model.KindRoutes.Code()),
		},
		Options: file.ReadOptions{Sheet: cfg.SheetName},
	}
	if dcfg != nil {
		src.Options.Aliases = dcfg.Aliases
		src.IsNaN = dcfg.IsNaN
	}

	dirs := make([]string, 0, len(model.AllKinds))
	for _, k := range model.AllKinds {
		dirs = append(dirs, cfg.ProcessedDir(k.Code()))
	}
	return NewStoreFromSource(src, dirs, cache, logger)
}

func NewStoreFromSource(src file.Source, dirs []string, cache *storage.ResultCache, logger *storage.Logger) *Store {
	s := &Store{source: src, dirs: dirs, cache: cache, logger: logger}
	s.current.Store(file.NewSnapshot(0, nil))
	return s
}

// Load 启动时首次载入。失败时保留空快照，进程继续运行
func (s *Store) Load() error {
	return s.Reload("startup")
}

// Reload 重新读取三张表，reason 只用于日志
func (s *Store) Reload(reason string) error {
	s.reload.Lock()
	defer s.reload.Unlock()

	start := time.Now()
	next := s.version.Load() + 1
	snap, err := file.LoadSnapshot(s.source, next)
	if err != nil {
		s.logger.Error(fmt.Sprintf("数据载入失败(%s)，继续使用版本 %d: %v", reason, s.Snapshot().Version, err))
		return err
	}

	s.version.Store(next)
	s.current.Store(snap)
	removed := 0
	if s.cache != nil {
		removed = s.cache.InvalidateBefore(next)
	}

	for _, k := range model.AllKinds {
		info := snap.Info[k]
		if info.Missing {
			s.logger.Warning(fmt.Sprintf("%s 文件不存在，使用空表: %s", k.Code(), info.Path))
			continue
		}
		s.logger.Info(fmt.Sprintf("%s 载入 %d 行，丢弃 %d 行无效日期 (%s)", k.Code(), info.Rows, info.Dropped, info.Path))
		if info.OutOfRange > 0 || info.Negative > 0 {
			s.logger.Warning(fmt.Sprintf("%s 年份超出范围 %d 行，负数 %d 个已置为缺失", k.Code(), info.OutOfRange, info.Negative))
		}
	}
	s.logger.Info(fmt.Sprintf("快照版本 %d 就绪(%s)，耗时 %v，清理缓存 %d 条", next, reason, time.Since(start), removed))
	return nil
}

// Snapshot 当前快照，永不为 nil
func (s *Store) Snapshot() *file.Snapshot {
	return s.current.Load()
}

// Swap 直接替换为给定表，测试和离线工具使用
func (s *Store) Swap(snap *file.Snapshot) {
	s.reload.Lock()
	defer s.reload.Unlock()

	next := s.version.Load() + 1
	snap.Version = next
	s.version.Store(next)
	s.current.Store(snap)
	if s.cache != nil {
		s.cache.InvalidateBefore(next)
	}
}

// Changed FileMonitor 的回调
func (s *Store) Changed(path string) {
	s.logger.Info("检测到数据文件变化: " + path)
	_ = s.Reload("file change: " + path)
}

// Dirs 需要监控的处理后数据目录
func (s *Store) Dirs() []string {
	return append([]string(nil), s.dirs...)
}

// Paths 三张表的文件路径
func (s *Store) Paths() map[model.Kind]string {
	out := make(map[model.Kind]string, len(s.source.Paths))
	for k, v := range s.source.Paths {
		out[k] = v
	}
	return out
}
