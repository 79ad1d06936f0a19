// monitor.go
package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 同一批写入事件合并后再通知
const DefaultDebounce = 2 * time.Second

// FileMonitor 监控处理后数据目录，文件变化时回调
type FileMonitor struct {
	watchDirs []string
	watcher   *fsnotify.Watcher
	debounce  time.Duration
	lastMod   map[string]time.Time
	mu        sync.Mutex
}

func NewFileMonitor(dirs ...string) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := ensureDir(dir); err != nil {
			watcher.Close()
			return nil, err
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return &FileMonitor{
		watchDirs: dirs,
		watcher:   watcher,
		debounce:  DefaultDebounce,
		lastMod:   make(map[string]time.Time),
	}, nil
}

// SetDebounce 调整合并窗口
func (m *FileMonitor) SetDebounce(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debounce = d
}

func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}

// Watch 阻塞直到 ctx 结束或 watcher 关闭。窗口期内的多次变化只回调一次，
// 参数为窗口内最后一个变化的文件
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if !m.relevant(event) {
				continue
			}
			pending = event.Name
			m.mu.Lock()
			d := m.debounce
			m.mu.Unlock()
			if timer == nil {
				timer = time.NewTimer(d)
			} else {
				timer.Reset(d)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			go handler(pending)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// relevant 只关心表文件的写入、创建和改名，修改时间未变的重复事件忽略
func (m *FileMonitor) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	if !IsTableFile(event.Name) {
		return false
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// 改名后原路径已不存在，仍需要重新载入
		return event.Has(fsnotify.Rename)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !info.ModTime().After(m.lastMod[event.Name]) && !event.Has(fsnotify.Create) {
		return false
	}
	m.lastMod[event.Name] = info.ModTime()
	return true
}

// IsTableFile csv/xlsx 且不是临时文件
func IsTableFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// ensureDir 确保目录存在
func ensureDir(dirPath string) error {
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return &os.PathError{Op: "watch", Path: dirPath, Err: os.ErrInvalid}
	}
	return os.MkdirAll(dirPath, 0755)
}
