package storage

import (
	"container/list"
	"fmt"
	"sync"
)

// CacheKey 结果缓存的键：表、快照版本、操作名、规范化参数
type CacheKey struct {
	Kind    string
	Version uint64
	Op      string
	Params  string
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s@%d/%s?%s", k.Kind, k.Version, k.Op, k.Params)
}

type cacheEntry struct {
	key   CacheKey
	value any
}

// CacheStats 命中统计
type CacheStats struct {
	Entries   int    `json:"entries"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// ResultCache 容量有限的 LRU 结果缓存，可被多个 HTTP 请求并发访问
type ResultCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[CacheKey]*list.Element

	hits, misses, evictions uint64
}

func NewResultCache(capacity int) *ResultCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &ResultCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[CacheKey]*list.Element),
	}
}

func (c *ResultCache) Get(key CacheKey) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		c.hits++
		return el.Value.(*cacheEntry).value, true
	}
	c.misses++
	return nil, false
}

func (c *ResultCache) Put(key CacheKey, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).value = value
		c.ll.MoveToFront(el)
		return
	}

	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, value: value})
	for c.ll.Len() > c.capacity {
		c.removeElement(c.ll.Back())
		c.evictions++
	}
}

// InvalidateBefore 删除所有快照版本小于 version 的条目，返回删除数量
func (c *ResultCache) InvalidateBefore(version uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.ll.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*cacheEntry).key.Version < version {
			c.removeElement(el)
			removed++
		}
		el = next
	}
	return removed
}

func (c *ResultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[CacheKey]*list.Element)
}

func (c *ResultCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries:   c.ll.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *ResultCache) removeElement(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*cacheEntry).key)
}

// Memo 命中时直接返回缓存结果，否则计算并写入；计算出错时不缓存。
// cache 为 nil 时等价于直接计算。
func Memo[T any](c *ResultCache, key CacheKey, compute func() (T, error)) (T, error) {
	if c != nil {
		if v, ok := c.Get(key); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	if c != nil {
		c.Put(key, v)
	}
	return v, nil
}
