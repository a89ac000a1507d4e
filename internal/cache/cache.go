package cache

import (
	"sync"
	"time"
)

// Cache 是进程内的 TTL 缓存，用于减少对外部源的重复网络请求。
// 写入无条件覆盖旧值；过期条目在下一次 Get 时惰性清除。
// 容量不设上限：键的数量级是几百个源地址，无需淘汰策略。
type Cache[V any] struct {
	ttl   time.Duration
	mu    sync.Mutex
	items map[string]entry[V]
}

type entry[V any] struct {
	value    V
	expireAt time.Time
}

func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		ttl:   ttl,
		items: make(map[string]entry[V]),
	}
}

// Get 返回缓存值；过期或不存在时返回零值与 false，过期条目顺带删除。
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if time.Now().After(it.expireAt) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return it.value, true
}

// Set 写入缓存，过期时间 = 当前时间 + TTL，已有条目直接覆盖。
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[V]{
		value:    value,
		expireAt: time.Now().Add(c.ttl),
	}
}

// Len 返回当前条目数（含尚未被惰性清除的过期条目），仅用于观测。
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
