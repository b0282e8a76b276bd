package cache

import (
	"sync"
	"time"
)

// Category groups cache entries that share a TTL.
type Category string

const (
	Stock    Category = "stock"
	TopPicks Category = "topPicks"
	News     Category = "news"
)

// Key identifies a cache entry by category and symbol (or query).
type Key struct {
	Category Category
	ID       string
}

func (k Key) String() string {
	return string(k.Category) + ":" + k.ID
}

// Store is the cache contract used by the aggregation layer. Implementations must be
// safe for concurrent use.
type Store[V any] interface {
	Get(key Key) (V, bool)
	Set(key Key, value V, ttl time.Duration)
	Delete(key Key)
}

// TTLs holds the expiry per category.
type TTLs struct {
	Stock    time.Duration
	TopPicks time.Duration
	News     time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Stock:    24 * time.Hour,
		TopPicks: 6 * time.Hour,
		News:     12 * time.Hour,
	}
}

func (t TTLs) For(c Category) time.Duration {
	switch c {
	case Stock:
		return t.Stock
	case TopPicks:
		return t.TopPicks
	case News:
		return t.News
	default:
		return 0
	}
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Memory is an in-process Store. Expired entries are dropped lazily when they are
// next read; there is no background sweep.
type Memory[V any] struct {
	// Now is the clock used for expiry. Defaults to time.Now.
	Now func() time.Time
	// MaxItems caps the number of entries when > 0.
	MaxItems int

	mu    sync.Mutex
	items map[Key]entry[V]
}

func NewMemory[V any](maxItems int) *Memory[V] {
	return &Memory[V]{
		Now:      time.Now,
		MaxItems: maxItems,
		items:    make(map[Key]entry[V]),
	}
}

func (m *Memory[V]) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *Memory[V]) Get(key Key) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	e, ok := m.items[key]
	if !ok {
		return zero, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.items, key)
		return zero, false
	}
	return e.value, true
}

// Set stores value for ttl. A non-positive ttl is a no-op.
func (m *Memory[V]) Set(key Key, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.items == nil {
		m.items = make(map[Key]entry[V])
	}
	now := m.now()
	m.items[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}

	// best-effort cap: remove expired first, then arbitrary
	if m.MaxItems > 0 && len(m.items) > m.MaxItems {
		for k, v := range m.items {
			if !now.Before(v.expiresAt) {
				delete(m.items, k)
			}
		}
		for k := range m.items {
			if len(m.items) <= m.MaxItems {
				break
			}
			if k == key {
				continue
			}
			delete(m.items, k)
		}
	}
}

func (m *Memory[V]) Delete(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// Len returns the number of stored entries, including expired ones not yet read.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
