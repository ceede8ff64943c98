// Package cache provides the size-bounded LRU used for compiled documents.
package cache

import (
	"container/list"
	"encoding/json"
	"sync"
)

// Default bounds: 12 MiB in total, and one entry per ten bytes of that.
const (
	DefaultMaxBytes   = 12 * 1024 * 1024
	DefaultMaxEntries = (DefaultMaxBytes + 5) / 10
)

// Sizer returns the approximate cost of storing v under key, in bytes.
type Sizer[V any] func(key string, v V) int

// JSONSize charges the length of v's JSON encoding plus the key length.
// Values that do not encode are charged for the key only.
func JSONSize[V any](key string, v V) int {
	b, err := json.Marshal(v)
	if err != nil {
		return len(key)
	}
	return len(b) + len(key)
}

type entry[V any] struct {
	key   string
	value V
	size  int
}

// LRU is a least-recently-used cache bounded by entry count and total size.
// It is safe for concurrent use.
type LRU[V any] struct {
	mu         sync.Mutex
	ll         *list.List
	items      map[string]*list.Element
	maxEntries int
	maxBytes   int
	bytes      int
	sizer      Sizer[V]
}

// Option configures an LRU.
type Option[V any] func(*LRU[V])

// WithSizer replaces JSONSize.
func WithSizer[V any](fn Sizer[V]) Option[V] {
	return func(c *LRU[V]) {
		if fn != nil {
			c.sizer = fn
		}
	}
}

// New creates an LRU. Non-positive bounds fall back to the defaults.
func New[V any](maxEntries, maxBytes int, opts ...Option[V]) *LRU[V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	c := &LRU[V]{
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		sizer:      JSONSize[V],
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key and marks it most recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry[V]).value, true
}

// Set stores value under key, replacing any previous value, and evicts least
// recently used entries until both bounds hold. A value larger than the byte
// bound is not stored and removes any previous value for key.
func (c *LRU[V]) Set(key string, value V) bool {
	size := c.sizer(key, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	if size > c.maxBytes {
		return false
	}

	el := c.ll.PushFront(&entry[V]{key: key, value: value, size: size})
	c.items[key] = el
	c.bytes += size

	for c.ll.Len() > c.maxEntries || c.bytes > c.maxBytes {
		c.removeElement(c.ll.Back())
	}
	return true
}

// Delete removes key. It reports whether the key was present.
func (c *LRU[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if ok {
		c.removeElement(el)
	}
	return ok
}

// Purge removes every entry.
func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	clear(c.items)
	c.bytes = 0
}

// Len returns the number of entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Bytes returns the summed size of all entries.
func (c *LRU[V]) Bytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

func (c *LRU[V]) removeElement(el *list.Element) {
	e := c.ll.Remove(el).(*entry[V])
	delete(c.items, e.key)
	c.bytes -= e.size
}
