package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time // zero: never
}

// Memory is an in-process cache with TTL expiry and optional LRU bound.
// The front of the recency list holds the most recently used entry.
type Memory[V any] struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	recency *list.List
	opts    *memoryOptions
	done    chan struct{}
	closed  bool
}

// NewMemory creates an in-memory cache and starts its janitor when a cleanup
// interval is configured.
func NewMemory[V any](opts ...MemoryOption) *Memory[V] {
	o := defaultMemoryOptions()
	for _, opt := range opts {
		opt(o)
	}

	m := &Memory[V]{
		items:   make(map[string]*list.Element),
		recency: list.New(),
		opts:    o,
		done:    make(chan struct{}),
	}
	if o.cleanupInterval > 0 {
		go m.janitor()
	}
	return m
}

func (m *Memory[V]) expired(e *memEntry[V]) bool {
	return !e.expiresAt.IsZero() && m.opts.now().After(e.expiresAt)
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	elem, ok := m.items[key]
	if !ok {
		return zero, ErrNotFound
	}
	e := elem.Value.(*memEntry[V])
	if m.expired(e) {
		m.remove(elem)
		return zero, ErrNotFound
	}
	m.recency.MoveToFront(elem)
	return e.value, nil
}

func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if ttl == 0 {
		ttl = m.opts.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.opts.now().Add(ttl)
	}

	if elem, ok := m.items[key]; ok {
		e := elem.Value.(*memEntry[V])
		e.value, e.expiresAt = value, expiresAt
		m.recency.MoveToFront(elem)
		return nil
	}

	if m.opts.maxEntries > 0 && len(m.items) >= m.opts.maxEntries {
		if oldest := m.recency.Back(); oldest != nil {
			m.remove(oldest)
		}
	}
	m.items[key] = m.recency.PushFront(&memEntry[V]{key: key, value: value, expiresAt: expiresAt})
	return nil
}

func (m *Memory[V]) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	for _, k := range keys {
		if elem, ok := m.items[k]; ok {
			m.remove(elem)
		}
	}
	return nil
}

func (m *Memory[V]) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.items = make(map[string]*list.Element)
	m.recency.Init()
	return nil
}

// Len returns the number of stored entries, expired ones included until swept.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close stops the janitor. Close is idempotent.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

func (m *Memory[V]) janitor() {
	ticker := time.NewTicker(m.opts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory[V]) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for elem := m.recency.Back(); elem != nil; {
		prev := elem.Prev()
		if m.expired(elem.Value.(*memEntry[V])) {
			m.remove(elem)
		}
		elem = prev
	}
}

// remove requires m.mu.
func (m *Memory[V]) remove(elem *list.Element) {
	m.recency.Remove(elem)
	delete(m.items, elem.Value.(*memEntry[V]).key)
}

var _ Cache[any] = (*Memory[any])(nil)
