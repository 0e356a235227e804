package query

import (
	"context"
	"sync"

	"github.com/ByLCY/modulistica/dsl"
)

// MemorySource 在内存中保存各实体类型的实例，主要用于测试与 YAML 演示数据。
type MemorySource struct {
	mu    sync.RWMutex
	kinds map[string][]any
}

var _ Source = (*MemorySource)(nil)

// NewMemorySource creates an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{kinds: map[string][]any{}}
}

// Add appends items to kind.
func (m *MemorySource) Add(kind string, items ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds[kind] = append(m.kinds[kind], items...)
}

// Objects implements Source.
func (m *MemorySource) Objects(_ context.Context, kind string) (Set, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items, ok := m.kinds[kind]
	if !ok {
		return nil, unknownKind(kind)
	}
	return NewSet(append([]any(nil), items...)), nil
}

// MemorySet 是对切片的惰性过滤与排序。
type MemorySet struct {
	items   []any
	lookups []dsl.Lookup
	order   dsl.Order
}

var _ Set = (*MemorySet)(nil)

// NewSet wraps items.
func NewSet(items []any) *MemorySet { return &MemorySet{items: items} }

func (s *MemorySet) clone() *MemorySet {
	return &MemorySet{
		items:   s.items,
		lookups: append([]dsl.Lookup(nil), s.lookups...),
		order:   s.order,
	}
}

// Where implements Set.
func (s *MemorySet) Where(lookups ...dsl.Lookup) Set {
	c := s.clone()
	c.lookups = append(c.lookups, lookups...)
	return c
}

// OrderBy implements Set.
func (s *MemorySet) OrderBy(order dsl.Order) Set {
	c := s.clone()
	c.order = order
	return c
}

// All implements Set.
func (s *MemorySet) All(ctx context.Context) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]any, 0, len(s.items))
	for _, item := range s.items {
		if MatchAll(item, s.lookups) {
			out = append(out, item)
		}
	}
	SortItems(out, s.order)
	return out, nil
}
