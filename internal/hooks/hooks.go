// Package hooks provides an ordered list of listeners that can be bound and unbound concurrently.
package hooks

import (
	"container/list"
	"iter"
	"sync"
)

// List keeps listeners in the order they were added.
// The zero value is ready to use.
type List[T any] struct {
	mu     sync.RWMutex
	byID   map[uint64]*list.Element
	order  *list.List
	nextID uint64
}

type hook[T any] struct {
	id uint64
	fn T
}

// Add binds fn and returns a function that unbinds it.
// The unbind function is safe to call several times.
func (l *List[T]) Add(fn T) (unbind func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++

	if l.byID == nil {
		l.byID = make(map[uint64]*list.Element)
	}
	if l.order == nil {
		l.order = list.New()
	}
	l.byID[id] = l.order.PushBack(&hook[T]{id, fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			if el, ok := l.byID[id]; ok {
				l.order.Remove(el)
				delete(l.byID, id)
			}
			l.mu.Unlock()
		})
	}
}

// All returns an iterator over a snapshot of the bound listeners.
// Listeners may bind or unbind others while being iterated.
func (l *List[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		if l == nil {
			return
		}

		l.mu.RLock()
		if l.order == nil {
			l.mu.RUnlock()
			return
		}
		fns := make([]T, 0, l.order.Len())
		for el := l.order.Front(); el != nil; el = el.Next() {
			fns = append(fns, el.Value.(*hook[T]).fn) //nolint:forcetypeassert
		}
		l.mu.RUnlock()

		for _, fn := range fns {
			if !yield(fn) {
				return
			}
		}
	}
}
