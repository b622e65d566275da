package syncutil

import (
	"hash/maphash"
	"iter"
	"maps"
	"sync"
)

// ShardMap is a thread-safe map that uses sharding to reduce lock contention.
// Operations on a single key only ever take that key's shard lock.
type ShardMap[K comparable, V any] struct {
	seed   maphash.Seed
	shards []*shard[K, V]
}

// shard is a single thread-safe map with its own mutex.
type shard[K comparable, V any] struct {
	sync.RWMutex
	items map[K]V
}

type ShardsNum uint

// defShardsNum is the default number of shards to use.
const defShardsNum ShardsNum = 32

// NewShardMap creates a new [ShardMap].
// If no number of shards is specified, the default number of shards (32) is used.
// The number of shards can be specified using the [ShardsNum] option and must be greater than 0.
func NewShardMap[K comparable, V any](opts ...any) *ShardMap[K, V] {
	var shardsNum ShardsNum
	for _, o := range opts {
		if v, ok := o.(ShardsNum); ok {
			shardsNum = v
		}
	}

	if shardsNum == 0 {
		shardsNum = defShardsNum
	}

	shards := make([]*shard[K, V], shardsNum)
	for i := range shards {
		shards[i] = &shard[K, V]{
			items: make(map[K]V),
		}
	}

	return &ShardMap[K, V]{
		seed:   maphash.MakeSeed(),
		shards: shards,
	}
}

func (m *ShardMap[K, V]) getShard(key K) *shard[K, V] {
	return m.shards[maphash.Comparable(m.seed, key)%uint64(len(m.shards))]
}

// SetIfAbsent stores value under key only if the key is not present yet.
// It returns the value held by the map after the call and whether value was stored.
func (m *ShardMap[K, V]) SetIfAbsent(key K, value V) (V, bool) {
	shard := m.getShard(key)
	shard.Lock()
	defer shard.Unlock()
	if cur, ok := shard.items[key]; ok {
		return cur, false
	}
	shard.items[key] = value
	return value, true
}

// Get retrieves a value by key.
func (m *ShardMap[K, V]) Get(key K) (V, bool) {
	shard := m.getShard(key)
	shard.RLock()
	defer shard.RUnlock()
	val, ok := shard.items[key]
	return val, ok
}

// DelFunc removes the value stored under key if fn reports true for it.
// The check and the removal happen under the same shard lock,
// so of several concurrent callers racing on the same value at most one gets true.
func (m *ShardMap[K, V]) DelFunc(key K, fn func(V) bool) bool {
	shard := m.getShard(key)
	shard.Lock()
	defer shard.Unlock()
	val, ok := shard.items[key]
	if !ok || !fn(val) {
		return false
	}
	delete(shard.items, key)
	return true
}

// Size returns the total number of items in the map.
func (m *ShardMap[K, V]) Size() int {
	size := 0
	for _, shard := range m.shards {
		shard.RLock()
		size += len(shard.items)
		shard.RUnlock()
	}
	return size
}

// Drain removes all items from the map and returns an iterator over the removed items.
func (m *ShardMap[K, V]) Drain() iter.Seq2[K, V] {
	drained := make([]map[K]V, 0, len(m.shards))
	for _, shard := range m.shards {
		shard.Lock()
		if len(shard.items) > 0 {
			drained = append(drained, shard.items)
			shard.items = make(map[K]V)
		}
		shard.Unlock()
	}

	return func(yield func(K, V) bool) {
		for _, items := range drained {
			for k, v := range items {
				if !yield(k, v) {
					return
				}
			}
		}
	}
}

// Items returns an iterator over all items in the map.
// Each shard is copied under its read lock, so the map may be modified while iterating.
func (m *ShardMap[K, V]) Items() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, shard := range m.shards {
			shard.RLock()
			items := maps.Clone(shard.items)
			shard.RUnlock()

			for k, v := range items {
				if !yield(k, v) {
					return
				}
			}
		}
	}
}
