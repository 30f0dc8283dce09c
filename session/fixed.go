package session

import (
	"time"

	"github.com/cyphal-go/transport/transport"
)

type fixedEntry[T any] struct {
	key   Key
	state State[T]
	used  bool
}

// FixedMap is an array-backed session table with compile-time-bounded
// capacity, suitable for embedded targets without an allocator. Unlike
// DynamicMap it never grows; GetOrCreate fails once all slots are taken.
// It does not reclaim expired sessions itself: a slot is freed only by
// Delete or EvictExpired.
type FixedMap[T any] struct {
	entries []fixedEntry[T]
}

// NewFixedMap creates a session table with room for exactly capacity
// concurrent sessions.
func NewFixedMap[T any](capacity int) *FixedMap[T] {
	return &FixedMap[T]{entries: make([]fixedEntry[T], capacity)}
}

func (m *FixedMap[T]) find(key Key) int {
	for i := range m.entries {
		if m.entries[i].used && m.entries[i].key == key {
			return i
		}
	}
	return -1
}

func (m *FixedMap[T]) GetOrCreate(key Key) (*State[T], bool) {
	if i := m.find(key); i >= 0 {
		return &m.entries[i].state, true
	}
	for i := range m.entries {
		if !m.entries[i].used {
			m.entries[i] = fixedEntry[T]{key: key, used: true}
			return &m.entries[i].state, true
		}
	}
	return nil, false
}

func (m *FixedMap[T]) Get(key Key) (*State[T], bool) {
	if i := m.find(key); i >= 0 {
		return &m.entries[i].state, true
	}
	return nil, false
}

func (m *FixedMap[T]) Delete(key Key) {
	if i := m.find(key); i >= 0 {
		m.entries[i] = fixedEntry[T]{}
	}
}

func (m *FixedMap[T]) EvictExpired(now transport.Instant, timeout time.Duration) {
	for i := range m.entries {
		if m.entries[i].used && m.entries[i].state.Expired(now, timeout) {
			m.entries[i] = fixedEntry[T]{}
		}
	}
}

func (m *FixedMap[T]) Len() int {
	n := 0
	for i := range m.entries {
		if m.entries[i].used {
			n++
		}
	}
	return n
}
