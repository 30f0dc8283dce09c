package session

import (
	"time"

	"github.com/cyphal-go/transport/transport"
)

// DynamicMap is a host-side session table backed by a Go map. There is no
// fixed capacity; allocation only fails if maxSessions is reached (0 means
// unbounded), matching the teacher's dynamic NMT/node maps (node.go's
// map[uint8]Node) generalized to a capacity-limited host.
type DynamicMap[T any] struct {
	sessions    map[Key]*State[T]
	maxSessions int
}

// NewDynamicMap creates a dynamic session map. maxSessions of 0 means no
// bound beyond available memory.
func NewDynamicMap[T any](maxSessions int) *DynamicMap[T] {
	return &DynamicMap[T]{
		sessions:    make(map[Key]*State[T]),
		maxSessions: maxSessions,
	}
}

func (m *DynamicMap[T]) GetOrCreate(key Key) (*State[T], bool) {
	if s, ok := m.sessions[key]; ok {
		return s, true
	}
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, false
	}
	s := &State[T]{}
	m.sessions[key] = s
	return s, true
}

func (m *DynamicMap[T]) Get(key Key) (*State[T], bool) {
	s, ok := m.sessions[key]
	return s, ok
}

func (m *DynamicMap[T]) Delete(key Key) {
	delete(m.sessions, key)
}

func (m *DynamicMap[T]) EvictExpired(now transport.Instant, timeout time.Duration) {
	for key, s := range m.sessions {
		if s.Expired(now, timeout) {
			delete(m.sessions, key)
		}
	}
}

func (m *DynamicMap[T]) Len() int {
	return len(m.sessions)
}
