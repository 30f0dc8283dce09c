package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphal-go/transport/transport"
)

func TestDynamicMapGetOrCreate(t *testing.T) {
	m := NewDynamicMap[transport.CANTransferID](0)
	key := Key{Source: 1, Port: 100, Kind: transport.KindMessage}

	s1, ok := m.GetOrCreate(key)
	require.True(t, ok)
	s2, ok := m.GetOrCreate(key)
	require.True(t, ok)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, m.Len())
}

func TestDynamicMapBoundedCapacity(t *testing.T) {
	m := NewDynamicMap[transport.CANTransferID](1)
	_, ok := m.GetOrCreate(Key{Source: 1, Port: 1, Kind: transport.KindMessage})
	require.True(t, ok)
	_, ok = m.GetOrCreate(Key{Source: 2, Port: 1, Kind: transport.KindMessage})
	assert.False(t, ok)
}

func TestDynamicMapEvictExpired(t *testing.T) {
	m := NewDynamicMap[transport.CANTransferID](0)
	key := Key{Source: 1, Port: 1, Kind: transport.KindMessage}
	s, _ := m.GetOrCreate(key)
	s.LastActivity = transport.Instant(0)

	m.EvictExpired(transport.Instant(time.Second), time.Millisecond)
	assert.Equal(t, 0, m.Len())
}

func TestFixedMapFillsAndRejects(t *testing.T) {
	m := NewFixedMap[transport.CANTransferID](2)
	_, ok := m.GetOrCreate(Key{Source: 1, Port: 1, Kind: transport.KindMessage})
	require.True(t, ok)
	_, ok = m.GetOrCreate(Key{Source: 2, Port: 1, Kind: transport.KindMessage})
	require.True(t, ok)
	_, ok = m.GetOrCreate(Key{Source: 3, Port: 1, Kind: transport.KindMessage})
	assert.False(t, ok)
}

func TestFixedMapDeleteFreesSlot(t *testing.T) {
	m := NewFixedMap[transport.CANTransferID](1)
	key := Key{Source: 1, Port: 1, Kind: transport.KindMessage}
	_, ok := m.GetOrCreate(key)
	require.True(t, ok)

	m.Delete(key)
	assert.Equal(t, 0, m.Len())

	_, ok = m.GetOrCreate(Key{Source: 2, Port: 1, Kind: transport.KindMessage})
	assert.True(t, ok)
}

func TestStateResetPreservesOrderingBookkeeping(t *testing.T) {
	s := &State[transport.CANTransferID]{
		LastActivity: transport.Instant(5),
		TransferID:   7,
		HasCompleted: true,
		Started:      true,
		Poisoned:     true,
	}
	s.Reset()
	assert.Equal(t, transport.Instant(5), s.LastActivity)
	assert.Equal(t, transport.CANTransferID(7), s.TransferID)
	assert.True(t, s.HasCompleted)
	assert.False(t, s.Started)
	assert.False(t, s.Poisoned)
}

func TestStateExpired(t *testing.T) {
	s := &State[transport.CANTransferID]{LastActivity: transport.Instant(0)}
	assert.False(t, s.Expired(transport.Instant(time.Millisecond), time.Second))
	assert.True(t, s.Expired(transport.Instant(2*time.Second), time.Second))
}
