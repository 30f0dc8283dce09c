// Package session implements the per-(source, port) reassembly context
// shared by the CAN and UDP receivers (spec.md §3 "Session", §9 "Session
// map"). It is generic over the transfer-ID representation (5-bit modular
// on CAN, 64-bit monotonic on UDP) so both receivers can share one
// eviction/dedup policy. The serial receiver does not use it.
package session

import (
	"time"

	"github.com/cyphal-go/transport/internal/crc"
	"github.com/cyphal-go/transport/transport"
)

// Key identifies a reassembly session: one per source node and port,
// disambiguated by kind since message/request/response share the port-ID
// numeric space. This generalizes the teacher's array-indexed-by-CAN-ID
// listener table (bus_manager.go) to the larger port-ID space used here.
type Key struct {
	Source transport.NodeID
	Port   uint32
	Kind   transport.PortKind
}

// State is the reassembly context for one in-progress or most-recently
// completed transfer from a session's source node.
//
// Invariants (spec.md §3): len(Payload) <= MaxPayload; TransferID strictly
// advances modulo its domain; a session whose LastActivity exceeds its
// subscription's timeout is reset at the next touch.
type State[T any] struct {
	LastActivity transport.Instant
	TransferID   T
	// Toggle is the CAN toggle bit of the last accepted frame; the CAN
	// receiver expects the next frame to carry the opposite value.
	Toggle bool
	// Sequence counts the frames accepted after the start-of-transfer
	// frame; on UDP it is the frame index of the last accepted datagram.
	Sequence  uint32
	CRC       crc.CRC16
	Payload   []byte
	MaxPayload int
	// SOTTimestamp is the reception timestamp of this transfer's
	// start-of-transfer frame, carried forward so the completed Transfer
	// can be stamped with it instead of the end-of-transfer frame's
	// (necessarily later) timestamp (spec.md §4.3 step 8).
	SOTTimestamp transport.Instant
	// Started is false before the first start-of-transfer frame has been
	// seen for the current TransferID.
	Started bool
	// Poisoned marks a session that saw a mid-transfer protocol violation
	// (a CAN continuation frame with another transfer ID, a skipped UDP
	// frame index) and must wait for the next start-of-transfer before
	// accepting more frames (spec.md §4.3 step 5).
	Poisoned bool
	// HasCompleted is true once this session has delivered at least one
	// transfer, making TransferID meaningful for the transfer-ID
	// ordering check (spec.md §4.3 "Transfer-ID ordering").
	HasCompleted bool
}

// Reset clears a state back to "no transfer in progress", keeping
// LastActivity, TransferID and HasCompleted bookkeeping to the caller.
func (s *State[T]) Reset() {
	s.Toggle = false
	s.Sequence = 0
	s.CRC = crc.NewCRC16()
	s.Payload = s.Payload[:0]
	s.Started = false
	s.Poisoned = false
	s.SOTTimestamp = 0
}

// Expired reports whether this session has been idle longer than timeout,
// using ordinary duration comparison (sessions don't span wraparound since
// they're touched far more often than the wraparound period).
func (s *State[T]) Expired(now transport.Instant, timeout time.Duration) bool {
	return now.Sub(s.LastActivity) > timeout
}

// Map is the capability both session storage strategies expose: a fixed
// embedded-friendly table and a dynamic host-friendly map (spec.md §9).
type Map[T any] interface {
	// GetOrCreate returns the session for key, creating a fresh one if
	// absent. ok is false if the table is full and could not allocate
	// a new entry.
	GetOrCreate(key Key) (state *State[T], ok bool)
	// Get returns the session for key without creating one.
	Get(key Key) (*State[T], bool)
	// Delete removes a session.
	Delete(key Key)
	// EvictExpired removes every session idle longer than timeout.
	EvictExpired(now transport.Instant, timeout time.Duration)
	// Len returns the number of live sessions.
	Len() int
}
