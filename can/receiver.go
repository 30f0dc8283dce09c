package can

import (
	"time"

	"github.com/cyphal-go/transport/internal/crc"
	"github.com/cyphal-go/transport/session"
	"github.com/cyphal-go/transport/transport"
)

// Subscription describes one port this receiver accepts transfers on
// (spec.md §4.3, §9 "Subscription").
type Subscription struct {
	Kind       transport.PortKind
	Port       uint32
	MaxPayload int
	Timeout    time.Duration
}

type subscriptionKey struct {
	Kind transport.PortKind
	Port uint32
}

// Receiver reassembles incoming CAN frames into transfers, keeping one
// session per (source node, port) pair (spec.md §4.3 "Reassembly
// algorithm").
type Receiver struct {
	localNode transport.NodeID
	subs      map[subscriptionKey]Subscription
	sessions  session.Map[transport.CANTransferID]
}

// NewReceiver creates a receiver for localNode, backed by sessions, which
// may be a session.NewDynamicMap or session.NewFixedMap depending on the
// host. localNode is used to reject request/response frames addressed to
// a different node; a hardware filter (filter.go) normally does this
// first, but software must not rely on it being perfectly configured.
func NewReceiver(localNode transport.NodeID, sessions session.Map[transport.CANTransferID]) *Receiver {
	return &Receiver{
		localNode: localNode,
		subs:      make(map[subscriptionKey]Subscription),
		sessions:  sessions,
	}
}

// Subscribe starts accepting frames for sub's port and kind.
func (r *Receiver) Subscribe(sub Subscription) {
	r.subs[subscriptionKey{Kind: sub.Kind, Port: sub.Port}] = sub
}

// Unsubscribe stops accepting frames for the given port and kind.
func (r *Receiver) Unsubscribe(kind transport.PortKind, port uint32) {
	delete(r.subs, subscriptionKey{Kind: kind, Port: port})
}

// Accept parses one inbound frame and feeds it to the matching session's
// reassembly state machine (spec.md §4.3 steps 1-8).
//
// It returns a completed Transfer when the frame finishes one. It returns
// (nil, nil) when the frame was consumed but didn't complete a transfer,
// including every frame dropped for a protocol reason: no matching
// subscription, a malformed tail byte, a stale or duplicate transfer ID,
// or a toggle mismatch (spec.md §7 "malformed or out-of-policy frames are
// silently dropped, never surfaced as errors to the caller"). A non-nil
// error is reserved for a caller-visible condition, such as the session
// table being exhausted.
func (r *Receiver) Accept(frame Frame, now transport.Instant) (*transport.Transfer, error) {
	decoded, err := Decode(frame.ID)
	if err != nil {
		return nil, nil
	}
	if len(frame.Data) == 0 {
		return nil, nil
	}

	kind, port := subjectOrService(decoded)
	if kind != transport.KindMessage && decoded.Destination != r.localNode {
		return nil, nil
	}
	sub, ok := r.subs[subscriptionKey{Kind: kind, Port: port}]
	if !ok {
		return nil, nil
	}

	tailIdx := len(frame.Data) - 1
	sot, eot, toggle, tid := parseTailByte(frame.Data[tailIdx])
	chunk := frame.Data[:tailIdx]

	key := session.Key{Source: decoded.Source, Port: port, Kind: kind}
	state, ok := r.sessions.GetOrCreate(key)
	if !ok {
		return nil, transport.ErrOutOfMemory
	}

	if state.Expired(now, sub.Timeout) {
		state.Reset()
	}
	state.LastActivity = now

	if sot {
		if state.Started {
			// A start-of-transfer for a transfer already in progress
			// aborts it, whatever its transfer ID (spec.md §4.3 step 4).
			state.Reset()
		}
		if state.HasCompleted && !tid.NewerThan(state.TransferID) {
			// Stale restart of an already-completed transfer for this
			// source (spec.md §4.3 "Transfer-ID ordering").
			return nil, nil
		}
		state.Started = true
		state.Poisoned = false
		state.TransferID = tid
		state.Toggle = true
		state.Sequence = 0
		state.CRC = crc.NewCRC16()
		state.Payload = state.Payload[:0]
		state.MaxPayload = sub.MaxPayload
		state.SOTTimestamp = frame.Timestamp
	} else {
		if !state.Started {
			return nil, nil
		}
		if state.Poisoned {
			return nil, nil
		}
		if tid != state.TransferID {
			state.Poisoned = true
			return nil, nil
		}
		if toggle == state.Toggle {
			// Same toggle as the last accepted frame: an exact duplicate
			// retransmission, idempotent to redeliver (spec.md §8
			// invariant 6). A single toggle bit can't distinguish this
			// from a lost-frame desync; treating it as a no-op is the
			// conservative choice since the alternative (poisoning) would
			// also discard the legitimate retransmission case.
			return nil, nil
		}
		state.Toggle = toggle
		state.Sequence++
	}

	state.CRC.Digest(chunk)
	if len(state.Payload) < state.MaxPayload {
		room := state.MaxPayload - len(state.Payload)
		take := chunk
		if len(take) > room {
			take = take[:room]
		}
		state.Payload = append(state.Payload, take...)
	}

	if !eot {
		return nil, nil
	}

	multiFrame := state.Sequence > 0
	state.Started = false
	state.HasCompleted = true

	if multiFrame {
		if state.CRC.Value() != 0 || len(state.Payload) < 2 {
			// Transfer CRC failed: corrupt or truncated reassembly.
			return nil, nil
		}
	}

	payload := append([]byte(nil), state.Payload...)
	if multiFrame {
		payload = payload[:len(payload)-2]
	}

	header := buildHeader(kind, port, decoded, tid, state.SOTTimestamp)
	return &transport.Transfer{Header: header, Payload: payload}, nil
}

func subjectOrService(d Decoded) (kind transport.PortKind, port uint32) {
	if !d.IsService {
		return transport.KindMessage, uint32(d.Subject)
	}
	if d.IsRequest {
		return transport.KindRequest, uint32(d.Service)
	}
	return transport.KindResponse, uint32(d.Service)
}

func buildHeader(kind transport.PortKind, port uint32, d Decoded, tid transport.CANTransferID, sotTimestamp transport.Instant) transport.Header {
	switch kind {
	case transport.KindMessage:
		src := d.Source
		var srcPtr *transport.NodeID
		if !d.Anonymous {
			srcPtr = &src
		}
		return transport.Header{Message: &transport.MessageHeader{
			Timestamp:     sotTimestamp,
			Priority:      d.Priority,
			Subject:       transport.SubjectID(port),
			Source:        srcPtr,
			CANTransferID: tid,
		}}
	case transport.KindRequest:
		return transport.Header{Request: &transport.ServiceHeader{
			Timestamp:     sotTimestamp,
			Priority:      d.Priority,
			Service:       transport.ServiceID(port),
			Source:        d.Source,
			Destination:   d.Destination,
			CANTransferID: tid,
		}}
	default:
		return transport.Header{Response: &transport.ServiceHeader{
			Timestamp:     sotTimestamp,
			Priority:      d.Priority,
			Service:       transport.ServiceID(port),
			Source:        d.Source,
			Destination:   d.Destination,
			CANTransferID: tid,
		}}
	}
}
