package udp

import (
	"time"

	"github.com/cyphal-go/transport/internal/crc"
	"github.com/cyphal-go/transport/session"
	"github.com/cyphal-go/transport/transport"
)

// Subscription describes one port this receiver accepts transfers on.
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

// Receiver reassembles incoming UDP datagrams into transfers. It mirrors
// the CAN receiver's session-per-source algorithm, but frame index
// sequence replaces the toggle bit and the transfer-ID ordering check is
// a strict greater-than comparison over the 64-bit ID (spec.md §4.9
// "Reassembly").
type Receiver struct {
	subs     map[subscriptionKey]Subscription
	sessions session.Map[transport.TransferID]
}

// NewReceiver creates a receiver backed by sessions.
func NewReceiver(sessions session.Map[transport.TransferID]) *Receiver {
	return &Receiver{
		subs:     make(map[subscriptionKey]Subscription),
		sessions: sessions,
	}
}

// Subscribe starts accepting datagrams for sub's port and kind.
func (r *Receiver) Subscribe(sub Subscription) {
	r.subs[subscriptionKey{Kind: sub.Kind, Port: sub.Port}] = sub
}

// Unsubscribe stops accepting datagrams for the given port and kind.
func (r *Receiver) Unsubscribe(kind transport.PortKind, port uint32) {
	delete(r.subs, subscriptionKey{Kind: kind, Port: port})
}

// Accept parses one inbound datagram and feeds it to the matching
// session. It returns a completed Transfer when the datagram finishes
// one; otherwise (nil, nil), including every frame dropped for a
// protocol reason (spec.md §7).
func (r *Receiver) Accept(data []byte, now transport.Instant) (*transport.Transfer, error) {
	header, ok := DecodeHeader(data)
	if !ok || len(data) < HeaderSize {
		return nil, nil
	}
	payload := data[HeaderSize:]

	kind, port := headerPort(header)
	sub, ok := r.subs[subscriptionKey{Kind: kind, Port: port}]
	if !ok {
		return nil, nil
	}

	key := session.Key{Source: transport.NodeID(header.Source), Port: port, Kind: kind}
	state, ok := r.sessions.GetOrCreate(key)
	if !ok {
		return nil, nil
	}

	if state.Expired(now, sub.Timeout) {
		state.Reset()
	}
	state.LastActivity = now

	if header.FrameIndex == 0 {
		if state.Started {
			state.Reset()
		}
		if state.HasCompleted && header.TransferID <= state.TransferID {
			return nil, nil
		}
		state.Started = true
		state.Poisoned = false
		state.TransferID = header.TransferID
		state.Sequence = 0
		state.CRC = crc.NewCRC16() // unused accumulator slot; UDP validates via CRC-32C below
		state.Payload = state.Payload[:0]
		state.MaxPayload = sub.MaxPayload
		state.SOTTimestamp = now
	} else {
		if !state.Started || state.Poisoned {
			return nil, nil
		}
		if header.TransferID != state.TransferID {
			return nil, nil
		}
		if header.FrameIndex != state.Sequence+1 {
			state.Poisoned = true
			return nil, nil
		}
		state.Sequence++
	}

	if len(state.Payload) < state.MaxPayload {
		room := state.MaxPayload - len(state.Payload)
		take := payload
		if len(take) > room {
			take = take[:room]
		}
		state.Payload = append(state.Payload, take...)
	}

	if !header.EndOfTransfer {
		return nil, nil
	}

	multiFrame := header.FrameIndex > 0 || state.Sequence > 0
	state.Started = false
	state.HasCompleted = true

	out := append([]byte(nil), state.Payload...)
	if multiFrame {
		if len(out) < 4 {
			return nil, nil
		}
		gotCRC := crc.CRC32C(out[:len(out)-4])
		wantCRC := out[len(out)-4:]
		if wantCRC[0] != byte(gotCRC) || wantCRC[1] != byte(gotCRC>>8) ||
			wantCRC[2] != byte(gotCRC>>16) || wantCRC[3] != byte(gotCRC>>24) {
			return nil, nil
		}
		out = out[:len(out)-4]
	}

	return &transport.Transfer{
		Header:  buildHeader(kind, header, state.SOTTimestamp),
		Payload: out,
	}, nil
}

func headerPort(h Header) (transport.PortKind, uint32) {
	if !h.IsService {
		return transport.KindMessage, uint32(h.Subject)
	}
	if h.IsRequest {
		return transport.KindRequest, uint32(h.Service)
	}
	return transport.KindResponse, uint32(h.Service)
}

func buildHeader(kind transport.PortKind, h Header, sotTimestamp transport.Instant) transport.Header {
	switch kind {
	case transport.KindMessage:
		return transport.Header{Message: &transport.MessageHeader{
			Timestamp:  sotTimestamp,
			Priority:   h.Priority,
			Subject:    h.Subject,
			Source:     sourceNodeID(h),
			TransferID: h.TransferID,
		}}
	case transport.KindRequest:
		return transport.Header{Request: &transport.ServiceHeader{
			Timestamp:   sotTimestamp,
			Priority:    h.Priority,
			Service:     h.Service,
			Source:      transport.NodeID(h.Source),
			Destination: transport.NodeID(h.Destination),
			TransferID:  h.TransferID,
		}}
	default:
		return transport.Header{Response: &transport.ServiceHeader{
			Timestamp:   sotTimestamp,
			Priority:    h.Priority,
			Service:     h.Service,
			Source:      transport.NodeID(h.Source),
			Destination: transport.NodeID(h.Destination),
			TransferID:  h.TransferID,
		}}
	}
}
