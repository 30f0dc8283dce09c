package serial

import (
	"github.com/cyphal-go/transport/internal/crc"
	"github.com/cyphal-go/transport/transport"
)

// Subscription describes one port this receiver accepts transfers on.
type Subscription struct {
	Kind       transport.PortKind
	Port       uint32
	MaxPayload int
}

type subscriptionKey struct {
	Kind transport.PortKind
	Port uint32
}

type rxState int

const (
	stateIdle rxState = iota
	stateInFrame
	stateSkipping
)

// Receiver implements the byte-level state machine
// `Idle → InFrame → (validate) → Idle` (spec.md §4.8, §4.10). It has no
// timeout/session tracking of its own: one serial frame always carries a
// whole transfer (spec.md §4.7's transmitter never fragments), so there
// is nothing to reassemble across frames beyond transfer-ID ordering per
// source, which lastCompleted tracks.
type Receiver struct {
	subs         map[subscriptionKey]Subscription
	state        rxState
	buf          []byte
	maxFrame     int
	lastCompleted map[lastKey]transport.TransferID
}

type lastKey struct {
	source uint16
	kind   transport.PortKind
	port   uint32
}

// NewReceiver creates a receiver. maxFrame bounds the largest encoded
// frame (between delimiters) the state machine will buffer before giving
// up and resetting to Idle, guarding against an unbounded malicious or
// corrupt stream.
func NewReceiver(maxFrame int) *Receiver {
	return &Receiver{
		subs:          make(map[subscriptionKey]Subscription),
		maxFrame:      maxFrame,
		lastCompleted: make(map[lastKey]transport.TransferID),
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

// PushByte feeds one incoming byte through the state machine. It returns
// a completed Transfer when b closes a valid frame; otherwise (nil, nil),
// including every case spec.md §7 says to drop silently: CRC failure,
// unknown port, stale transfer ID, or a frame longer than maxFrame.
func (r *Receiver) PushByte(b byte, now transport.Instant) (*transport.Transfer, error) {
	if b == delimiter {
		if r.state == stateIdle {
			// A delimiter in Idle is idempotent (spec.md §4.8).
			return nil, nil
		}
		if r.state == stateSkipping {
			r.state = stateIdle
			return nil, nil
		}
		frame := r.buf
		r.buf = nil
		r.state = stateIdle
		return r.finishFrame(frame, now)
	}

	if r.state == stateSkipping {
		return nil, nil
	}
	if r.state == stateIdle {
		r.state = stateInFrame
		r.buf = r.buf[:0]
	}
	if len(r.buf) >= r.maxFrame {
		// Overlong frame: drop it and wait for the next delimiter.
		r.state = stateSkipping
		r.buf = nil
		return nil, nil
	}
	r.buf = append(r.buf, b)
	return nil, nil
}

func (r *Receiver) finishFrame(encoded []byte, now transport.Instant) (*transport.Transfer, error) {
	if len(encoded) == 0 {
		return nil, nil
	}
	decoded, err := Decode(encoded)
	if err != nil {
		return nil, nil
	}
	if len(decoded) < HeaderSize+4 {
		return nil, nil
	}

	header, ok := DecodeHeader(decoded[:HeaderSize])
	if !ok {
		return nil, nil
	}

	payload := decoded[HeaderSize : len(decoded)-4]
	wantCRC := decoded[len(decoded)-4:]
	gotCRC := crc.CRC32C(payload)
	if wantCRC[0] != byte(gotCRC) || wantCRC[1] != byte(gotCRC>>8) ||
		wantCRC[2] != byte(gotCRC>>16) || wantCRC[3] != byte(gotCRC>>24) {
		return nil, nil
	}

	kind, port := headerPort(header)
	sub, ok := r.subs[subscriptionKey{Kind: kind, Port: port}]
	if !ok {
		return nil, nil
	}
	if len(payload) > sub.MaxPayload {
		payload = payload[:sub.MaxPayload]
	}

	key := lastKey{source: header.Source, kind: kind, port: port}
	if last, ok := r.lastCompleted[key]; ok && header.TransferID <= last {
		return nil, nil
	}
	r.lastCompleted[key] = header.TransferID

	out := transport.Transfer{
		Header:  headerToTransfer(header, kind, now),
		Payload: append([]byte(nil), payload...),
	}
	return &out, nil
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

func headerToTransfer(h Header, kind transport.PortKind, now transport.Instant) transport.Header {
	switch kind {
	case transport.KindMessage:
		return transport.Header{Message: &transport.MessageHeader{
			Timestamp:  now,
			Priority:   h.Priority,
			Subject:    h.Subject,
			Source:     sourceNodeID(h),
			TransferID: h.TransferID,
		}}
	case transport.KindRequest:
		return transport.Header{Request: &transport.ServiceHeader{
			Timestamp:   now,
			Priority:    h.Priority,
			Service:     h.Service,
			Source:      transport.NodeID(h.Source),
			Destination: transport.NodeID(h.Destination),
			TransferID:  h.TransferID,
		}}
	default:
		return transport.Header{Response: &transport.ServiceHeader{
			Timestamp:   now,
			Priority:    h.Priority,
			Service:     h.Service,
			Source:      transport.NodeID(h.Source),
			Destination: transport.NodeID(h.Destination),
			TransferID:  h.TransferID,
		}}
	}
}
