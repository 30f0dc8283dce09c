package udp

import (
	"fmt"
	"net"

	"github.com/cyphal-go/transport/internal/crc"
	"github.com/cyphal-go/transport/transport"
)

// Datagram is one outbound UDP payload: a destination address and the
// header+payload(+CRC) bytes to send there.
type Datagram struct {
	Addr []byte // net.IP, kept untyped here to avoid importing net in the hot path
	Data []byte
}

// Driver is the UDP socket capability a transmitter/receiver pair
// consumes (spec.md §6 "UDP driver").
type Driver interface {
	SendTo(addr []byte, data []byte) error
	RecvFrom() (data []byte, src []byte, err error)
	JoinMulticast(group []byte) error
}

// Transmitter fragments transfers into one or more UDP datagrams under a
// fixed per-datagram MTU (spec.md §4.9).
type Transmitter struct {
	mtu      int
	localBase []byte
}

// NewTransmitter creates a transmitter with the given per-datagram MTU
// (the spec's typical range is 1200-1472) and the local /16 base address
// that service (unicast) destinations are derived from; message multicast
// groups depend only on the subject ID.
func NewTransmitter(mtu int, localBase []byte) *Transmitter {
	return &Transmitter{mtu: mtu, localBase: localBase}
}

// Fragment builds the sequence of datagrams for transfer, destined for
// the subject's multicast group (messages) or the destination node's
// unicast address (requests/responses). It does not send them; the
// caller drives a Driver with the result.
func (tx *Transmitter) Fragment(transfer transport.Transfer) ([]Datagram, error) {
	header, addr, err := tx.headerAndAddr(transfer.Header)
	if err != nil {
		return nil, err
	}

	cap := tx.mtu - HeaderSize
	payload := transfer.Payload
	var datagrams []Datagram

	if len(payload) <= cap {
		header.FrameIndex = 0
		header.EndOfTransfer = true
		datagrams = append(datagrams, tx.build(header, addr, payload))
		return datagrams, nil
	}

	crcVal := crc.CRC32C(payload)
	var crcBytes [4]byte
	crcBytes[0] = byte(crcVal)
	crcBytes[1] = byte(crcVal >> 8)
	crcBytes[2] = byte(crcVal >> 16)
	crcBytes[3] = byte(crcVal >> 24)

	offset := 0
	index := uint32(0)
	for {
		remaining := payload[offset:]
		if len(remaining) > cap {
			header.FrameIndex = index
			header.EndOfTransfer = false
			datagrams = append(datagrams, tx.build(header, addr, remaining[:cap]))
			offset += cap
			index++
			continue
		}

		header.FrameIndex = index
		header.EndOfTransfer = true
		if len(remaining)+4 <= cap {
			last := append(append([]byte(nil), remaining...), crcBytes[:]...)
			datagrams = append(datagrams, tx.build(header, addr, last))
		} else {
			combined := append(append([]byte(nil), remaining...), crcBytes[:]...)
			header.EndOfTransfer = false
			datagrams = append(datagrams, tx.build(header, addr, combined[:cap]))
			index++
			header.FrameIndex = index
			header.EndOfTransfer = true
			datagrams = append(datagrams, tx.build(header, addr, combined[cap:]))
		}
		break
	}
	return datagrams, nil
}

func (tx *Transmitter) build(header Header, addr []byte, payload []byte) Datagram {
	buf := make([]byte, HeaderSize+len(payload))
	header.Encode(buf[:HeaderSize])
	copy(buf[HeaderSize:], payload)
	return Datagram{Addr: addr, Data: buf}
}

func (tx *Transmitter) headerAndAddr(h transport.Header) (Header, []byte, error) {
	switch {
	case h.Message != nil:
		header := Header{
			Version:     1,
			Priority:    h.Message.Priority,
			Source:      anonymousNode,
			Destination: broadcastNode,
			Subject:     h.Message.Subject,
			TransferID:  h.Message.TransferID,
		}
		if h.Message.Source != nil {
			header.Source = uint16(*h.Message.Source)
		}
		addr := MulticastAddress(h.Message.Subject)
		return header, addr.To4(), nil
	case h.Request != nil:
		header := Header{
			Version:     1,
			Priority:    h.Request.Priority,
			Source:      uint16(h.Request.Source),
			Destination: uint16(h.Request.Destination),
			IsService:   true,
			IsRequest:   true,
			Service:     h.Request.Service,
			TransferID:  h.Request.TransferID,
		}
		addr := NodeAddress(net.IP(tx.localBase), h.Request.Destination)
		return header, addr.To4(), nil
	case h.Response != nil:
		header := Header{
			Version:     1,
			Priority:    h.Response.Priority,
			Source:      uint16(h.Response.Source),
			Destination: uint16(h.Response.Destination),
			IsService:   true,
			IsRequest:   false,
			Service:     h.Response.Service,
			TransferID:  h.Response.TransferID,
		}
		addr := NodeAddress(net.IP(tx.localBase), h.Response.Destination)
		return header, addr.To4(), nil
	default:
		return Header{}, nil, fmt.Errorf("%w: header has no variant set", transport.ErrInvalidFrameFormat)
	}
}
