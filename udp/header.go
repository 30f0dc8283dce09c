// Package udp implements the Cyphal/UDP transport: header codec,
// subject-to-multicast address mapping, transmitter, and frame-index
// based reassembly (spec.md §4.9).
package udp

import (
	"encoding/binary"
	"net"

	"github.com/cyphal-go/transport/internal/crc"
	"github.com/cyphal-go/transport/transport"
)

// HeaderSize is the fixed, little-endian UDP frame header length in
// bytes (spec.md §6 "24-byte header per Cyphal/UDP v1").
const HeaderSize = 24

const (
	anonymousNode = 0xFFFF
	broadcastNode = 0xFFFF

	dataSpecServiceBit  = 1 << 15
	dataSpecRequestBit  = 1 << 14
	dataSpecSubjectMask = 0x1FFF
	dataSpecServiceMask = 0x1FF

	frameIndexEOTBit = 1 << 31

	// WellKnownPort is the UDP port every subject's multicast subscriber
	// socket and every service unicast socket binds (spec.md §4.9).
	WellKnownPort = 9382
)

// Header is the fixed 24-byte field set prefixed to every UDP datagram's
// payload (spec.md §4.9): version, priority, source/destination node,
// data specifier, a reserved slot, the 64-bit transfer ID, and a frame
// index with its end-of-transfer bit, followed by the header's CRC-16.
type Header struct {
	Version       uint8
	Priority      transport.Priority
	Source        uint16
	Destination   uint16
	Subject       transport.SubjectID
	Service       transport.ServiceID
	IsService     bool
	IsRequest     bool
	TransferID    transport.TransferID
	FrameIndex    uint32
	EndOfTransfer bool
}

// Encode writes h's wire representation to buf, which must be at least
// HeaderSize bytes.
func (h Header) Encode(buf []byte) {
	_ = buf[:HeaderSize]
	buf[0] = h.Version
	buf[1] = byte(h.Priority)
	binary.LittleEndian.PutUint16(buf[2:4], h.Source)
	binary.LittleEndian.PutUint16(buf[4:6], h.Destination)

	var spec uint16
	if h.IsService {
		spec = dataSpecServiceBit | (uint16(h.Service) & dataSpecServiceMask)
		if h.IsRequest {
			spec |= dataSpecRequestBit
		}
	} else {
		spec = uint16(h.Subject) & dataSpecSubjectMask
	}
	binary.LittleEndian.PutUint16(buf[6:8], spec)
	binary.LittleEndian.PutUint16(buf[8:10], 0) // reserved

	binary.LittleEndian.PutUint64(buf[10:18], uint64(h.TransferID))

	frameIndex := h.FrameIndex
	if h.EndOfTransfer {
		frameIndex |= frameIndexEOTBit
	}
	binary.LittleEndian.PutUint32(buf[18:22], frameIndex)

	acc := crc.NewCRC16()
	acc.Digest(buf[0:22])
	crcBytes := acc.Bytes()
	buf[22], buf[23] = crcBytes[0], crcBytes[1]
}

// DecodeHeader parses a 24-byte header and validates its CRC-16.
func DecodeHeader(buf []byte) (Header, bool) {
	if len(buf) < HeaderSize {
		return Header{}, false
	}
	acc := crc.NewCRC16()
	acc.Digest(buf[0:22])
	want := acc.Bytes()
	if buf[22] != want[0] || buf[23] != want[1] {
		return Header{}, false
	}

	var h Header
	h.Version = buf[0]
	h.Priority = transport.Priority(buf[1])
	h.Source = binary.LittleEndian.Uint16(buf[2:4])
	h.Destination = binary.LittleEndian.Uint16(buf[4:6])

	spec := binary.LittleEndian.Uint16(buf[6:8])
	if spec&dataSpecServiceBit != 0 {
		h.IsService = true
		h.IsRequest = spec&dataSpecRequestBit != 0
		h.Service = transport.ServiceID(spec & dataSpecServiceMask)
	} else {
		h.Subject = transport.SubjectID(spec & dataSpecSubjectMask)
	}

	h.TransferID = transport.TransferID(binary.LittleEndian.Uint64(buf[10:18]))

	frameIndex := binary.LittleEndian.Uint32(buf[18:22])
	h.EndOfTransfer = frameIndex&frameIndexEOTBit != 0
	h.FrameIndex = frameIndex &^ frameIndexEOTBit

	return h, true
}

func sourceNodeID(h Header) *transport.NodeID {
	if h.Source == anonymousNode {
		return nil
	}
	n := transport.NodeID(h.Source)
	return &n
}

// MulticastAddress derives a subject's deterministic IPv4 multicast
// address: 239.0.X.Y, where X.Y pack the subject's low 13 bits
// (spec.md §4.9, §6). The low 13 bits span two octets; high 5 bits of
// that range land in the third octet below three fixed zero bits, low 8
// bits fill the fourth octet.
func MulticastAddress(subject transport.SubjectID) net.IP {
	v := uint16(subject) & dataSpecSubjectMask
	return net.IPv4(239, 0, byte(v>>8), byte(v))
}

// NodeAddress derives a node's deterministic unicast IPv4 address within
// the transport's subnet, used for service transfers (spec.md §4.9
// "Service transfers use unicast to the destination node's address").
func NodeAddress(base net.IP, node transport.NodeID) net.IP {
	b := base.To4()
	ip := make(net.IP, net.IPv4len)
	copy(ip, b)
	ip[2] = byte(node >> 8)
	ip[3] = byte(node)
	return ip
}
