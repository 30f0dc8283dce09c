// Package serial implements the COBS-framed Cyphal/serial transport:
// header codec, transmitter, and byte-level receive state machine
// (spec.md §4.7/§4.8).
package serial

import (
	"encoding/binary"

	"github.com/cyphal-go/transport/internal/crc"
	"github.com/cyphal-go/transport/transport"
)

// HeaderSize is the fixed, little-endian serial header length in bytes.
const HeaderSize = 24

const (
	anonymousNode = 0xFFFF
	broadcastNode = 0xFFFF

	dataSpecServiceBit = 1 << 15
	dataSpecRequestBit = 1 << 14
	dataSpecSubjectMask = 0x1FFF
	dataSpecServiceMask = 0x1FF

	frameIndexEOTBit = 1 << 31
)

// Header is the fixed 24-byte field set prefixed to every serial frame's
// payload (spec.md §4.7): version, priority, source/destination node,
// data specifier, a reserved slot carrying this transport's unused
// data-type-hash and user-data fields, transfer ID, frame index with its
// end-of-transfer bit, and the header's own CRC-16.
type Header struct {
	Version         uint8
	Priority        transport.Priority
	Source          uint16 // anonymousNode (0xFFFF) if absent
	Destination     uint16 // broadcastNode (0xFFFF) if absent
	Subject         transport.SubjectID
	Service         transport.ServiceID
	IsService       bool
	IsRequest       bool
	TransferID      transport.TransferID
	FrameIndex      uint32
	EndOfTransfer   bool
}

// Encode writes h's 24-byte wire representation to buf, which must be at
// least HeaderSize bytes, with the header CRC in the last two bytes.
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

	binary.LittleEndian.PutUint16(buf[8:10], 0) // reserved: data-type-hash / user-data
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

// DecodeHeader parses a 24-byte header and validates its CRC-16 (computed
// over bytes 0..22, spec.md §6 "Header CRC is CRC-16-CCITT-FALSE over
// bytes 0..22").
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

// sourceNodeID translates the wire's 0xFFFF anonymous sentinel into the
// application's optional NodeID.
func sourceNodeID(h Header) *transport.NodeID {
	if h.Source == anonymousNode {
		return nil
	}
	n := transport.NodeID(h.Source)
	return &n
}
