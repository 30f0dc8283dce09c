package serial

import (
	"fmt"

	"github.com/cyphal-go/transport/internal/crc"
	"github.com/cyphal-go/transport/internal/ringbuf"
	"github.com/cyphal-go/transport/transport"
)

// Driver is the byte-level capability a serial transmitter/receiver pair
// consumes (spec.md §6 "Serial driver").
type Driver interface {
	SendByte(b byte) error
	RecvByte() (byte, error)
}

// perFrameOverhead is the number of raw bytes a frame's header and
// trailing payload CRC add before COBS escaping (spec.md §4.7).
const perFrameOverhead = HeaderSize + 4

// Transmitter frames one transfer per push as
// `0x00 ‖ COBS(header ‖ payload ‖ payload_crc32c) ‖ 0x00` and holds the
// encoded bytes in a bounded ring queue until Flush drains them through a
// Driver (spec.md §4.7).
type Transmitter struct {
	queue *ringbuf.Ring
}

// NewTransmitter creates a transmitter whose transmit queue holds at
// most capacity bytes.
func NewTransmitter(capacity int) *Transmitter {
	return &Transmitter{queue: ringbuf.New(capacity)}
}

// Push encodes transfer and enqueues its wire bytes, or returns
// transport.ErrOutOfMemory without enqueuing anything if the worst-case
// (and, after encoding, the actual) size wouldn't fit.
func (tx *Transmitter) Push(transfer transport.Transfer) error {
	header, err := headerFromTransfer(transfer.Header)
	if err != nil {
		return err
	}

	frameLength := len(transfer.Payload) + perFrameOverhead
	if EscapedSize(frameLength) > tx.queue.Space() {
		return transport.ErrOutOfMemory
	}

	raw := make([]byte, 0, frameLength)
	headerBuf := make([]byte, HeaderSize)
	header.Encode(headerBuf)
	raw = append(raw, headerBuf...)
	raw = append(raw, transfer.Payload...)
	payloadCRC := crc.CRC32C(transfer.Payload)
	var crcBuf [4]byte
	crcBuf[0] = byte(payloadCRC)
	crcBuf[1] = byte(payloadCRC >> 8)
	crcBuf[2] = byte(payloadCRC >> 16)
	crcBuf[3] = byte(payloadCRC >> 24)
	raw = append(raw, crcBuf[:]...)

	encoded := Encode(raw)
	if len(encoded)+2 > tx.queue.Space() {
		return transport.ErrOutOfMemory
	}

	tx.queue.PushBack(delimiter)
	for _, b := range encoded {
		tx.queue.PushBack(b)
	}
	tx.queue.PushBack(delimiter)
	return nil
}

// Flush drains queued bytes through driver one at a time. On WouldBlock
// the popped byte is returned to the front of the queue and Flush
// returns transport.ErrWouldBlock so the caller can retry later
// (spec.md §4.7).
func (tx *Transmitter) Flush(driver Driver) error {
	for {
		b, ok := tx.queue.PopFront()
		if !ok {
			return nil
		}
		if err := driver.SendByte(b); err != nil {
			tx.queue.PushFront(b)
			if err == transport.ErrWouldBlock {
				return transport.ErrWouldBlock
			}
			return transport.NewDriverError(err)
		}
	}
}

func headerFromTransfer(h transport.Header) (Header, error) {
	switch {
	case h.Message != nil:
		header := Header{
			Version:       1,
			Priority:      h.Message.Priority,
			Source:        anonymousNode,
			Destination:   broadcastNode,
			Subject:       h.Message.Subject,
			TransferID:    h.Message.TransferID,
			EndOfTransfer: true,
		}
		if h.Message.Source != nil {
			header.Source = uint16(*h.Message.Source)
		}
		return header, nil
	case h.Request != nil:
		return Header{
			Version:       1,
			Priority:      h.Request.Priority,
			Source:        uint16(h.Request.Source),
			Destination:   uint16(h.Request.Destination),
			IsService:     true,
			IsRequest:     true,
			Service:       h.Request.Service,
			TransferID:    h.Request.TransferID,
			EndOfTransfer: true,
		}, nil
	case h.Response != nil:
		return Header{
			Version:       1,
			Priority:      h.Response.Priority,
			Source:        uint16(h.Response.Source),
			Destination:   uint16(h.Response.Destination),
			IsService:     true,
			IsRequest:     false,
			Service:       h.Response.Service,
			TransferID:    h.Response.TransferID,
			EndOfTransfer: true,
		}, nil
	default:
		return Header{}, fmt.Errorf("%w: header has no variant set", transport.ErrInvalidFrameFormat)
	}
}
