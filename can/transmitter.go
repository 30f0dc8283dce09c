package can

import (
	"fmt"

	"github.com/cyphal-go/transport/internal/crc"
	"github.com/cyphal-go/transport/transport"
)

// Transmitter fragments application transfers into tail-byte-framed CAN
// frames and holds them in a bounded, priority-preserving queue until
// Flush drains them through a Driver (spec.md §4.2).
type Transmitter struct {
	mtu   Mtu
	queue *FrameQueue
}

// NewTransmitter creates a transmitter with the given MTU policy and
// transmit queue capacity (in frames).
func NewTransmitter(mtu Mtu, queueCapacity int) *Transmitter {
	return &Transmitter{mtu: mtu, queue: NewFrameQueue(queueCapacity)}
}

// Mtu returns the configured MTU policy.
func (tx *Transmitter) Mtu() Mtu {
	return tx.mtu
}

// Push fragments transfer into frames and enqueues them atomically: if the
// queue cannot fit every frame, nothing is enqueued and ErrOutOfMemory is
// returned (spec.md §4.2 "no partial enqueue").
func (tx *Transmitter) Push(transfer transport.Transfer) error {
	id, tid, timestamp, err := headerToID(transfer.Header)
	if err != nil {
		return err
	}
	dataChunks := fragment(transfer.Payload, tid, tx.mtu)
	frames := make([]Frame, len(dataChunks))
	for i, data := range dataChunks {
		frames[i] = NewFrame(timestamp, id, data)
	}
	if !tx.queue.PushFrames(frames) {
		return transport.ErrOutOfMemory
	}
	return nil
}

// PopFrame removes the next frame to transmit, highest priority first.
func (tx *Transmitter) PopFrame() (Frame, bool) {
	return tx.queue.PopFrame()
}

// QueueLen returns the number of frames currently queued.
func (tx *Transmitter) QueueLen() int {
	return tx.queue.Len()
}

func headerToID(h transport.Header) (ID, transport.CANTransferID, transport.Instant, error) {
	switch {
	case h.Message != nil:
		id, err := EncodeMessageID(h.Message.Priority, h.Message.Subject, h.Message.Source)
		return id, h.Message.CANTransferID, h.Message.Timestamp, err
	case h.Request != nil:
		id, err := EncodeServiceID(h.Request.Priority, h.Request.Service, true, h.Request.Source, h.Request.Destination)
		return id, h.Request.CANTransferID, h.Request.Timestamp, err
	case h.Response != nil:
		id, err := EncodeServiceID(h.Response.Priority, h.Response.Service, false, h.Response.Source, h.Response.Destination)
		return id, h.Response.CANTransferID, h.Response.Timestamp, err
	default:
		return 0, 0, 0, fmt.Errorf("%w: header has no variant set", transport.ErrInvalidFrameFormat)
	}
}

// fragment splits payload into the tail-byte-terminated frame data chunks
// for one transfer, per spec.md §4.1/§4.2 and the CAN-FD DLC padding rule:
// padding bytes are inserted between the end of the payload and the
// trailing transfer CRC, never between the CRC and the tail byte, and the
// transfer CRC covers them.
func fragment(payload []byte, tid transport.CANTransferID, mtu Mtu) [][]byte {
	cap := mtu.payloadCapacity()
	if len(payload) <= cap {
		raw := len(payload) + 1
		padded := roundUpFrameLength(raw)
		data := make([]byte, 0, padded)
		data = append(data, payload...)
		data = append(data, make([]byte, padded-raw)...)
		data = append(data, tailByte(true, true, true, tid))
		return [][]byte{data}
	}

	acc := crc.NewCRC16()
	acc.Digest(payload)
	crcBytes := acc.Bytes()

	var frames [][]byte
	offset := 0
	toggle := true
	frameIndex := 0
	for {
		remaining := payload[offset:]
		if len(remaining) > cap {
			chunk := remaining[:cap]
			offset += cap
			data := make([]byte, 0, cap+1)
			data = append(data, chunk...)
			data = append(data, tailByte(frameIndex == 0, false, toggle, tid))
			frames = append(frames, data)
			toggle = !toggle
			frameIndex++
			continue
		}

		if len(remaining)+3 <= cap+1 {
			raw := len(remaining) + 3
			padded := roundUpFrameLength(raw)
			padding := make([]byte, padded-raw)
			acc.Digest(padding)
			crcBytes = acc.Bytes()
			data := make([]byte, 0, padded)
			data = append(data, remaining...)
			data = append(data, padding...)
			data = append(data, crcBytes[0], crcBytes[1])
			data = append(data, tailByte(frameIndex == 0, true, toggle, tid))
			frames = append(frames, data)
		} else {
			combined := make([]byte, 0, len(remaining)+2)
			combined = append(combined, remaining...)
			combined = append(combined, crcBytes[0], crcBytes[1])

			first := combined[:cap]
			data := make([]byte, 0, cap+1)
			data = append(data, first...)
			data = append(data, tailByte(frameIndex == 0, false, toggle, tid))
			frames = append(frames, data)
			toggle = !toggle
			frameIndex++

			rest := combined[cap:]
			raw := len(rest) + 1
			padded := roundUpFrameLength(raw)
			data2 := make([]byte, 0, padded)
			data2 = append(data2, rest...)
			data2 = append(data2, make([]byte, padded-raw)...)
			data2 = append(data2, tailByte(false, true, toggle, tid))
			frames = append(frames, data2)
		}
		break
	}
	return frames
}
