package can

import "github.com/cyphal-go/transport/transport"

// Mtu selects the classic-CAN or CAN-FD payload policy.
type Mtu int

const (
	// MtuClassic8 is classic CAN: 8-byte frames, 7 payload bytes + tail.
	MtuClassic8 Mtu = 8
	// MtuCanFD64 is CAN-FD: up to 64-byte frames, 63 payload bytes + tail.
	MtuCanFD64 Mtu = 64
)

// canFDLengths is the DLC step table for CAN-FD frame lengths: any payload
// (including the tail byte) is rounded up to the next entry.
var canFDLengths = [...]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 12, 16, 20, 24, 32, 48, 64}

// MaxFrameDataBytes returns the largest number of bytes (including the tail
// byte) a single frame under this MTU policy can carry.
func (m Mtu) MaxFrameDataBytes() int {
	return int(m)
}

// payloadCapacity returns the number of non-tail payload bytes available in
// a single frame for this MTU.
func (m Mtu) payloadCapacity() int {
	return int(m) - 1
}

// roundUpFrameLength rounds n (a length including the tail byte) up to the
// next valid CAN-FD DLC step. n must already be <= 64.
func roundUpFrameLength(n int) int {
	for _, step := range canFDLengths {
		if step >= n {
			return step
		}
	}
	return canFDLengths[len(canFDLengths)-1]
}

// Frame is a single CAN link-layer datagram (spec.md §3 "Frame (CAN)").
type Frame struct {
	Timestamp transport.Instant
	ID        ID
	Data      []byte
}

// NewFrame constructs a frame, copying data so the caller's buffer can be
// reused.
func NewFrame(timestamp transport.Instant, id ID, data []byte) Frame {
	buf := make([]byte, len(data))
	copy(buf, data)
	return Frame{Timestamp: timestamp, ID: id, Data: buf}
}
