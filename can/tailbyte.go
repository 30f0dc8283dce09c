package can

import "github.com/cyphal-go/transport/transport"

// Tail byte bit layout (spec.md §4.1): {start_of_transfer:1,
// end_of_transfer:1, toggle:1, transfer_id:5}.
const (
	tailStartOfTransfer = 1 << 7
	tailEndOfTransfer   = 1 << 6
	tailToggle          = 1 << 5
	tailTransferIDMask  = 0x1F
)

// tailByte encodes the tail byte for a single CAN frame.
func tailByte(sot, eot, toggle bool, tid transport.CANTransferID) byte {
	b := byte(tid) & tailTransferIDMask
	if sot {
		b |= tailStartOfTransfer
	}
	if eot {
		b |= tailEndOfTransfer
	}
	if toggle {
		b |= tailToggle
	}
	return b
}

// parseTailByte decodes a tail byte's four fields.
func parseTailByte(b byte) (sot, eot, toggle bool, tid transport.CANTransferID) {
	sot = b&tailStartOfTransfer != 0
	eot = b&tailEndOfTransfer != 0
	toggle = b&tailToggle != 0
	tid = transport.CANTransferID(b & tailTransferIDMask)
	return
}
