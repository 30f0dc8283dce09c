// Package node provides the transport-agnostic façade applications drive:
// a uniform push/poll/flush API implemented once per transport (CAN,
// serial, UDP), so an application built against node.Transmitter/
// node.Receiver never branches on which wire format it's actually
// speaking (spec.md §6). Grounded on the teacher's Network/BusManager
// wrapper, generalized from "one CAN bus" to "one of three transports
// chosen at construction time".
package node

import "github.com/cyphal-go/transport/transport"

// Transmitter is the uniform outbound capability every transport façade
// exposes: queue a transfer, then drain the queue through whatever
// wire-level driver backs it.
type Transmitter interface {
	// Push fragments and enqueues transfer for later transmission.
	Push(transfer transport.Transfer) error
	// Flush drains as much of the queued output as the driver currently
	// accepts. It returns transport.ErrWouldBlock if the driver applied
	// backpressure before the queue emptied; the caller retries later.
	Flush(now transport.Instant) error
}

// Receiver is the uniform inbound capability: pump the driver once for
// whatever has arrived and return any transfer that completed.
type Receiver interface {
	// Poll reads wire data from the driver (one CAN frame, one UDP
	// datagram, or serial bytes until a transfer completes or the driver
	// runs dry) and feeds it through reassembly. It returns (nil, nil) if
	// nothing was available or nothing completed.
	Poll(now transport.Instant) (*transport.Transfer, error)
}
