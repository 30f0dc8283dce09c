package node

import (
	"github.com/cyphal-go/transport/can"
	"github.com/cyphal-go/transport/transport"
)

// CANTransmitter adapts a can.Transmitter and its driver to the
// Transmitter façade.
type CANTransmitter struct {
	inner     *can.Transmitter
	driver    can.Driver
	deadlines can.DeadlineTracker
}

// NewCANTransmitter wraps tx, draining through driver on Flush.
func NewCANTransmitter(tx *can.Transmitter, driver can.Driver) *CANTransmitter {
	return &CANTransmitter{inner: tx, driver: driver}
}

// Push fragments and enqueues transfer (see can.Transmitter.Push).
func (t *CANTransmitter) Push(transfer transport.Transfer) error {
	return t.inner.Push(transfer)
}

// Flush drains the queue through the bound driver (see can.Transmitter.Flush).
func (t *CANTransmitter) Flush(now transport.Instant) error {
	return t.inner.Flush(now, t.driver, &t.deadlines)
}

// CANReceiver adapts a can.Driver and can.Receiver to the Receiver façade.
type CANReceiver struct {
	driver can.Driver
	inner  *can.Receiver
}

// NewCANReceiver wraps inner, pulling frames from driver on Poll.
func NewCANReceiver(driver can.Driver, inner *can.Receiver) *CANReceiver {
	return &CANReceiver{driver: driver, inner: inner}
}

// Poll reads one frame from the driver and feeds it through reassembly.
func (r *CANReceiver) Poll(now transport.Instant) (*transport.Transfer, error) {
	frame, err := r.driver.Receive(now)
	if err == transport.ErrWouldBlock {
		return nil, nil
	}
	if err != nil {
		return nil, transport.NewDriverError(err)
	}
	return r.inner.Accept(frame, now)
}
