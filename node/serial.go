package node

import (
	"github.com/cyphal-go/transport/serial"
	"github.com/cyphal-go/transport/transport"
)

// SerialTransmitter adapts a serial.Transmitter and its byte-level driver
// to the Transmitter façade.
type SerialTransmitter struct {
	inner  *serial.Transmitter
	driver serial.Driver
}

// NewSerialTransmitter wraps tx, draining through driver on Flush.
func NewSerialTransmitter(tx *serial.Transmitter, driver serial.Driver) *SerialTransmitter {
	return &SerialTransmitter{inner: tx, driver: driver}
}

// Push encodes and enqueues transfer (see serial.Transmitter.Push).
func (t *SerialTransmitter) Push(transfer transport.Transfer) error {
	return t.inner.Push(transfer)
}

// Flush drains queued bytes through the bound driver.
func (t *SerialTransmitter) Flush(now transport.Instant) error {
	return t.inner.Flush(t.driver)
}

// SerialReceiver adapts a serial.Driver and serial.Receiver to the
// Receiver façade. Unlike CAN or UDP, one transfer spans many bytes, so
// Poll drains the driver byte by byte until either a transfer completes
// or the driver runs dry.
type SerialReceiver struct {
	driver serial.Driver
	inner  *serial.Receiver
}

// NewSerialReceiver wraps inner, pulling bytes from driver on Poll.
func NewSerialReceiver(driver serial.Driver, inner *serial.Receiver) *SerialReceiver {
	return &SerialReceiver{driver: driver, inner: inner}
}

// Poll reads bytes from the driver until a frame completes or the driver
// has nothing left to offer.
func (r *SerialReceiver) Poll(now transport.Instant) (*transport.Transfer, error) {
	for {
		b, err := r.driver.RecvByte()
		if err == transport.ErrWouldBlock {
			return nil, nil
		}
		if err != nil {
			return nil, transport.NewDriverError(err)
		}
		transfer, err := r.inner.PushByte(b, now)
		if err != nil {
			return nil, err
		}
		if transfer != nil {
			return transfer, nil
		}
	}
}
