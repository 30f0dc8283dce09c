package node

import (
	"github.com/cyphal-go/transport/transport"
	"github.com/cyphal-go/transport/udp"
)

// UDPTransmitter adapts a udp.Transmitter and its datagram driver to the
// Transmitter façade. Unlike CAN and serial, fragmentation produces
// complete, independently-addressed datagrams rather than a shared byte
// stream, so this façade holds its own bounded pending queue rather than
// delegating to one inside the udp package.
type UDPTransmitter struct {
	inner    *udp.Transmitter
	driver   udp.Driver
	capacity int
	pending  []udp.Datagram
}

// NewUDPTransmitter wraps tx, draining through driver on Flush. capacity
// bounds the number of not-yet-sent datagrams held across Push calls.
func NewUDPTransmitter(tx *udp.Transmitter, driver udp.Driver, capacity int) *UDPTransmitter {
	return &UDPTransmitter{inner: tx, driver: driver, capacity: capacity}
}

// Push fragments transfer into datagrams and enqueues all of them, or
// none if they wouldn't all fit (mirroring can.Transmitter.Push's
// no-partial-enqueue rule).
func (t *UDPTransmitter) Push(transfer transport.Transfer) error {
	datagrams, err := t.inner.Fragment(transfer)
	if err != nil {
		return err
	}
	if len(t.pending)+len(datagrams) > t.capacity {
		return transport.ErrOutOfMemory
	}
	t.pending = append(t.pending, datagrams...)
	return nil
}

// Flush sends queued datagrams through the bound driver, stopping and
// returning transport.ErrWouldBlock as soon as the driver can't accept
// another.
func (t *UDPTransmitter) Flush(now transport.Instant) error {
	for len(t.pending) > 0 {
		d := t.pending[0]
		if err := t.driver.SendTo(d.Addr, d.Data); err != nil {
			if err == transport.ErrWouldBlock {
				return transport.ErrWouldBlock
			}
			return transport.NewDriverError(err)
		}
		t.pending = t.pending[1:]
	}
	return nil
}

// UDPReceiver adapts a udp.Driver and udp.Receiver to the Receiver façade.
type UDPReceiver struct {
	driver udp.Driver
	inner  *udp.Receiver
}

// NewUDPReceiver wraps inner, pulling datagrams from driver on Poll.
func NewUDPReceiver(driver udp.Driver, inner *udp.Receiver) *UDPReceiver {
	return &UDPReceiver{driver: driver, inner: inner}
}

// Poll reads one datagram from the driver and feeds it through reassembly.
func (r *UDPReceiver) Poll(now transport.Instant) (*transport.Transfer, error) {
	data, _, err := r.driver.RecvFrom()
	if err == transport.ErrWouldBlock {
		return nil, nil
	}
	if err != nil {
		return nil, transport.NewDriverError(err)
	}
	return r.inner.Accept(data, now)
}
