// Package socketcan adapts github.com/brutella/can, the teacher's SocketCAN
// wrapper, to the can.Driver interface.
package socketcan

import (
	"time"

	sockcan "github.com/brutella/can"

	"github.com/cyphal-go/transport/can"
	"github.com/cyphal-go/transport/transport"
)

// rxQueueSize bounds the software receive buffer between brutella/can's
// callback-driven Subscribe and this driver's polling Receive.
const rxQueueSize = 256

// Driver is a can.Driver backed by a SocketCAN interface via
// github.com/brutella/can. brutella/can exposes neither hardware mailbox
// feedback nor hardware acceptance filters, so both are approximated in
// software: Transmit always reports mailbox 0 and never displaces a
// frame, and ModifyFilters installs a software filter applied in
// Receive (documented in DESIGN.md).
type Driver struct {
	bus     *sockcan.Bus
	start   time.Time
	rx      chan can.Frame
	filters []can.Filter
	banks   int
}

// New opens interfaceName (e.g. "can0") via SocketCAN. banks is the
// number of filter-bank slots to report to can.OptimizeFilters; since
// filtering here happens in software there is no hardware limit, but a
// bounded value still exercises the optimizer the way a real adapter
// would.
func New(interfaceName string, banks int) (*Driver, error) {
	bus, err := sockcan.NewBusForInterfaceWithName(interfaceName)
	if err != nil {
		return nil, err
	}
	d := &Driver{
		bus:   bus,
		start: time.Now(),
		rx:    make(chan can.Frame, rxQueueSize),
		banks: banks,
	}
	bus.Subscribe(d)
	go bus.ConnectAndPublish()
	return d, nil
}

// Handle implements brutella/can's frame-handler interface.
func (d *Driver) Handle(frame sockcan.Frame) {
	if !d.accepts(frame.ID) {
		return
	}
	f := can.NewFrame(d.now(), can.ID(frame.ID), frame.Data[:frame.Length])
	select {
	case d.rx <- f:
	default:
		// Software receive buffer full: drop the oldest to make room
		// rather than block the callback goroutine.
		select {
		case <-d.rx:
		default:
		}
		select {
		case d.rx <- f:
		default:
		}
	}
}

func (d *Driver) now() transport.Instant {
	return transport.Instant(time.Since(d.start))
}

func (d *Driver) accepts(id uint32) bool {
	if len(d.filters) == 0 {
		return true
	}
	for _, f := range d.filters {
		if id&f.Mask == f.ID&f.Mask {
			return true
		}
	}
	return false
}

// Transmit publishes frame on the bus. brutella/can's Publish call blocks
// until the socket accepts the write, so this never returns WouldBlock;
// it always reports mailbox 0 and no displaced frame.
func (d *Driver) Transmit(frame can.Frame, now transport.Instant) (can.Mailbox, *can.Frame, error) {
	out := sockcan.Frame{
		ID:     uint32(frame.ID),
		Length: uint8(len(frame.Data)),
	}
	copy(out.Data[:], frame.Data)
	if err := d.bus.Publish(out); err != nil {
		return 0, nil, transport.NewDriverError(err)
	}
	return 0, nil, nil
}

// Receive returns the next frame accepted by the software filter, or
// transport.ErrWouldBlock if none is queued.
func (d *Driver) Receive(now transport.Instant) (can.Frame, error) {
	select {
	case f := <-d.rx:
		return f, nil
	default:
		return can.Frame{}, transport.ErrWouldBlock
	}
}

// Abort is a no-op: a single synchronous Transmit call has already
// returned by the time it could be aborted.
func (d *Driver) Abort(mailbox can.Mailbox) {}

// ModifyFilters installs the software-applied filter set used by Receive.
func (d *Driver) ModifyFilters(filters []can.Filter) {
	d.filters = append([]can.Filter(nil), filters...)
}

// NumBanks reports the configured software filter-bank budget.
func (d *Driver) NumBanks() int {
	return d.banks
}

// Close disconnects from the bus.
func (d *Driver) Close() error {
	return d.bus.Disconnect()
}
