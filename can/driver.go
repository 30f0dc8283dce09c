package can

import "github.com/cyphal-go/transport/transport"

// Filter is one hardware acceptance filter: a frame is accepted if
// (frame.ID & Mask) == (ID & Mask).
type Filter struct {
	ID   uint32
	Mask uint32
}

// Driver is the CAN hardware capability consumed by the core (spec.md §6).
// Implementations live outside the core (e.g. can/socketcan); the core
// only calls through this interface.
type Driver interface {
	// Transmit attempts to place frame in a hardware mailbox. It returns
	// transport.ErrWouldBlock if no mailbox is free. If placing the frame
	// displaced another frame from its mailbox (due to priority
	// arbitration), that frame is returned as displaced.
	Transmit(frame Frame, now transport.Instant) (mailbox Mailbox, displaced *Frame, err error)
	// Receive returns the next received frame, or transport.ErrWouldBlock
	// if none is available.
	Receive(now transport.Instant) (Frame, error)
	// Abort cancels whatever frame occupies mailbox, if any.
	Abort(mailbox Mailbox)
	// ModifyFilters installs a new filter set, replacing any previous one.
	ModifyFilters(filters []Filter)
	// NumBanks reports how many hardware filter banks are available.
	NumBanks() int
}

// Flush drains the transmitter's queue through driver, stamping the
// outgoing deadline tracker and silently dropping frames whose deadline
// has already passed (spec.md §4.6, §5 "Cancellation").
//
// Flush stops and returns transport.ErrWouldBlock as soon as the driver
// can't accept another frame; the caller is expected to retry later.
func (tx *Transmitter) Flush(now transport.Instant, driver Driver, deadlines *DeadlineTracker) error {
	for {
		CleanExpired(deadlines, driver, now)

		frame, ok := tx.queue.PopFrame()
		if !ok {
			return nil
		}

		if frame.Timestamp.Before(now) {
			// Deadline passed between enqueue and flush: drop silently
			// (spec.md §8 invariant 7).
			continue
		}

		mailbox, _, err := driver.Transmit(frame, now)
		if err == transport.ErrWouldBlock {
			tx.queue.pushFront(frame)
			return transport.ErrWouldBlock
		}
		if err != nil {
			tx.queue.pushFront(frame)
			return transport.NewDriverError(err)
		}
		deadlines.Replace(mailbox, frame.Timestamp)
	}
}
