package can

import "github.com/cyphal-go/transport/transport"

// Mailbox identifies one of a CAN controller's hardware transmit mailboxes.
type Mailbox int

// NumMailboxes is the number of hardware mailboxes tracked (spec.md §3
// "DeadlineTracker (CAN)").
const NumMailboxes = 3

// DeadlineTracker remembers, for each hardware mailbox, the deadline of
// the frame currently occupying it. A frame's timestamp field doubles as
// its transmit deadline (spec.md §5 "Cancellation").
type DeadlineTracker struct {
	deadlines [NumMailboxes]*transport.Instant
}

// Get returns the deadline stored for mailbox, if any.
func (t *DeadlineTracker) Get(mailbox Mailbox) (transport.Instant, bool) {
	d := t.deadlines[mailbox]
	if d == nil {
		return 0, false
	}
	return *d, true
}

// Replace stores a new deadline for mailbox and returns the deadline it
// displaced, if any (spec.md §3 "Lifecycle: entry written on successful
// enqueue").
func (t *DeadlineTracker) Replace(mailbox Mailbox, deadline transport.Instant) (transport.Instant, bool) {
	prev := t.deadlines[mailbox]
	d := deadline
	t.deadlines[mailbox] = &d
	if prev == nil {
		return 0, false
	}
	return *prev, true
}

// Clear empties a mailbox slot (spec.md §3 "cleared when mailbox completes
// or is aborted").
func (t *DeadlineTracker) Clear(mailbox Mailbox) {
	t.deadlines[mailbox] = nil
}

// CleanExpired walks every mailbox and aborts, via driver, any whose
// deadline has strictly passed relative to now, using a wraparound-safe
// comparison (spec.md §4.6).
func CleanExpired(t *DeadlineTracker, driver Driver, now transport.Instant) {
	for m := 0; m < NumMailboxes; m++ {
		mailbox := Mailbox(m)
		deadline, ok := t.Get(mailbox)
		if !ok {
			continue
		}
		if deadline.Before(now) {
			driver.Abort(mailbox)
			t.Clear(mailbox)
		}
	}
}
