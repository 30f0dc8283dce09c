package node

import "github.com/cyphal-go/transport/transport"

// RedundantTransmitter composes N transport façades (any mix of CAN,
// serial, UDP) behind one Push/Flush API, extending spec.md §4.5's
// CAN-specific redundant queue to the façade level: a serial+CAN or
// CAN+CAN redundant pair is built the same way. Push succeeds if any one
// inner transmitter accepts the transfer; Flush drains every inner
// transmitter and reports backpressure only if all of them applied it.
type RedundantTransmitter struct {
	transmitters []Transmitter
}

// NewRedundantTransmitter aggregates transmitters, at least one of which
// must be given.
func NewRedundantTransmitter(transmitters ...Transmitter) *RedundantTransmitter {
	return &RedundantTransmitter{transmitters: transmitters}
}

// Push offers transfer to every inner transmitter and succeeds if at
// least one of them accepted it.
func (r *RedundantTransmitter) Push(transfer transport.Transfer) error {
	var lastErr error
	succeeded := false
	for _, tx := range r.transmitters {
		err := tx.Push(transfer)
		if err == nil {
			succeeded = true
			continue
		}
		lastErr = err
	}
	if succeeded {
		return nil
	}
	return lastErr
}

// Flush drains every inner transmitter. It returns nil if at least one of
// them flushed without error; otherwise it returns the error of the last
// inner transmitter, which is transport.ErrWouldBlock when that one
// applied backpressure.
func (r *RedundantTransmitter) Flush(now transport.Instant) error {
	var lastErr error
	succeeded := false
	for _, tx := range r.transmitters {
		err := tx.Flush(now)
		if err == nil {
			succeeded = true
			continue
		}
		lastErr = err
	}
	if succeeded {
		return nil
	}
	return lastErr
}
