package transport

// Transmitter is the common outbound capability every transport exposes:
// fragmenting and queueing one application transfer for later draining by
// its driver.
type Transmitter interface {
	Push(transfer Transfer) error
}

// RedundantTransmitter aggregates two transmitters, normally one per
// physical interface of a doubly-redundant transport. Push succeeds if it
// succeeds on at least one of them; nesting a RedundantTransmitter as one
// side of another gives triple redundancy (grounded on the teacher
// corpus's redundant queue composition, generalized from CAN to any
// transport here since the aggregation logic never looks at frames).
type RedundantTransmitter struct {
	first, second Transmitter
}

// NewRedundantTransmitter aggregates first and second.
func NewRedundantTransmitter(first, second Transmitter) *RedundantTransmitter {
	return &RedundantTransmitter{first: first, second: second}
}

// Push offers transfer to both inner transmitters and succeeds if either
// accepted it.
func (r *RedundantTransmitter) Push(transfer Transfer) error {
	errFirst := r.first.Push(transfer)
	if errFirst == nil {
		// Still offer it to the second interface even though the first
		// already succeeded, so both redundant links carry the transfer.
		_ = r.second.Push(transfer)
		return nil
	}
	errSecond := r.second.Push(transfer)
	if errSecond == nil {
		return nil
	}
	return errFirst
}
