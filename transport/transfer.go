package transport

// MessageHeader describes a broadcast (publish/subscribe) transfer.
// Source is absent for anonymous messages on CAN.
type MessageHeader struct {
	Timestamp  Instant
	Priority   Priority
	Subject    SubjectID
	Source     *NodeID
	CANTransferID CANTransferID
	TransferID    TransferID
}

// ServiceHeader describes a request or response transfer.
type ServiceHeader struct {
	Timestamp     Instant
	Priority      Priority
	Service       ServiceID
	Source        NodeID
	Destination   NodeID
	CANTransferID CANTransferID
	TransferID    TransferID
}

// Header is a tagged union over the three transfer kinds. Exactly one of
// Message, Request, Response is non-nil.
type Header struct {
	Message  *MessageHeader
	Request  *ServiceHeader
	Response *ServiceHeader
}

// Kind reports which variant this header holds.
func (h Header) Kind() PortKind {
	switch {
	case h.Message != nil:
		return KindMessage
	case h.Request != nil:
		return KindRequest
	default:
		return KindResponse
	}
}

// Timestamp returns the timestamp common to all header variants.
func (h Header) Timestamp() Instant {
	switch {
	case h.Message != nil:
		return h.Message.Timestamp
	case h.Request != nil:
		return h.Request.Timestamp
	default:
		return h.Response.Timestamp
	}
}

// Priority returns the priority common to all header variants.
func (h Header) Priority() Priority {
	switch {
	case h.Message != nil:
		return h.Message.Priority
	case h.Request != nil:
		return h.Request.Priority
	default:
		return h.Response.Priority
	}
}

// Transfer is the application-level unit handed to and from a Transmitter
// or Receiver.
type Transfer struct {
	Header  Header
	Payload []byte
}
