// Package transport defines the primitive identifiers and the canonical
// Transfer model shared by the CAN, serial, and UDP transports.
package transport

import "fmt"

// Priority is the 3-bit transfer priority. Zero is the highest priority.
type Priority uint8

// Priority levels, lowest numeric value wins arbitration.
const (
	PriorityExceptional Priority = 0
	PriorityImmediate   Priority = 1
	PriorityFast        Priority = 2
	PriorityHigh        Priority = 3
	PriorityNominal     Priority = 4
	PriorityLow         Priority = 5
	PrioritySlow        Priority = 6
	PriorityOptional    Priority = 7
)

const maxPriority = 7

// NewPriority validates and returns a Priority.
func NewPriority(v uint8) (Priority, error) {
	if v > maxPriority {
		return 0, fmt.Errorf("%w: priority %d exceeds %d", ErrInvalidFrameFormat, v, maxPriority)
	}
	return Priority(v), nil
}

// NodeID identifies a node on a transport. Valid ranges differ per
// transport: CAN allows 0-127, serial and UDP allow 0-65534 (65535 is
// reserved as a broadcast/anonymous marker on UDP).
type NodeID uint16

const (
	// MaxCANNodeID is the highest node ID usable on CAN (7 bits).
	MaxCANNodeID NodeID = 127
	// MaxUDPNodeID is the highest node ID usable on serial/UDP.
	MaxUDPNodeID NodeID = 65534
)

// NewCANNodeID validates a node ID against the CAN 7-bit range.
func NewCANNodeID(v uint16) (NodeID, error) {
	if v > uint16(MaxCANNodeID) {
		return 0, fmt.Errorf("%w: CAN node id %d exceeds %d", ErrInvalidFrameFormat, v, MaxCANNodeID)
	}
	return NodeID(v), nil
}

// NewTransportNodeID validates a node ID against the serial/UDP range.
func NewTransportNodeID(v uint16) (NodeID, error) {
	if v > uint16(MaxUDPNodeID) {
		return 0, fmt.Errorf("%w: node id %d exceeds %d", ErrInvalidFrameFormat, v, MaxUDPNodeID)
	}
	return NodeID(v), nil
}

// SubjectID identifies a message subject (port). Valid range is 0-8191
// (13 bits).
type SubjectID uint16

// MaxSubjectID is the largest valid subject ID (13 bits).
const MaxSubjectID SubjectID = 8191

// NewSubjectID validates and returns a SubjectID.
func NewSubjectID(v uint16) (SubjectID, error) {
	if v > uint16(MaxSubjectID) {
		return 0, fmt.Errorf("%w: subject id %d exceeds %d", ErrInvalidFrameFormat, v, MaxSubjectID)
	}
	return SubjectID(v), nil
}

// ServiceID identifies a service (port). Valid range is 0-511 (9 bits).
type ServiceID uint16

// MaxServiceID is the largest valid service ID (9 bits).
const MaxServiceID ServiceID = 511

// NewServiceID validates and returns a ServiceID.
func NewServiceID(v uint16) (ServiceID, error) {
	if v > uint16(MaxServiceID) {
		return 0, fmt.Errorf("%w: service id %d exceeds %d", ErrInvalidFrameFormat, v, MaxServiceID)
	}
	return ServiceID(v), nil
}

// CANTransferID is a 5-bit modular transfer counter used on CAN.
type CANTransferID uint8

const canTransferIDModulus = 32

// Next returns the following transfer ID, wrapping modulo 32.
func (t CANTransferID) Next() CANTransferID {
	return CANTransferID((uint8(t) + 1) % canTransferIDModulus)
}

// NewCANTransferID validates and returns a CANTransferID.
func NewCANTransferID(v uint8) (CANTransferID, error) {
	if v >= canTransferIDModulus {
		return 0, fmt.Errorf("%w: CAN transfer id %d exceeds %d", ErrInvalidFrameFormat, v, canTransferIDModulus-1)
	}
	return CANTransferID(v), nil
}

// NewerThan reports whether t is strictly newer than other modulo 32,
// within the half-space window (spec.md §4.3 "Transfer-ID ordering").
func (t CANTransferID) NewerThan(other CANTransferID) bool {
	diff := (uint8(t) - uint8(other)) % canTransferIDModulus
	return diff != 0 && diff < canTransferIDModulus/2
}

// TransferID is a 64-bit monotonic transfer counter used on serial and UDP.
type TransferID uint64

// Next returns the following transfer ID, wrapping at the 64-bit boundary.
func (t TransferID) Next() TransferID {
	return t + 1
}

// NewerThan reports whether t is strictly greater than other, as required
// by the serial/UDP strict-greater-than ordering check.
func (t TransferID) NewerThan(other TransferID) bool {
	return t > other
}

// PortKind distinguishes the three transfer categories sharing the port-ID
// numeric space.
type PortKind uint8

const (
	KindMessage PortKind = iota
	KindRequest
	KindResponse
)

func (k PortKind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}
