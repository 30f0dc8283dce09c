package can

import (
	"fmt"

	"github.com/cyphal-go/transport/transport"
)

// ID is a 29-bit extended CAN identifier encoding a Cyphal/CAN v1 frame
// header (spec.md §4.1).
type ID uint32

const (
	maxExtendedID = 0x1FFFFFFF

	bitPriorityShift = 26
	bitServiceNotMsg = 1 << 25
	bitAnonymous     = 1 << 24
	bitRequestNotRsp = 1 << 24

	// messageReservedBits are the two constant "1" bits between the
	// anonymous flag and the subject ID in a message frame's CAN ID
	// (bits 22-21), fixed by the Cyphal/CAN specification.
	messageReservedBits = 0b11 << 21

	subjectShift     = 8
	subjectMask      = 0x1FFF // 13 bits
	serviceShift     = 14
	serviceMask      = 0x1FF // 9 bits
	destinationShift = 7
	nodeMask         = 0x7F // 7 bits
)

// EncodeMessageID builds the 29-bit CAN ID for a message (publish) frame.
// source is nil for an anonymous message, in which case the source-node
// field is left as zero (a real anonymous discriminator is a driver-level
// concern not exercised by this core).
func EncodeMessageID(priority transport.Priority, subject transport.SubjectID, source *transport.NodeID) (ID, error) {
	if subject > transport.MaxSubjectID {
		return 0, fmt.Errorf("%w: subject %d out of range", transport.ErrInvalidFrameFormat, subject)
	}
	id := uint32(priority) << bitPriorityShift
	id |= messageReservedBits
	id |= (uint32(subject) & subjectMask) << subjectShift
	if source == nil {
		id |= bitAnonymous
	} else {
		if *source > transport.MaxCANNodeID {
			return 0, fmt.Errorf("%w: source node %d out of range", transport.ErrInvalidFrameFormat, *source)
		}
		id |= uint32(*source) & nodeMask
	}
	return ID(id), nil
}

// EncodeServiceID builds the 29-bit CAN ID for a request or response frame.
func EncodeServiceID(priority transport.Priority, service transport.ServiceID, request bool, source, destination transport.NodeID) (ID, error) {
	if service > transport.MaxServiceID {
		return 0, fmt.Errorf("%w: service %d out of range", transport.ErrInvalidFrameFormat, service)
	}
	if source > transport.MaxCANNodeID || destination > transport.MaxCANNodeID {
		return 0, fmt.Errorf("%w: node id out of range", transport.ErrInvalidFrameFormat)
	}
	id := uint32(priority) << bitPriorityShift
	id |= bitServiceNotMsg
	if request {
		id |= bitRequestNotRsp
	}
	id |= (uint32(service) & serviceMask) << serviceShift
	id |= (uint32(destination) & nodeMask) << destinationShift
	id |= uint32(source) & nodeMask
	return ID(id), nil
}

// Decoded is the result of parsing a 29-bit CAN ID.
type Decoded struct {
	Priority    transport.Priority
	IsService   bool
	IsRequest   bool
	Anonymous   bool
	Subject     transport.SubjectID
	Service     transport.ServiceID
	Source      transport.NodeID
	Destination transport.NodeID
}

// Decode parses a 29-bit CAN ID into its fields, or returns
// ErrInvalidFrameFormat if the ID uses reserved bits inconsistently.
func Decode(id ID) (Decoded, error) {
	v := uint32(id)
	if v > maxExtendedID {
		return Decoded{}, fmt.Errorf("%w: CAN ID exceeds 29 bits", transport.ErrInvalidFrameFormat)
	}
	d := Decoded{
		Priority: transport.Priority((v >> bitPriorityShift) & 0x7),
	}
	if v&bitServiceNotMsg != 0 {
		d.IsService = true
		d.IsRequest = v&bitRequestNotRsp != 0
		d.Service = transport.ServiceID((v >> serviceShift) & serviceMask)
		d.Destination = transport.NodeID((v >> destinationShift) & nodeMask)
		d.Source = transport.NodeID(v & nodeMask)
		return d, nil
	}
	d.Anonymous = v&bitAnonymous != 0
	if v&messageReservedBits != messageReservedBits {
		return Decoded{}, fmt.Errorf("%w: reserved message bits not set", transport.ErrInvalidFrameFormat)
	}
	d.Subject = transport.SubjectID((v >> subjectShift) & subjectMask)
	d.Source = transport.NodeID(v & nodeMask)
	return d, nil
}
