// Package udpsock is a host UDP driver backed by net.UDPConn, joining
// multicast groups via golang.org/x/sys/unix socket options the way the
// teacher's bus_manager.go reaches for unix socket constants (there for
// CAN ID masking, here for IP_ADD_MEMBERSHIP).
package udpsock

import (
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/cyphal-go/transport/transport"
	"github.com/cyphal-go/transport/udp"
)

// rxBufferSize is the largest single datagram this driver will read.
const rxBufferSize = 65536

// Driver is a udp.Driver backed by a single UDP socket bound to
// udp.WellKnownPort.
type Driver struct {
	conn *net.UDPConn
}

// New opens a UDP socket bound to addr (typically ":9382") with
// SO_REUSEADDR set so multiple subject subscriptions on the same host
// can share the well-known port.
func New(addr *net.UDPAddr) (*Driver, error) {
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, err
	}
	raw, err := conn.SyscallConn()
	if err != nil {
		conn.Close()
		return nil, err
	}
	var sockErr error
	err = raw.Control(func(descriptor uintptr) {
		sockErr = unix.SetsockoptInt(int(descriptor), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if sockErr != nil {
		conn.Close()
		return nil, sockErr
	}
	return &Driver{conn: conn}, nil
}

// JoinMulticast joins the IPv4 multicast group at group (a 4-byte
// address) via IP_ADD_MEMBERSHIP.
func (d *Driver) JoinMulticast(group []byte) error {
	if len(group) != net.IPv4len {
		return errors.New("udpsock: multicast group must be a 4-byte IPv4 address")
	}
	mreq := &unix.IPMreq{}
	copy(mreq.Multiaddr[:], group)
	var ctrlErr error
	raw, err := d.conn.SyscallConn()
	if err != nil {
		return err
	}
	err = raw.Control(func(fd uintptr) {
		ctrlErr = unix.SetsockoptIPMreq(int(fd), unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreq)
	})
	if err != nil {
		return err
	}
	return ctrlErr
}

// SendTo writes data to addr:WellKnownPort.
func (d *Driver) SendTo(addr []byte, data []byte) error {
	dst := &net.UDPAddr{IP: net.IP(addr), Port: udp.WellKnownPort}
	_, err := d.conn.WriteToUDP(data, dst)
	if err != nil {
		if errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) {
			return transport.ErrWouldBlock
		}
		return err
	}
	return nil
}

// RecvFrom reads the next datagram, or transport.ErrWouldBlock if the
// (non-blocking) socket has none queued.
func (d *Driver) RecvFrom() ([]byte, []byte, error) {
	buf := make([]byte, rxBufferSize)
	n, src, err := d.conn.ReadFromUDP(buf)
	if err != nil {
		if errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) {
			return nil, nil, transport.ErrWouldBlock
		}
		return nil, nil, err
	}
	return buf[:n], src.IP.To4(), nil
}

// SetNonblocking puts the underlying socket in non-blocking mode so
// RecvFrom/SendTo return transport.ErrWouldBlock instead of blocking,
// matching the core's cooperative scheduling model (spec.md §5).
func (d *Driver) SetNonblocking() error {
	var ctrlErr error
	raw, err := d.conn.SyscallConn()
	if err != nil {
		return err
	}
	err = raw.Control(func(fd uintptr) {
		ctrlErr = unix.SetNonblock(int(fd), true)
	})
	if err != nil {
		return err
	}
	return ctrlErr
}

// Close releases the socket.
func (d *Driver) Close() error {
	return d.conn.Close()
}
