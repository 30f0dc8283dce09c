package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphal-go/transport/session"
	"github.com/cyphal-go/transport/transport"
	"github.com/cyphal-go/transport/udp"
)

type fakeUDPDriver struct {
	sent    []fakeDatagram
	inbound [][]byte
}

type fakeDatagram struct {
	addr []byte
	data []byte
}

func (d *fakeUDPDriver) SendTo(addr []byte, data []byte) error {
	d.sent = append(d.sent, fakeDatagram{addr: addr, data: data})
	return nil
}

func (d *fakeUDPDriver) RecvFrom() ([]byte, []byte, error) {
	if len(d.inbound) == 0 {
		return nil, nil, transport.ErrWouldBlock
	}
	next := d.inbound[0]
	d.inbound = d.inbound[1:]
	return next, []byte{127, 0, 0, 1}, nil
}

func (d *fakeUDPDriver) JoinMulticast(group []byte) error { return nil }

func TestUDPFacadeLoopback(t *testing.T) {
	driver := &fakeUDPDriver{}
	tx := NewUDPTransmitter(udp.NewTransmitter(1200, []byte{10, 0, 0, 0}), driver, 16)

	source := transport.NodeID(2)
	err := tx.Push(transport.Transfer{
		Header: transport.Header{Message: &transport.MessageHeader{
			Subject: 73, Source: &source, TransferID: 4,
		}},
		Payload: []byte{5, 6, 7},
	})
	require.NoError(t, err)
	require.NoError(t, tx.Flush(0))
	require.Len(t, driver.sent, 1)

	driver.inbound = append(driver.inbound, driver.sent[0].data)

	sessions := session.NewDynamicMap[transport.TransferID](0)
	receiver := udp.NewReceiver(sessions)
	receiver.Subscribe(udp.Subscription{Kind: transport.KindMessage, Port: 73, MaxPayload: 16, Timeout: time.Second})
	rx := NewUDPReceiver(driver, receiver)

	transfer, err := rx.Poll(0)
	require.NoError(t, err)
	require.NotNil(t, transfer)
	assert.Equal(t, []byte{5, 6, 7}, transfer.Payload)
}

func TestUDPFacadePushRejectsWhenOverCapacity(t *testing.T) {
	driver := &fakeUDPDriver{}
	tx := NewUDPTransmitter(udp.NewTransmitter(64, []byte{10, 0, 0, 0}), driver, 1)

	source := transport.NodeID(2)
	payload := make([]byte, 150)
	err := tx.Push(transport.Transfer{
		Header: transport.Header{Message: &transport.MessageHeader{
			Subject: 73, Source: &source, TransferID: 1,
		}},
		Payload: payload,
	})
	assert.ErrorIs(t, err, transport.ErrOutOfMemory)
}
