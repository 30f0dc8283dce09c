package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphal-go/transport/serial"
	"github.com/cyphal-go/transport/transport"
)

type fakeSerialDriver struct {
	out []byte
	in  []byte
}

func (d *fakeSerialDriver) SendByte(b byte) error {
	d.out = append(d.out, b)
	return nil
}

func (d *fakeSerialDriver) RecvByte() (byte, error) {
	if len(d.in) == 0 {
		return 0, transport.ErrWouldBlock
	}
	b := d.in[0]
	d.in = d.in[1:]
	return b, nil
}

func TestSerialFacadeLoopback(t *testing.T) {
	driver := &fakeSerialDriver{}
	tx := NewSerialTransmitter(serial.NewTransmitter(4096), driver)

	source := transport.NodeID(3)
	err := tx.Push(transport.Transfer{
		Header: transport.Header{Message: &transport.MessageHeader{
			Subject: 7, Source: &source, TransferID: 1,
		}},
		Payload: []byte{9, 8, 7},
	})
	require.NoError(t, err)
	require.NoError(t, tx.Flush(0))

	driver.in = driver.out

	receiver := serial.NewReceiver(4096)
	receiver.Subscribe(serial.Subscription{Kind: transport.KindMessage, Port: 7, MaxPayload: 16})
	rx := NewSerialReceiver(driver, receiver)

	transfer, err := rx.Poll(0)
	require.NoError(t, err)
	require.NotNil(t, transfer)
	assert.Equal(t, []byte{9, 8, 7}, transfer.Payload)
}

func TestSerialFacadePollReturnsNilWhenDry(t *testing.T) {
	driver := &fakeSerialDriver{}
	receiver := serial.NewReceiver(4096)
	rx := NewSerialReceiver(driver, receiver)

	transfer, err := rx.Poll(0)
	require.NoError(t, err)
	assert.Nil(t, transfer)
}
