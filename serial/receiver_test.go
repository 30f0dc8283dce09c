package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphal-go/transport/transport"
)

func encodedFrame(t *testing.T, tx *Transmitter, transfer transport.Transfer) []byte {
	t.Helper()
	require.NoError(t, tx.Push(transfer))
	driver := &byteSliceDriver{}
	require.NoError(t, tx.Flush(driver))
	return driver.out
}

func pushAll(t *testing.T, recv *Receiver, data []byte) *transport.Transfer {
	t.Helper()
	var out *transport.Transfer
	for _, b := range data {
		tr, err := recv.PushByte(b, 0)
		require.NoError(t, err)
		if tr != nil {
			out = tr
		}
	}
	return out
}

func TestReceiverRejectsStaleTransferID(t *testing.T) {
	recv := NewReceiver(4096)
	recv.Subscribe(Subscription{Kind: transport.KindMessage, Port: 1, MaxPayload: 16})
	source := transport.NodeID(1)

	first := encodedFrame(t, NewTransmitter(4096), transport.Transfer{
		Header: transport.Header{Message: &transport.MessageHeader{Subject: 1, Source: &source, TransferID: 5}},
		Payload: []byte{1},
	})
	require.NotNil(t, pushAll(t, recv, first))

	stale := encodedFrame(t, NewTransmitter(4096), transport.Transfer{
		Header: transport.Header{Message: &transport.MessageHeader{Subject: 1, Source: &source, TransferID: 5}},
		Payload: []byte{2},
	})
	assert.Nil(t, pushAll(t, recv, stale))

	next := encodedFrame(t, NewTransmitter(4096), transport.Transfer{
		Header: transport.Header{Message: &transport.MessageHeader{Subject: 1, Source: &source, TransferID: 6}},
		Payload: []byte{3},
	})
	transfer := pushAll(t, recv, next)
	require.NotNil(t, transfer)
	assert.Equal(t, []byte{3}, transfer.Payload)
}

func TestReceiverDropsOverlongFrame(t *testing.T) {
	recv := NewReceiver(8)
	data := make([]byte, 0)
	data = append(data, 0x00)
	for i := 0; i < 20; i++ {
		data = append(data, 0x01)
	}
	data = append(data, 0x00)

	// The frame exceeds maxFrame and must be dropped, leaving the state
	// machine ready for the next delimiter rather than wedged.
	transfer := pushAll(t, recv, data)
	assert.Nil(t, transfer)

	tr, err := recv.PushByte(0x00, 0)
	require.NoError(t, err)
	assert.Nil(t, tr)
}

func TestReceiverIgnoresUnknownPort(t *testing.T) {
	recv := NewReceiver(4096)
	source := transport.NodeID(1)
	frame := encodedFrame(t, NewTransmitter(4096), transport.Transfer{
		Header: transport.Header{Message: &transport.MessageHeader{Subject: 99, Source: &source, TransferID: 1}},
		Payload: []byte{1, 2},
	})
	assert.Nil(t, pushAll(t, recv, frame))
}
