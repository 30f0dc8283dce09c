package udp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphal-go/transport/session"
	"github.com/cyphal-go/transport/transport"
)

func TestFragmentSingleDatagram(t *testing.T) {
	tx := NewTransmitter(1200, []byte{10, 0, 0, 0})
	source := transport.NodeID(1)
	datagrams, err := tx.Fragment(transport.Transfer{
		Header: transport.Header{Message: &transport.MessageHeader{
			Subject: 73, Source: &source, TransferID: 1,
		}},
		Payload: []byte{1, 2, 3},
	})
	require.NoError(t, err)
	require.Len(t, datagrams, 1)

	header, ok := DecodeHeader(datagrams[0].Data)
	require.True(t, ok)
	assert.True(t, header.EndOfTransfer)
	assert.Equal(t, uint32(0), header.FrameIndex)
	assert.Equal(t, []byte{1, 2, 3}, datagrams[0].Data[HeaderSize:])
	assert.Equal(t, []byte(MulticastAddress(73).To4()), datagrams[0].Addr)
}

func TestFragmentMultiDatagramRoundTrip(t *testing.T) {
	localBase := []byte{10, 0, 0, 0}
	tx := NewTransmitter(64, localBase)
	source := transport.NodeID(1)
	payload := make([]byte, 150)
	for i := range payload {
		payload[i] = byte(i)
	}

	datagrams, err := tx.Fragment(transport.Transfer{
		Header: transport.Header{Message: &transport.MessageHeader{
			Subject: 50, Source: &source, TransferID: 7,
		}},
		Payload: payload,
	})
	require.NoError(t, err)
	require.Greater(t, len(datagrams), 1)

	sessions := session.NewDynamicMap[transport.TransferID](0)
	recv := NewReceiver(sessions)
	recv.Subscribe(Subscription{Kind: transport.KindMessage, Port: 50, MaxPayload: 200})

	var transfer *transport.Transfer
	for _, d := range datagrams {
		tr, err := recv.Accept(d.Data, 0)
		require.NoError(t, err)
		if tr != nil {
			transfer = tr
		}
	}
	require.NotNil(t, transfer)
	assert.Equal(t, payload, transfer.Payload)
}
