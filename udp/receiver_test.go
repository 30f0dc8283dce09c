package udp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphal-go/transport/session"
	"github.com/cyphal-go/transport/transport"
)

func newTestUDPReceiver(maxPayload int) *Receiver {
	sessions := session.NewDynamicMap[transport.TransferID](0)
	recv := NewReceiver(sessions)
	recv.Subscribe(Subscription{Kind: transport.KindMessage, Port: 50, MaxPayload: maxPayload, Timeout: time.Second})
	return recv
}

func TestUDPReceiverRejectsStaleTransferID(t *testing.T) {
	recv := newTestUDPReceiver(16)
	source := transport.NodeID(1)

	tx := NewTransmitter(1200, []byte{10, 0, 0, 0})
	first, err := tx.Fragment(transport.Transfer{
		Header:  transport.Header{Message: &transport.MessageHeader{Subject: 50, Source: &source, TransferID: 5}},
		Payload: []byte{1},
	})
	require.NoError(t, err)
	transfer, err := recv.Accept(first[0].Data, 0)
	require.NoError(t, err)
	require.NotNil(t, transfer)

	stale, err := tx.Fragment(transport.Transfer{
		Header:  transport.Header{Message: &transport.MessageHeader{Subject: 50, Source: &source, TransferID: 5}},
		Payload: []byte{2},
	})
	require.NoError(t, err)
	transfer, err = recv.Accept(stale[0].Data, 0)
	require.NoError(t, err)
	assert.Nil(t, transfer)

	next, err := tx.Fragment(transport.Transfer{
		Header:  transport.Header{Message: &transport.MessageHeader{Subject: 50, Source: &source, TransferID: 6}},
		Payload: []byte{3},
	})
	require.NoError(t, err)
	transfer, err = recv.Accept(next[0].Data, 0)
	require.NoError(t, err)
	require.NotNil(t, transfer)
	assert.Equal(t, []byte{3}, transfer.Payload)
}

func TestUDPReceiverStampsTransferWithSOTTimestamp(t *testing.T) {
	recv := newTestUDPReceiver(256)
	source := transport.NodeID(1)

	tx := NewTransmitter(64, []byte{10, 0, 0, 0})
	payload := make([]byte, 150)
	for i := range payload {
		payload[i] = byte(i)
	}
	datagrams, err := tx.Fragment(transport.Transfer{
		Header:  transport.Header{Message: &transport.MessageHeader{Subject: 50, Source: &source, TransferID: 1}},
		Payload: payload,
	})
	require.NoError(t, err)
	require.Greater(t, len(datagrams), 1)

	sotNow := transport.Instant(10)
	transfer, err := recv.Accept(datagrams[0].Data, sotNow)
	require.NoError(t, err)
	assert.Nil(t, transfer)

	// Every subsequent datagram, including the one that completes the
	// transfer, is processed much later: the completed transfer must
	// still carry the SoT datagram's reception time.
	eotNow := transport.Instant(1000)
	for _, dgram := range datagrams[1 : len(datagrams)-1] {
		transfer, err = recv.Accept(dgram.Data, eotNow)
		require.NoError(t, err)
		assert.Nil(t, transfer)
	}
	transfer, err = recv.Accept(datagrams[len(datagrams)-1].Data, eotNow)
	require.NoError(t, err)
	require.NotNil(t, transfer)
	assert.Equal(t, sotNow, transfer.Header.Message.Timestamp)
}

func TestUDPReceiverPoisonsOnSkippedFrameIndex(t *testing.T) {
	recv := newTestUDPReceiver(256)
	source := transport.NodeID(1)

	tx := NewTransmitter(64, []byte{10, 0, 0, 0})
	payload := make([]byte, 150)
	for i := range payload {
		payload[i] = byte(i)
	}
	datagrams, err := tx.Fragment(transport.Transfer{
		Header:  transport.Header{Message: &transport.MessageHeader{Subject: 50, Source: &source, TransferID: 1}},
		Payload: payload,
	})
	require.NoError(t, err)
	require.Greater(t, len(datagrams), 2)

	// Skip the middle datagram: feed the first and the last, omitting
	// index 1.
	transfer, err := recv.Accept(datagrams[0].Data, 0)
	require.NoError(t, err)
	assert.Nil(t, transfer)

	transfer, err = recv.Accept(datagrams[len(datagrams)-1].Data, 0)
	require.NoError(t, err)
	assert.Nil(t, transfer, "a skipped frame index must poison the session rather than complete it")
}
