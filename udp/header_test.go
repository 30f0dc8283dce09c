package udp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphal-go/transport/transport"
)

func TestMulticastAddressMatchesScenario(t *testing.T) {
	// spec.md scenario 6: subject 73 maps to 239.0.0.73.
	ip := MulticastAddress(73)
	assert.Equal(t, "239.0.0.73", ip.String())
}

func TestMulticastAddressPacksHighBits(t *testing.T) {
	ip := MulticastAddress(8191) // all 13 bits set
	assert.Equal(t, "239.0.31.255", ip.String())
}

func TestNodeAddressSetsLastTwoOctets(t *testing.T) {
	base := MulticastAddress(0) // 239.0.0.0
	addr := NodeAddress(base, 300)
	assert.Equal(t, byte(300>>8), addr.To4()[2])
	assert.Equal(t, byte(300), addr.To4()[3])
	assert.Equal(t, base.To4()[0], addr.To4()[0])
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{
		Version:       1,
		Priority:      transport.PriorityFast,
		Source:        4,
		Destination:   broadcastNode,
		Subject:       73,
		TransferID:    123456789,
		FrameIndex:    2,
		EndOfTransfer: true,
	}
	buf := make([]byte, HeaderSize)
	h.Encode(buf)

	got, ok := DecodeHeader(buf)
	require.True(t, ok)
	assert.Equal(t, h.Priority, got.Priority)
	assert.Equal(t, h.Subject, got.Subject)
	assert.Equal(t, h.TransferID, got.TransferID)
	assert.Equal(t, h.FrameIndex, got.FrameIndex)
	assert.True(t, got.EndOfTransfer)
}
