package can

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphal-go/transport/transport"
)

func TestTransmitterSingleFrame(t *testing.T) {
	tx := NewTransmitter(MtuClassic8, 4)
	source := transport.NodeID(10)
	err := tx.Push(transport.Transfer{
		Header: transport.Header{Message: &transport.MessageHeader{
			Priority:      transport.PriorityNominal,
			Subject:       100,
			Source:        &source,
			CANTransferID: 3,
		}},
		Payload: []byte{1, 2, 3},
	})
	require.NoError(t, err)

	frame, ok := tx.PopFrame()
	require.True(t, ok)
	// 3 payload bytes + single-frame tail byte, no padding needed at
	// classic CAN's 8-byte step.
	assert.Equal(t, []byte{1, 2, 3, tailByte(true, true, true, 3)}, frame.Data)

	_, ok = tx.PopFrame()
	assert.False(t, ok)
}

// TestTransmitterCANFDMultiFrame reproduces canadensis_can's test_array
// vector byte-for-byte (original_source/canadensis_can/tests/tx.rs):
// a 94-byte payload over CAN-FD splits into a full 64-byte frame and a
// 48-byte tail frame, with padding inserted between the payload
// remainder and the trailing CRC, never after it.
func TestTransmitterCANFDMultiFrame(t *testing.T) {
	payload := make([]byte, 0, 94)
	payload = append(payload, 0x00, 0xb8)
	for i := 0; i <= 0x5b; i++ {
		payload = append(payload, byte(i))
	}
	require.Len(t, payload, 94)

	tx := NewTransmitter(MtuCanFD64, 4)
	source := transport.NodeID(59)
	err := tx.Push(transport.Transfer{
		Header: transport.Header{Message: &transport.MessageHeader{
			Priority:      transport.PriorityNominal,
			Subject:       4919,
			Source:        &source,
			CANTransferID: 0,
		}},
		Payload: payload,
	})
	require.NoError(t, err)

	wantID := ID(0x1073373b)

	frame1, ok := tx.PopFrame()
	require.True(t, ok)
	assert.Equal(t, wantID, frame1.ID)
	assert.Len(t, frame1.Data, 64)
	assert.Equal(t, payload[:63], frame1.Data[:63])
	assert.Equal(t, byte(0xa0), frame1.Data[63])

	frame2, ok := tx.PopFrame()
	require.True(t, ok)
	assert.Equal(t, wantID, frame2.ID)
	assert.Len(t, frame2.Data, 48)
	assert.Equal(t, payload[63:], frame2.Data[:31])
	for _, b := range frame2.Data[31:45] {
		assert.Equal(t, byte(0), b)
	}
	assert.Equal(t, []byte{0xc0, 0x48}, frame2.Data[45:47])
	assert.Equal(t, byte(0x40), frame2.Data[47])

	_, ok = tx.PopFrame()
	assert.False(t, ok)
}
